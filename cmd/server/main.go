// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/internal/handler"
	"mood-diary-go/internal/middleware"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/pipeline"
	"mood-diary-go/internal/repository"
	"mood-diary-go/internal/service"
	"mood-diary-go/pkg/database"
	"mood-diary-go/pkg/es"
	"mood-diary-go/pkg/kafka"
	"mood-diary-go/pkg/llm"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/storage"
	"mood-diary-go/pkg/token"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "mood-diary-go"

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("MOOD_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN, &model.User{}, &model.MoodEntry{})
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	entryRepo := repository.NewMoodEntryRepository(database.DB)
	var stateRepo repository.QuestionnaireStateRepository
	switch cfg.Session.Backend {
	case "memory":
		stateRepo = repository.NewMemoryQuestionnaireStateRepository(cfg.Session.TTL())
	default:
		stateRepo = repository.NewRedisQuestionnaireStateRepository(database.RDB, cfg.Session.TTL())
	}
	log.Infof("问卷会话存储后端: %s", cfg.Session.Backend)

	// 5. 可选组件：Elasticsearch 索引、Kafka 事件、MinIO 导出
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	var wg sync.WaitGroup

	var (
		processor     *pipeline.Processor
		searchService service.SearchService
		publisher     service.EventPublisher
		producer      *kafka.Producer
		exportService service.ExportService
	)
	if cfg.Elasticsearch.Enabled {
		esClient, err := es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Fatal("Elasticsearch 初始化失败", err)
		}
		esStore := es.NewStore(esClient, cfg.Elasticsearch.IndexName)
		processor = pipeline.NewProcessor(esStore)
		searchService = service.NewSearchService(esStore)
		// 未启用 Kafka 时同步索引
		publisher = processor
	}
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		publisher = producer
		if processor != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				kafka.StartConsumer(bgCtx, cfg.Kafka, processor, database.RDB)
			}()
		} else {
			log.Warnf("Kafka 已启用但 Elasticsearch 未启用，本服务不消费情绪记录事件")
		}
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepo, jwtManager, database.RDB)
	reportService := service.NewReportService(entryRepo)
	finalizer := service.NewFinalizer(llmClient, entryRepo, stateRepo, publisher, cfg.Mood)
	questionnaireService := service.NewQuestionnaireService(stateRepo, entryRepo, llmClient, finalizer, cfg.Mood)
	if cfg.MinIO.Enabled {
		store, err := storage.NewMinioStore(bgCtx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		exportService = service.NewExportService(reportService, store)
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	userHandler := handler.NewUserHandler(userService)
	moodHandler := handler.NewMoodHandler(questionnaireService, reportService)
	authMiddleware := middleware.AuthMiddleware(jwtManager, userService)

	r.GET("/", handler.NewHomeHandler(serviceName, cfg.Mood.MaxQuestions).Home)
	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(authMiddleware)
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		mood := apiV1.Group("/mood")
		mood.Use(authMiddleware)
		{
			mood.GET("/log", moodHandler.GetQuestion)
			mood.POST("/log", moodHandler.SubmitAnswer)
			mood.GET("/history", moodHandler.History)
			mood.GET("/stats", moodHandler.Stats)
			if searchService != nil {
				mood.GET("/search", handler.NewSearchHandler(searchService).Search)
			}
			if exportService != nil {
				mood.POST("/export", handler.NewExportHandler(exportService).Export)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止 Kafka 消费者并关闭生产者
	cancelBg()
	wg.Wait()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
