// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/tasks"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单条消息最多处理的次数。
const maxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.MoodRecordedTask) error
}

// Producer 把情绪记录事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishMoodRecorded 发送一个情绪记录事件到 Kafka，同一条记录总是落在同一分区。
func (p *Producer) PublishMoodRecorded(ctx context.Context, task tasks.MoodRecordedTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: taskBytes,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理情绪记录事件，直到 ctx 被取消。
// 消息按顺序逐条处理，一条消息处理完（成功或放弃）之后才读取下一条。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}
		handleMessage(ctx, r, m, processor, rdb)
	}
}

// committer 是 *kafka.Reader 中 handleMessage 用到的部分。
type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// retryBackoff 是第 n 次失败后等待时间的基数，实际等待 n*retryBackoff。
var retryBackoff = 500 * time.Millisecond

// handleMessage 处理单条消息。Reader 不会重新投递未提交的消息，因此失败后在这里原地重试，
// 最多 maxAttempts 次后提交 offset 放弃。失败次数同时记录在 Redis 中，进程重启后继续计数。
// ctx 取消时直接返回且不提交，重启后从该消息重新消费。
func handleMessage(ctx context.Context, r committer, m kafka.Message, processor TaskProcessor, rdb *redis.Client) {
	var task tasks.MoodRecordedTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		commit(ctx, r, m)
		return
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.Key())
	var local int64
	for {
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("情绪记录事件处理成功: entry=%d", task.EntryID)
			_ = rdb.Del(ctx, attemptsKey).Err()
			commit(ctx, r, m)
			return
		}

		local++
		attempts, incErr := rdb.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			// Redis 不可用时使用本地计数
			attempts = local
		} else {
			_ = rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		}
		log.Errorf("处理情绪记录事件失败: entry=%d, attempt=%d, Error: %v", task.EntryID, attempts, err)

		if attempts >= maxAttempts {
			log.Errorf("情绪记录事件多次失败(>=%d)，提交 offset 终止重试: entry=%d", maxAttempts, task.EntryID)
			_ = rdb.Del(ctx, attemptsKey).Err()
			commit(ctx, r, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempts) * retryBackoff):
		}
	}
}

func commit(ctx context.Context, r committer, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
