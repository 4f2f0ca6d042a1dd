package service

import (
	"context"
	"errors"
	"fmt"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/repository"
	"mood-diary-go/pkg/hash"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/token"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	// ErrUserExists 表示用户名已被注册。
	ErrUserExists = errors.New("用户名已存在")
	// ErrInvalidCredentials 表示用户名或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken 表示 refresh token 无效或已过期。
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const roleUser = "USER"

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error)
	GetProfile(ctx context.Context, username string) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo    repository.UserRepository
	jwtManager  *token.JWTManager
	redisClient *redis.Client
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager, redisClient *redis.Client) UserService {
	return &userService{
		userRepo:    userRepo,
		jwtManager:  jwtManager,
		redisClient: redisClient,
	}
}

func blacklistKey(tokenString string) string {
	return "blacklist:" + tokenString
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	// 1. 检查用户名是否已存在
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 创建新用户
	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Role:     roleUser,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		log.Errorf("[UserService] 创建用户失败, username: %s, error: %v", username, err)
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

// GetProfile 根据用户名获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, username string) (*model.User, error) {
	return s.userRepo.FindByUsername(ctx, username)
}

// Logout 将 token 加入 Redis 黑名单，过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString, token.TypeAccess)
	if err != nil {
		return err
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	return s.redisClient.Set(ctx, blacklistKey(tokenString), "true", expiration).Err()
}

// IsTokenRevoked 检查 token 是否已登出。
func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	n, err := s.redisClient.Exists(ctx, blacklistKey(tokenString)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString, token.TypeRefresh)
	if err != nil {
		return "", "", ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByUsername(ctx, claims.Username)
	if err != nil {
		return "", "", errors.New("user not found")
	}
	return s.issueTokens(user)
}

func (s *userService) issueTokens(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
