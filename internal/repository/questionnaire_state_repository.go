package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mood-diary-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// QuestionnaireStateRepository 定义了进行中问卷会话状态的存取接口。
// 状态以用户 ID 作为会话标识，同一用户的多个标签页共享同一份状态。
type QuestionnaireStateRepository interface {
	// Get 返回用户当前的问卷状态；不存在时返回 (nil, nil)。
	Get(ctx context.Context, userID uint) (*model.QuestionnaireState, error)
	Save(ctx context.Context, state *model.QuestionnaireState) error
	// Clear 删除用户的问卷状态，状态不存在时同样返回 nil。
	Clear(ctx context.Context, userID uint) error
}

func questionnaireKey(userID uint) string {
	return fmt.Sprintf("questionnaire:%d", userID)
}

type redisQuestionnaireStateRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisQuestionnaireStateRepository 创建基于 Redis 的会话状态存储。
func NewRedisQuestionnaireStateRepository(redisClient *redis.Client, ttl time.Duration) QuestionnaireStateRepository {
	return &redisQuestionnaireStateRepository{redisClient: redisClient, ttl: ttl}
}

func (r *redisQuestionnaireStateRepository) Get(ctx context.Context, userID uint) (*model.QuestionnaireState, error) {
	jsonData, err := r.redisClient.Get(ctx, questionnaireKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire state: %w", err)
	}
	var state model.QuestionnaireState
	if err := json.Unmarshal([]byte(jsonData), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questionnaire state: %w", err)
	}
	return &state, nil
}

func (r *redisQuestionnaireStateRepository) Save(ctx context.Context, state *model.QuestionnaireState) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal questionnaire state: %w", err)
	}
	if err := r.redisClient.Set(ctx, questionnaireKey(state.UserID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set questionnaire state: %w", err)
	}
	return nil
}

func (r *redisQuestionnaireStateRepository) Clear(ctx context.Context, userID uint) error {
	if err := r.redisClient.Del(ctx, questionnaireKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear questionnaire state: %w", err)
	}
	return nil
}

// memoryQuestionnaireStateRepository 用于单实例部署与本地开发。
type memoryQuestionnaireStateRepository struct {
	cache *cache.Cache
}

// NewMemoryQuestionnaireStateRepository 创建基于进程内缓存的会话状态存储。
func NewMemoryQuestionnaireStateRepository(ttl time.Duration) QuestionnaireStateRepository {
	return &memoryQuestionnaireStateRepository{cache: cache.New(ttl, 10*time.Minute)}
}

func (r *memoryQuestionnaireStateRepository) Get(_ context.Context, userID uint) (*model.QuestionnaireState, error) {
	x, found := r.cache.Get(questionnaireKey(userID))
	if !found {
		return nil, nil
	}
	// 返回副本，调用方修改后必须显式 Save
	state := cloneState(x.(*model.QuestionnaireState))
	return state, nil
}

func (r *memoryQuestionnaireStateRepository) Save(_ context.Context, state *model.QuestionnaireState) error {
	r.cache.Set(questionnaireKey(state.UserID), cloneState(state), cache.DefaultExpiration)
	return nil
}

func (r *memoryQuestionnaireStateRepository) Clear(_ context.Context, userID uint) error {
	r.cache.Delete(questionnaireKey(userID))
	return nil
}

func cloneState(s *model.QuestionnaireState) *model.QuestionnaireState {
	c := *s
	c.Answers = append([]string(nil), s.Answers...)
	c.EmotionMemory = append([]string(nil), s.EmotionMemory...)
	return &c
}
