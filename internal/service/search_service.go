package service

import (
	"context"
	"errors"
	"fmt"
	"mood-diary-go/internal/model"
	"mood-diary-go/pkg/log"
	"strings"
)

const (
	defaultTopK = 10
	maxTopK     = 50
)

// ErrEmptyQuery 表示检索关键词为空。
var ErrEmptyQuery = errors.New("query must not be empty")

// MoodSearcher 在检索引擎中按用户检索情绪记录。
type MoodSearcher interface {
	Search(ctx context.Context, userID uint, query string, topK int) ([]model.MoodSearchHit, error)
}

// SearchService 定义了情绪记录检索操作。
type SearchService interface {
	SearchEntries(ctx context.Context, user *model.User, query string, topK int) ([]model.MoodSearchHit, error)
}

type searchService struct {
	searcher MoodSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(searcher MoodSearcher) SearchService {
	return &searchService{searcher: searcher}
}

// SearchEntries 检索当前用户的记录。topK 非正时使用默认值，并限制最大值。
func (s *searchService) SearchEntries(ctx context.Context, user *model.User, query string, topK int) ([]model.MoodSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	log.Infof("[SearchService] 检索情绪记录, user: %d, query: %q, topK: %d", user.ID, query, topK)
	hits, err := s.searcher.Search(ctx, user.ID, query, topK)
	if err != nil {
		return nil, fmt.Errorf("检索情绪记录失败: %w", err)
	}
	if hits == nil {
		hits = []model.MoodSearchHit{}
	}
	return hits, nil
}
