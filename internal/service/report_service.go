package service

import (
	"context"
	"fmt"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/repository"
)

// ReportService 提供只读的历史与统计视图。
type ReportService interface {
	History(ctx context.Context, userID uint) ([]model.MoodEntry, error)
	Stats(ctx context.Context, userID uint) (*model.MoodStats, error)
}

type reportService struct {
	entryRepo repository.MoodEntryRepository
}

// NewReportService 创建一个新的 ReportService 实例。
func NewReportService(entryRepo repository.MoodEntryRepository) ReportService {
	return &reportService{entryRepo: entryRepo}
}

// History 按日期倒序返回用户全部记录。
func (s *reportService) History(ctx context.Context, userID uint) ([]model.MoodEntry, error) {
	entries, err := s.entryRepo.FindByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("查询历史记录失败: %w", err)
	}
	if entries == nil {
		entries = []model.MoodEntry{}
	}
	return entries, nil
}

// Stats 计算平均分与按情绪分组的计数。没有记录时 AvgScore 为 nil。
func (s *reportService) Stats(ctx context.Context, userID uint) (*model.MoodStats, error) {
	avg, err := s.entryRepo.AverageScore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("计算平均分失败: %w", err)
	}
	counts, err := s.entryRepo.CountByMood(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("统计情绪分布失败: %w", err)
	}
	if counts == nil {
		counts = []model.MoodCount{}
	}
	return &model.MoodStats{AvgScore: avg, MoodCounts: counts}, nil
}
