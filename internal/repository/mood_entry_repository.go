package repository

import (
	"context"
	"database/sql"
	"mood-diary-go/internal/model"

	"gorm.io/gorm"
)

// MoodEntryRepository 定义了情绪记录的持久化与聚合查询。
type MoodEntryRepository interface {
	Create(ctx context.Context, entry *model.MoodEntry) error
	// FindByUser 按日期倒序返回用户的记录；limit <= 0 表示不限制。
	FindByUser(ctx context.Context, userID uint, limit int) ([]model.MoodEntry, error)
	// AverageScore 返回用户的平均分；没有任何记录时返回 nil。
	AverageScore(ctx context.Context, userID uint) (*float64, error)
	CountByMood(ctx context.Context, userID uint) ([]model.MoodCount, error)
}

type moodEntryRepository struct {
	db *gorm.DB
}

// NewMoodEntryRepository 创建一个新的 MoodEntryRepository 实例。
func NewMoodEntryRepository(db *gorm.DB) MoodEntryRepository {
	return &moodEntryRepository{db: db}
}

func (r *moodEntryRepository) Create(ctx context.Context, entry *model.MoodEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *moodEntryRepository) FindByUser(ctx context.Context, userID uint, limit int) ([]model.MoodEntry, error) {
	var entries []model.MoodEntry
	// id 作为同一时刻写入时的次序
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *moodEntryRepository) AverageScore(ctx context.Context, userID uint) (*float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&model.MoodEntry{}).
		Select("AVG(score)").
		Where("user_id = ?", userID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	v := avg.Float64
	return &v, nil
}

func (r *moodEntryRepository) CountByMood(ctx context.Context, userID uint) ([]model.MoodCount, error) {
	counts := make([]model.MoodCount, 0)
	err := r.db.WithContext(ctx).
		Model(&model.MoodEntry{}).
		Select("mood, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("mood").
		Order("total DESC").
		Order("mood ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
