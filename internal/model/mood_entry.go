package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// MoodEntry 对应于数据库中的 'mood_entries' 表。
// 每次问卷结束（答满或用户主动停止）时创建一条，之后不再修改。
type MoodEntry struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint   `gorm:"index;not null" json:"userId"`
	Mood   string `gorm:"type:varchar(100);not null" json:"mood"`
	// Score 在写入时总是位于 [0,10]。
	Score int `gorm:"not null" json:"score"`
	// Response 是完整回答序列的 JSON 数组。
	Response  datatypes.JSON `gorm:"type:json" json:"response"`
	SessionID string         `gorm:"type:varchar(36);index" json:"sessionId"`
	Date      time.Time      `gorm:"autoCreateTime;index" json:"date"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (MoodEntry) TableName() string {
	return "mood_entries"
}

// Answers 解码 Response 字段；无法解码时返回空切片。
func (e MoodEntry) Answers() []string {
	var answers []string
	if len(e.Response) == 0 {
		return []string{}
	}
	if err := json.Unmarshal(e.Response, &answers); err != nil {
		return []string{}
	}
	return answers
}

// MoodResult 是一次问卷结束后展示给用户的结果。
type MoodResult struct {
	EntryID      uint   `json:"entryId"`
	Emotion      string `json:"emotion"`
	Score        int    `json:"score"`
	ScorePercent int    `json:"scorePercent"`
	ScoreClass   string `json:"scoreClass"`
}

// MoodCount 是按情绪标签分组的计数。
type MoodCount struct {
	Mood  string `json:"mood"`
	Total int64  `json:"total"`
}

// MoodStats 是用户的统计视图。AvgScore 为 nil 表示没有任何记录。
type MoodStats struct {
	AvgScore   *float64    `json:"avgScore"`
	MoodCounts []MoodCount `json:"moodCounts"`
}
