package model

import "time"

// EsMoodDocument 定义了存储在 Elasticsearch 中的情绪记录文档结构。
type EsMoodDocument struct {
	DocID      string    `json:"doc_id"` // entry-<EntryID>
	EntryID    uint      `json:"entry_id"`
	UserID     uint      `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Mood       string    `json:"mood"`
	Score      int       `json:"score"`
	Answers    []string  `json:"answers"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MoodSearchHit 定义了返回给前端的搜索结果结构。
type MoodSearchHit struct {
	EntryID    uint      `json:"entryId"`
	Mood       string    `json:"mood"`
	Score      int       `json:"score"`
	Answers    []string  `json:"answers"`
	RecordedAt LocalTime `json:"recordedAt"`
	HitScore   float64   `json:"hitScore"`
}
