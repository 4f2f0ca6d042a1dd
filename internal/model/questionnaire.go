package model

import "time"

// QuestionnaireState 是进行中问卷的会话状态，按用户存储在 Redis 或内存中。
// 问卷结束后整体清除。
type QuestionnaireState struct {
	SessionID       string    `json:"sessionId"`
	UserID          uint      `json:"userId"`
	Answers         []string  `json:"answers"`
	Step            int       `json:"step"`
	CurrentQuestion string    `json:"currentQuestion"`
	EmotionMemory   []string  `json:"emotionMemory"`
	CreatedAt       time.Time `json:"createdAt"`
}

// QuestionView 是 GET 问卷时返回的当前问题。
type QuestionView struct {
	Question string `json:"question"`
	Step     int    `json:"step"`
	Error    string `json:"error,omitempty"`
}
