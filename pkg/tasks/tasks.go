// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"fmt"
	"time"
)

// MoodRecordedTask is published once a questionnaire has been finalized and
// its mood entry persisted.
type MoodRecordedTask struct {
	EntryID    uint      `json:"entry_id"`
	UserID     uint      `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Mood       string    `json:"mood"`
	Score      int       `json:"score"`
	Answers    []string  `json:"answers"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Key identifies the task for partitioning and retry bookkeeping.
func (t MoodRecordedTask) Key() string {
	return fmt.Sprintf("entry-%d", t.EntryID)
}
