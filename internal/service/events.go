// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"mood-diary-go/pkg/tasks"
)

// EventPublisher 发布情绪记录事件（Kafka 或同步索引）。
type EventPublisher interface {
	PublishMoodRecorded(ctx context.Context, task tasks.MoodRecordedTask) error
}

// NopPublisher 在未启用事件管道时使用。
type NopPublisher struct{}

func (NopPublisher) PublishMoodRecorded(context.Context, tasks.MoodRecordedTask) error { return nil }
