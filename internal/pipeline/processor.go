// Package pipeline 定义了情绪记录事件的下游处理流程。
package pipeline

import (
	"context"
	"fmt"
	"mood-diary-go/internal/model"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/tasks"
)

// Indexer 把文档写入检索引擎。
type Indexer interface {
	Index(ctx context.Context, doc model.EsMoodDocument) error
}

// Processor 消费情绪记录事件并把它们索引到 Elasticsearch。
type Processor struct {
	indexer Indexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(indexer Indexer) *Processor {
	return &Processor{indexer: indexer}
}

// Process 处理单条事件。相同 EntryID 的事件映射到同一文档，重复投递是幂等的。
func (p *Processor) Process(ctx context.Context, task tasks.MoodRecordedTask) error {
	log.Infof("[Processor] 开始索引情绪记录, entry: %d, user: %d", task.EntryID, task.UserID)

	answers := task.Answers
	if answers == nil {
		answers = []string{}
	}
	doc := model.EsMoodDocument{
		DocID:      task.Key(),
		EntryID:    task.EntryID,
		UserID:     task.UserID,
		SessionID:  task.SessionID,
		Mood:       task.Mood,
		Score:      task.Score,
		Answers:    answers,
		RecordedAt: task.RecordedAt,
	}
	if err := p.indexer.Index(ctx, doc); err != nil {
		log.Errorf("[Processor] 索引情绪记录失败, entry: %d, Error: %v", task.EntryID, err)
		return fmt.Errorf("索引情绪记录 %d 失败: %w", task.EntryID, err)
	}
	log.Infof("[Processor] 情绪记录索引成功, doc: %s", doc.DocID)
	return nil
}

// PublishMoodRecorded 让 Processor 在未启用 Kafka 时直接作为事件发布者使用。
func (p *Processor) PublishMoodRecorded(ctx context.Context, task tasks.MoodRecordedTask) error {
	return p.Process(ctx, task)
}
