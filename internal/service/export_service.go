package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mood-diary-go/internal/model"
	"mood-diary-go/pkg/log"
	"time"
)

const exportURLExpiry = time.Hour

// ObjectStore 是导出功能需要的对象存储能力。
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ExportResult 是一次导出的结果。
type ExportResult struct {
	ObjectName string    `json:"objectName"`
	URL        string    `json:"url"`
	Entries    int       `json:"entries"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type exportedEntry struct {
	ID      uint      `json:"id"`
	Mood    string    `json:"mood"`
	Score   int       `json:"score"`
	Answers []string  `json:"answers"`
	Date    time.Time `json:"date"`
}

// ExportService 把用户的全部历史导出到对象存储。
type ExportService interface {
	ExportHistory(ctx context.Context, user *model.User) (*ExportResult, error)
}

type exportService struct {
	reports ReportService
	store   ObjectStore
	now     func() time.Time
}

// NewExportService 创建一个新的 ExportService 实例。
func NewExportService(reports ReportService, store ObjectStore) ExportService {
	return &exportService{reports: reports, store: store, now: time.Now}
}

// ExportHistory 序列化历史记录，上传到 exports/<userID>/<timestamp>.json 并返回预签名下载地址。
func (s *exportService) ExportHistory(ctx context.Context, user *model.User) (*ExportResult, error) {
	entries, err := s.reports.History(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := make([]exportedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, exportedEntry{
			ID:      e.ID,
			Mood:    e.Mood,
			Score:   e.Score,
			Answers: e.Answers(),
			Date:    e.Date,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化历史记录失败: %w", err)
	}

	now := s.now()
	objectName := fmt.Sprintf("exports/%d/%s.json", user.ID, now.UTC().Format("20060102T150405Z"))
	if err := s.store.PutObject(ctx, objectName, data, "application/json"); err != nil {
		return nil, fmt.Errorf("上传导出文件失败: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, objectName, exportURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("生成下载地址失败: %w", err)
	}

	log.Infof("[ExportService] 导出完成, user: %d, object: %s, entries: %d", user.ID, objectName, len(out))
	return &ExportResult{
		ObjectName: objectName,
		URL:        url,
		Entries:    len(out),
		ExpiresAt:  now.Add(exportURLExpiry),
	}, nil
}
