package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/repository"
	"mood-diary-go/pkg/llm"
	"mood-diary-go/pkg/log"
	"mood-diary-go/pkg/tasks"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	minScore = 0
	maxScore = 10

	defaultMoodLabel = "neutral"
	defaultMoodScore = 5

	// maxMoodLabelRunes 与 mood_entries.mood 列宽一致。
	maxMoodLabelRunes = 100
)

// 分数等级
const (
	ScoreClassLow     = "low"
	ScoreClassMedium  = "medium"
	ScoreClassHigh    = "high"
	ScoreClassExtreme = "extreme"
)

// Finalizer 把累积的回答转换为一条持久化的情绪记录，并清除会话状态。
type Finalizer interface {
	Finalize(ctx context.Context, user *model.User, state *model.QuestionnaireState) (*model.MoodResult, error)
}

type finalizer struct {
	llmClient llm.Client
	entryRepo repository.MoodEntryRepository
	stateRepo repository.QuestionnaireStateRepository
	publisher EventPublisher
	label     string
	score     int
}

// NewFinalizer 创建一个新的 Finalizer 实例。publisher 为 nil 时不发布事件。
func NewFinalizer(llmClient llm.Client, entryRepo repository.MoodEntryRepository, stateRepo repository.QuestionnaireStateRepository, publisher EventPublisher, cfg config.MoodConfig) Finalizer {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	label := strings.TrimSpace(cfg.DefaultLabel)
	if label == "" {
		label = defaultMoodLabel
	}
	score := cfg.DefaultScore
	if score < minScore || score > maxScore {
		score = defaultMoodScore
	}
	return &finalizer{
		llmClient: llmClient,
		entryRepo: entryRepo,
		stateRepo: stateRepo,
		publisher: publisher,
		label:     label,
		score:     score,
	}
}

// Finalize 完成一次问卷。回答数量可以为 0（用户在第一题就停止）。
func (f *finalizer) Finalize(ctx context.Context, user *model.User, state *model.QuestionnaireState) (*model.MoodResult, error) {
	answers := []string{}
	sessionID := ""
	if state != nil {
		answers = append(answers, state.Answers...)
		sessionID = state.SessionID
	}
	log.Infof("[Finalizer] 开始结束问卷, user: %d, session: %s, answers: %d", user.ID, sessionID, len(answers))

	// 1. 只调用一次分析，任何失败都回退到默认结果
	emotion, score := f.label, f.score
	raw, err := f.llmClient.AnalyzeConversation(ctx, answers)
	if err != nil {
		log.Warnw("[Finalizer] LLM 分析失败，使用默认结果", "user", user.ID, "error", err)
	} else if parsedEmotion, parsedScore, ok := ParseAnalysis(raw); ok {
		emotion, score = parsedEmotion, parsedScore
	} else {
		log.Warnw("[Finalizer] 无法解析 LLM 分析结果，使用默认结果", "user", user.ID, "raw", raw)
	}
	emotion = TruncateLabel(emotion)
	score = ClampScore(score)

	// 2. 持久化情绪记录
	response, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("序列化回答失败: %w", err)
	}
	entry := &model.MoodEntry{
		UserID:    user.ID,
		Mood:      emotion,
		Score:     score,
		Response:  datatypes.JSON(response),
		SessionID: sessionID,
	}
	if err := f.entryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("保存情绪记录失败: %w", err)
	}

	// 3. 清除会话状态；记录已写入，清除失败只记录日志
	if err := f.stateRepo.Clear(ctx, user.ID); err != nil {
		log.Errorf("[Finalizer] 清除问卷状态失败, user: %d, error: %v", user.ID, err)
	}

	// 4. 发布事件，失败不影响结果
	recordedAt := entry.Date
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	task := tasks.MoodRecordedTask{
		EntryID:    entry.ID,
		UserID:     user.ID,
		SessionID:  sessionID,
		Mood:       emotion,
		Score:      score,
		Answers:    answers,
		RecordedAt: recordedAt,
	}
	if err := f.publisher.PublishMoodRecorded(ctx, task); err != nil {
		log.Errorf("[Finalizer] 发布情绪记录事件失败, entry: %d, error: %v", entry.ID, err)
	}

	log.Infow("Mood entry recorded", "user", user.ID, "entry", entry.ID, "mood", emotion, "score", score)
	return &model.MoodResult{
		EntryID:      entry.ID,
		Emotion:      emotion,
		Score:        score,
		ScorePercent: score * 10,
		ScoreClass:   ScoreClass(score),
	}, nil
}

// ParseAnalysis 解析 "<emotion> - <score>" 格式的分析结果。
// 只在第一个 '-' 处切分；任何一部分无效都返回 ok=false。
func ParseAnalysis(result string) (emotion string, score int, ok bool) {
	parts := strings.SplitN(result, "-", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	emotion = strings.TrimSpace(parts[0])
	score, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, false
	}
	return emotion, score, true
}

// TruncateLabel 把情绪标签按字符截断到列宽，不会切开多字节字符。
func TruncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxMoodLabelRunes {
		return label
	}
	return strings.TrimSpace(string(runes[:maxMoodLabelRunes]))
}

// ClampScore 将分数截断到 [0,10]。
func ClampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// ScoreClass 按固定阈值给分数分级：[0,4) low, [4,7) medium, [7,9) high, [9,10] extreme。
func ScoreClass(score int) string {
	switch {
	case score < 4:
		return ScoreClassLow
	case score < 7:
		return ScoreClassMedium
	case score < 9:
		return ScoreClassHigh
	default:
		return ScoreClassExtreme
	}
}
