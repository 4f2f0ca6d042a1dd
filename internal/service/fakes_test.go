package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mood-diary-go/internal/model"
	"mood-diary-go/pkg/tasks"

	"gorm.io/gorm"
)

type adaptiveCall struct {
	previous []string
	step     int
	memory   []string
}

// fakeLLM 记录每次调用，并按脚本返回结果。
type fakeLLM struct {
	adaptiveCalls []adaptiveCall
	followupCalls [][]string
	analyzeCalls  [][]string

	analysis    string
	analysisErr error
	questionErr error
}

func (f *fakeLLM) GenerateAdaptiveQuestion(_ context.Context, previous []string, step int, memory []string) (string, error) {
	f.adaptiveCalls = append(f.adaptiveCalls, adaptiveCall{
		previous: append([]string{}, previous...),
		step:     step,
		memory:   append([]string{}, memory...),
	})
	if f.questionErr != nil {
		return "", f.questionErr
	}
	return "adaptive question", nil
}

func (f *fakeLLM) GenerateFollowupQuestion(_ context.Context, previous []string) (string, error) {
	f.followupCalls = append(f.followupCalls, append([]string{}, previous...))
	if f.questionErr != nil {
		return "", f.questionErr
	}
	return "followup question", nil
}

func (f *fakeLLM) AnalyzeConversation(_ context.Context, answers []string) (string, error) {
	f.analyzeCalls = append(f.analyzeCalls, append([]string{}, answers...))
	return f.analysis, f.analysisErr
}

// fakeEntryRepo 是 MoodEntryRepository 的内存实现。
type fakeEntryRepo struct {
	mu        sync.Mutex
	entries   []model.MoodEntry
	createErr error
	nextID    uint
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *model.MoodEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	entry.ID = r.nextID
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeEntryRepo) FindByUser(_ context.Context, userID uint, limit int) ([]model.MoodEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MoodEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEntryRepo) AverageScore(ctx context.Context, userID uint) (*float64, error) {
	entries, _ := r.FindByUser(ctx, userID, 0)
	if len(entries) == 0 {
		return nil, nil
	}
	sum := 0
	for _, e := range entries {
		sum += e.Score
	}
	avg := float64(sum) / float64(len(entries))
	return &avg, nil
}

func (r *fakeEntryRepo) CountByMood(ctx context.Context, userID uint) ([]model.MoodCount, error) {
	entries, _ := r.FindByUser(ctx, userID, 0)
	counts := map[string]int64{}
	for _, e := range entries {
		counts[e.Mood]++
	}
	var out []model.MoodCount
	for mood, total := range counts {
		out = append(out, model.MoodCount{Mood: mood, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Mood < out[j].Mood
		}
		return out[i].Total > out[j].Total
	})
	return out, nil
}

type recordingPublisher struct {
	published []tasks.MoodRecordedTask
	err       error
}

func (p *recordingPublisher) PublishMoodRecorded(_ context.Context, task tasks.MoodRecordedTask) error {
	p.published = append(p.published, task)
	return p.err
}

// fakeUserRepo 是 UserRepository 的内存实现。
type fakeUserRepo struct {
	users  map[string]*model.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := r.users[user.Username]; ok {
		return errors.New("duplicate username")
	}
	r.nextID++
	user.ID = r.nextID
	u := *user
	r.users[user.Username] = &u
	return nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, userID uint) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			out := *u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
