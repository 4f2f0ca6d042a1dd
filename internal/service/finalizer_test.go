package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"mood-diary-go/internal/config"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinalizer(llmClient *fakeLLM, entries *fakeEntryRepo, pub *recordingPublisher) (Finalizer, repository.QuestionnaireStateRepository) {
	states := repository.NewMemoryQuestionnaireStateRepository(time.Hour)
	var publisher EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewFinalizer(llmClient, entries, states, publisher, config.MoodConfig{DefaultScore: 5}), states
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		in      string
		emotion string
		score   int
		ok      bool
	}{
		{"happy - 8", "happy", 8, true},
		{"  sad-2 ", "sad", 2, true},
		{"χαρά - 8", "χαρά", 8, true},
		{"angry - -3", "angry", -3, true},
		{"happy", "", 0, false},
		{"happy-notanumber", "", 0, false},
		{"", "", 0, false},
		{"happy - 7.5", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			emotion, score, ok := ParseAnalysis(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.emotion, emotion)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-3))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 6, ClampScore(6))
	assert.Equal(t, 10, ClampScore(10))
	assert.Equal(t, 10, ClampScore(17))
}

func TestScoreClass(t *testing.T) {
	cases := map[int]string{
		0: ScoreClassLow, 3: ScoreClassLow,
		4: ScoreClassMedium, 6: ScoreClassMedium,
		7: ScoreClassHigh, 8: ScoreClassHigh,
		9: ScoreClassExtreme, 10: ScoreClassExtreme,
	}
	for score, want := range cases {
		assert.Equal(t, want, ScoreClass(score), "score %d", score)
	}
}

func TestFinalize_ParsedResult(t *testing.T) {
	llmClient := &fakeLLM{analysis: "χαρά - 8"}
	entries := &fakeEntryRepo{}
	pub := &recordingPublisher{}
	fin, _ := newTestFinalizer(llmClient, entries, pub)
	user := &model.User{ID: 3}
	state := &model.QuestionnaireState{SessionID: "sess-1", UserID: 3, Answers: []string{"a", "b"}}

	res, err := fin.Finalize(context.Background(), user, state)
	require.NoError(t, err)
	assert.Equal(t, &model.MoodResult{EntryID: 1, Emotion: "χαρά", Score: 8, ScorePercent: 80, ScoreClass: ScoreClassHigh}, res)

	require.Len(t, entries.entries, 1)
	assert.Equal(t, "χαρά", entries.entries[0].Mood)
	assert.Equal(t, "sess-1", entries.entries[0].SessionID)

	require.Len(t, pub.published, 1)
	assert.Equal(t, uint(1), pub.published[0].EntryID)
	assert.Equal(t, []string{"a", "b"}, pub.published[0].Answers)
	assert.False(t, pub.published[0].RecordedAt.IsZero())
}

func TestFinalize_Fallbacks(t *testing.T) {
	tests := []struct {
		name        string
		analysis    string
		analysisErr error
	}{
		{name: "no separator", analysis: "happy"},
		{name: "non-integer", analysis: "happy-notanumber"},
		{name: "empty", analysis: ""},
		{name: "adapter error", analysisErr: errors.New("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmClient := &fakeLLM{analysis: tt.analysis, analysisErr: tt.analysisErr}
			fin, _ := newTestFinalizer(llmClient, &fakeEntryRepo{}, nil)

			res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, &model.QuestionnaireState{Answers: []string{"x"}})
			require.NoError(t, err)
			assert.Equal(t, "neutral", res.Emotion)
			assert.Equal(t, 5, res.Score)
			assert.Equal(t, ScoreClassMedium, res.ScoreClass)
			assert.Len(t, llmClient.analyzeCalls, 1, "analysis is attempted exactly once")
		})
	}
}

func TestFinalize_ClampsOutOfRangeScores(t *testing.T) {
	for analysis, want := range map[string]int{"sad - -3": 0, "elated - 17": 10} {
		fin, _ := newTestFinalizer(&fakeLLM{analysis: analysis}, &fakeEntryRepo{}, nil)
		res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, &model.QuestionnaireState{})
		require.NoError(t, err)
		assert.Equal(t, want, res.Score, analysis)
		assert.Equal(t, want*10, res.ScorePercent, analysis)
	}
}

func TestFinalize_ClearsState(t *testing.T) {
	fin, states := newTestFinalizer(&fakeLLM{analysis: "ok - 5"}, &fakeEntryRepo{}, nil)
	ctx := context.Background()
	state := &model.QuestionnaireState{UserID: 9, Step: 3, Answers: []string{"a", "b"}}
	require.NoError(t, states.Save(ctx, state))

	_, err := fin.Finalize(ctx, &model.User{ID: 9}, state)
	require.NoError(t, err)

	got, err := states.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFinalize_PersistFailureKeepsState(t *testing.T) {
	entries := &fakeEntryRepo{createErr: errors.New("db down")}
	fin, states := newTestFinalizer(&fakeLLM{analysis: "ok - 5"}, entries, nil)
	ctx := context.Background()
	state := &model.QuestionnaireState{UserID: 9, Step: 2, Answers: []string{"a"}}
	require.NoError(t, states.Save(ctx, state))

	_, err := fin.Finalize(ctx, &model.User{ID: 9}, state)
	require.Error(t, err)
	assert.ErrorIs(t, err, entries.createErr)

	got, err := states.Get(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestFinalize_PublishFailureIsIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	fin, _ := newTestFinalizer(&fakeLLM{analysis: "ok - 5"}, &fakeEntryRepo{}, pub)

	res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, &model.QuestionnaireState{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Emotion)
	assert.Len(t, pub.published, 1)
}

func TestNewFinalizer_ConfiguredDefaults(t *testing.T) {
	llmClient := &fakeLLM{analysis: "garbage"}
	states := repository.NewMemoryQuestionnaireStateRepository(time.Hour)
	fin := NewFinalizer(llmClient, &fakeEntryRepo{}, states, nil, config.MoodConfig{DefaultLabel: "ουδέτερο", DefaultScore: 4})

	res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ουδέτερο", res.Emotion)
	assert.Equal(t, 4, res.Score)
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "joy", TruncateLabel("joy"))
	long := strings.Repeat("χ", 150)
	got := TruncateLabel(long)
	assert.Equal(t, maxMoodLabelRunes, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestFinalize_LongLabelIsTruncated(t *testing.T) {
	label := strings.Repeat("ά", 150)
	entries := &fakeEntryRepo{}
	fin, _ := newTestFinalizer(&fakeLLM{analysis: label + " - 6"}, entries, nil)

	res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, &model.QuestionnaireState{Answers: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Score)
	assert.Equal(t, maxMoodLabelRunes, utf8.RuneCountInString(res.Emotion))
	require.Len(t, entries.entries, 1)
	assert.Equal(t, res.Emotion, entries.entries[0].Mood)
}

func TestNewFinalizer_ZeroDefaultScore(t *testing.T) {
	states := repository.NewMemoryQuestionnaireStateRepository(time.Hour)
	fin := NewFinalizer(&fakeLLM{analysis: "garbage"}, &fakeEntryRepo{}, states, nil, config.MoodConfig{DefaultScore: 0})

	res, err := fin.Finalize(context.Background(), &model.User{ID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, ScoreClassLow, res.ScoreClass)
}
