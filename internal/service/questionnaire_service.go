package service

import (
	"context"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/internal/model"
	"mood-diary-go/internal/repository"
	"mood-diary-go/pkg/llm"
	"mood-diary-go/pkg/log"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxQuestions      = 5
	emotionMemorySize        = 3
	defaultValidationMessage = "Please write an answer 🙂"
)

// SubmitInput 是一次 POST 提交的内容。
type SubmitInput struct {
	Answer string
	Stop   bool
}

// SubmitOutcome 描述一次提交的结果，三种情况互斥：
// Result 非空表示问卷已结束；Invalid 非空表示回答为空被拒绝；两者都为空表示已生成下一题。
type SubmitOutcome struct {
	Result  *model.MoodResult
	Invalid *model.QuestionView
}

// Finalized 表示本次提交是否结束了问卷。
func (o *SubmitOutcome) Finalized() bool {
	return o != nil && o.Result != nil
}

// QuestionnaireService 驱动问卷的状态机。
type QuestionnaireService interface {
	// Current 返回当前问题；会话不存在时先初始化。
	Current(ctx context.Context, user *model.User) (*model.QuestionView, error)
	// Submit 处理一次回答或停止信号。
	Submit(ctx context.Context, user *model.User, in SubmitInput) (*SubmitOutcome, error)
}

type questionnaireService struct {
	stateRepo         repository.QuestionnaireStateRepository
	entryRepo         repository.MoodEntryRepository
	llmClient         llm.Client
	finalizer         Finalizer
	maxQuestions      int
	validationMessage string
}

// NewQuestionnaireService 创建一个新的 QuestionnaireService 实例。
func NewQuestionnaireService(stateRepo repository.QuestionnaireStateRepository, entryRepo repository.MoodEntryRepository, llmClient llm.Client, finalizer Finalizer, cfg config.MoodConfig) QuestionnaireService {
	maxQuestions := cfg.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}
	msg := cfg.ValidationMessage
	if msg == "" {
		msg = defaultValidationMessage
	}
	return &questionnaireService{
		stateRepo:         stateRepo,
		entryRepo:         entryRepo,
		llmClient:         llmClient,
		finalizer:         finalizer,
		maxQuestions:      maxQuestions,
		validationMessage: msg,
	}
}

func (s *questionnaireService) Current(ctx context.Context, user *model.User) (*model.QuestionView, error) {
	state, err := s.ensureState(ctx, user)
	if err != nil {
		return nil, err
	}
	return &model.QuestionView{Question: state.CurrentQuestion, Step: state.Step}, nil
}

func (s *questionnaireService) Submit(ctx context.Context, user *model.User, in SubmitInput) (*SubmitOutcome, error) {
	state, err := s.ensureState(ctx, user)
	if err != nil {
		return nil, err
	}

	// 用户主动停止：无论已经回答了几题（包括 0 题）都直接结束
	if in.Stop {
		log.Infof("[QuestionnaireService] 用户主动停止问卷, user: %d, answers: %d", user.ID, len(state.Answers))
		result, err := s.finalizer.Finalize(ctx, user, state)
		if err != nil {
			return nil, err
		}
		return &SubmitOutcome{Result: result}, nil
	}

	// 只含空白的回答视为空；保存时保留用户原文
	if strings.TrimSpace(in.Answer) == "" {
		return &SubmitOutcome{Invalid: &model.QuestionView{
			Question: state.CurrentQuestion,
			Step:     state.Step,
			Error:    s.validationMessage,
		}}, nil
	}

	step := state.Step
	state.Answers = append(state.Answers, in.Answer)
	state.Step = step + 1

	if len(state.Answers) >= s.maxQuestions {
		result, err := s.finalizer.Finalize(ctx, user, state)
		if err != nil {
			return nil, err
		}
		return &SubmitOutcome{Result: result}, nil
	}

	// 按自增前的 step 奇偶交替出题：偶数用追问，奇数用自适应问题
	var next string
	if step%2 == 0 {
		next, err = s.llmClient.GenerateFollowupQuestion(ctx, state.Answers)
	} else {
		next, err = s.llmClient.GenerateAdaptiveQuestion(ctx, state.Answers, step+1, state.EmotionMemory)
	}
	if err != nil {
		return nil, fmt.Errorf("生成下一题失败: %w", err)
	}

	state.CurrentQuestion = next
	if err := s.stateRepo.Save(ctx, state); err != nil {
		return nil, err
	}
	log.Infof("[QuestionnaireService] 已记录回答, user: %d, step: %d -> %d", user.ID, step, state.Step)
	return &SubmitOutcome{}, nil
}

// ensureState 读取用户的问卷状态，不存在时创建并生成第一题。
func (s *questionnaireService) ensureState(ctx context.Context, user *model.User) (*model.QuestionnaireState, error) {
	state, err := s.stateRepo.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		if state.Answers == nil {
			state.Answers = []string{}
		}
		return state, nil
	}

	recent, err := s.entryRepo.FindByUser(ctx, user.ID, emotionMemorySize)
	if err != nil {
		return nil, fmt.Errorf("读取最近情绪记录失败: %w", err)
	}
	memory := make([]string, 0, len(recent))
	for _, e := range recent {
		memory = append(memory, e.Mood)
	}

	question, err := s.llmClient.GenerateAdaptiveQuestion(ctx, []string{}, 1, memory)
	if err != nil {
		return nil, fmt.Errorf("生成第一题失败: %w", err)
	}

	state = &model.QuestionnaireState{
		SessionID:       uuid.NewString(),
		UserID:          user.ID,
		Answers:         []string{},
		Step:            1,
		CurrentQuestion: question,
		EmotionMemory:   memory,
		CreatedAt:       time.Now(),
	}
	if err := s.stateRepo.Save(ctx, state); err != nil {
		return nil, err
	}
	log.Infof("[QuestionnaireService] 新建问卷会话, user: %d, session: %s, memory: %v", user.ID, state.SessionID, memory)
	return state, nil
}
