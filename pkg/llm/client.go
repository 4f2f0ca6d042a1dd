// Package llm provides the language-model adapter used by the mood questionnaire.
package llm

import (
	"context"
	"errors"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/pkg/log"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrEmptyCompletion is returned when the model answers without any content.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// Client defines the three language-model operations the questionnaire relies on.
type Client interface {
	// GenerateAdaptiveQuestion 结合历史回答与近期情绪记忆生成下一个问题。
	GenerateAdaptiveQuestion(ctx context.Context, previousAnswers []string, step int, emotionMemory []string) (string, error)
	// GenerateFollowupQuestion 仅根据当前回答列表生成一个追问。
	GenerateFollowupQuestion(ctx context.Context, previousAnswers []string) (string, error)
	// AnalyzeConversation 返回形如 "<label> - <score>" 的分析结果，调用方负责解析。
	AnalyzeConversation(ctx context.Context, answers []string) (string, error)
}

type openAIClient struct {
	cfg     config.LLMConfig
	client  openai.Client
	timeout time.Duration
	prompts promptSet
}

// NewClient creates an OpenAI-compatible chat client (DeepSeek, OpenAI, ...).
// Requests are never retried; each call is bounded by cfg.Timeout().
func NewClient(cfg config.LLMConfig) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout()),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL+"/"))
	}
	return &openAIClient{
		cfg:     cfg,
		client:  openai.NewClient(opts...),
		timeout: cfg.Timeout(),
		prompts: newPromptSet(cfg.Prompt),
	}
}

func (c *openAIClient) GenerateAdaptiveQuestion(ctx context.Context, previousAnswers []string, step int, emotionMemory []string) (string, error) {
	user := buildAdaptiveInput(previousAnswers, step, emotionMemory)
	question, err := c.complete(ctx, c.prompts.adaptive, user)
	if err != nil {
		return "", fmt.Errorf("generate adaptive question (step %d): %w", step, err)
	}
	return question, nil
}

func (c *openAIClient) GenerateFollowupQuestion(ctx context.Context, previousAnswers []string) (string, error) {
	question, err := c.complete(ctx, c.prompts.followup, buildFollowupInput(previousAnswers))
	if err != nil {
		return "", fmt.Errorf("generate follow-up question: %w", err)
	}
	return question, nil
}

func (c *openAIClient) AnalyzeConversation(ctx context.Context, answers []string) (string, error) {
	result, err := c.complete(ctx, c.prompts.analysis, buildAnalysisInput(answers))
	if err != nil {
		return "", fmt.Errorf("analyze conversation: %w", err)
	}
	return result, nil
}

func (c *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	// 从全局配置注入（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		params.Temperature = openai.Float(c.cfg.Generation.Temperature)
	}
	if c.cfg.Generation.TopP != 0 {
		params.TopP = openai.Float(c.cfg.Generation.TopP)
	}
	if c.cfg.Generation.MaxTokens != 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.Generation.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	log.Infow("LLM completion finished", "model", c.cfg.Model, "latency", time.Since(start).String())
	return content, nil
}
