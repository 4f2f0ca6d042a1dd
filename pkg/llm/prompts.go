package llm

import (
	"fmt"
	"mood-diary-go/internal/config"
	"strings"
)

const defaultLanguage = "English"

const adaptiveTemplate = `You are a warm, attentive mood-journaling companion.
Ask the user exactly ONE short open question (max 25 words) that helps them describe how they feel today.
Use their previous answers and their recent moods to go deeper, but never repeat a question.
Answer in %s with the question only, no preamble.`

const followupTemplate = `You are a mood-journaling companion.
Read the user's answers so far and ask ONE short, simple follow-up question (max 20 words) about the last thing they said.
Answer in %s with the question only, no preamble.`

const analysisTemplate = `You classify a short mood-journaling conversation.
Reply with exactly one line in the form "<emotion> - <score>", where <emotion> is a single-word emotion label in %s
and <score> is an integer from 0 (very calm/low intensity) to 10 (extreme intensity).
Do not add any other text.`

type promptSet struct {
	adaptive string
	followup string
	analysis string
}

func newPromptSet(cfg config.LLMPromptConfig) promptSet {
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = defaultLanguage
	}
	ps := promptSet{
		adaptive: fmt.Sprintf(adaptiveTemplate, lang),
		followup: fmt.Sprintf(followupTemplate, lang),
		analysis: fmt.Sprintf(analysisTemplate, lang),
	}
	if cfg.Adaptive != "" {
		ps.adaptive = cfg.Adaptive
	}
	if cfg.Followup != "" {
		ps.followup = cfg.Followup
	}
	if cfg.Analysis != "" {
		ps.analysis = cfg.Analysis
	}
	return ps
}

func buildAdaptiveInput(previousAnswers []string, step int, emotionMemory []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question number: %d\n", step)
	if len(emotionMemory) > 0 {
		fmt.Fprintf(&b, "Recent moods (most recent first): %s\n", strings.Join(emotionMemory, ", "))
	} else {
		b.WriteString("Recent moods: none recorded yet\n")
	}
	writeAnswers(&b, previousAnswers, "Answers so far: none (this is the first question)")
	return b.String()
}

func buildFollowupInput(previousAnswers []string) string {
	var b strings.Builder
	writeAnswers(&b, previousAnswers, "Answers so far: none")
	return b.String()
}

func buildAnalysisInput(answers []string) string {
	var b strings.Builder
	b.WriteString("Conversation to classify.\n")
	writeAnswers(&b, answers, "Answers: none (the user stopped before answering)")
	return b.String()
}

// writeAnswers 写入编号的回答列表；列表为空时写入 emptyLine。
func writeAnswers(b *strings.Builder, answers []string, emptyLine string) {
	if len(answers) == 0 {
		b.WriteString(emptyLine + "\n")
		return
	}
	b.WriteString("Answers so far:\n")
	for i, a := range answers {
		fmt.Fprintf(b, "%d. %s\n", i+1, a)
	}
}
