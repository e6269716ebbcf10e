package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const summaryInstruction = "다음은 육아 상담 AI가 이전에 한 답변입니다. 핵심 조언과 수치만 남겨 세 문장 이내로 요약하세요. 원문과 같은 언어로 쓰고 요약문만 출력하세요."

// Summarizer condenses long assistant replies before they are replayed as history.
type Summarizer struct {
	model     Model
	modelName string
	backoff   Backoff
}

func NewSummarizer(m Model, modelName string, backoff Backoff) *Summarizer {
	return &Summarizer{model: m, modelName: modelName, backoff: backoff}
}

// Summarize returns an empty string when the model fails or answers with nothing.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summaryInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   256,
	}

	var resp *genai.GenerateContentResponse
	err := s.backoff.Do(ctx, func() error {
		var err error
		resp, err = s.model.Generate(ctx, s.modelName, []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to summarize chat reply", zap.Error(err))
		return ""
	}
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text())
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
