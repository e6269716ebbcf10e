package chat

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// Model is the subset of the generative API the orchestrator talks to.
type Model interface {
	Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Stream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type GenAIModel struct {
	client *genai.Client
}

func NewGenAIModel(ctx context.Context, apiKey string) (*GenAIModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	return &GenAIModel{client: client}, nil
}

func (m *GenAIModel) Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, contents, cfg)
}

func (m *GenAIModel) Stream(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return m.client.Models.GenerateContentStream(ctx, model, contents, cfg)
}

// usage accumulates token counts across the calls of one answer.
type usage struct {
	prompt     int
	completion int
}

func (u *usage) add(resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	u.prompt += int(resp.UsageMetadata.PromptTokenCount)
	u.completion += int(resp.UsageMetadata.CandidatesTokenCount)
}
