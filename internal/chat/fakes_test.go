package chat

import (
	"context"
	"iter"
	"sync"

	"github.com/yakoovad/babylog/internal/model"
	"google.golang.org/genai"
)

type streamItem struct {
	resp *genai.GenerateContentResponse
	err  error
}

type generateCall struct {
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

type fakeModel struct {
	mu sync.Mutex

	// generate answers the n-th Generate call (starting at 0) for a model.
	generate func(n int, call generateCall) (*genai.GenerateContentResponse, error)
	streams  [][]streamItem

	generateCalls []generateCall
	streamCalls   int
}

func (f *fakeModel) Generate(_ context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	call := generateCall{model: modelName, contents: append([]*genai.Content(nil), contents...), cfg: cfg}
	n := 0
	for _, c := range f.generateCalls {
		if c.model == modelName {
			n++
		}
	}
	f.generateCalls = append(f.generateCalls, call)
	f.mu.Unlock()

	return f.generate(n, call)
}

func (f *fakeModel) Stream(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.mu.Lock()
	var items []streamItem
	if f.streamCalls < len(f.streams) {
		items = f.streams[f.streamCalls]
	}
	f.streamCalls++
	f.mu.Unlock()

	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, item := range items {
			if !yield(item.resp, item.err) {
				return
			}
		}
	}
}

func (f *fakeModel) callsFor(modelName string) []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []generateCall
	for _, c := range f.generateCalls {
		if c.model == modelName {
			calls = append(calls, c)
		}
	}
	return calls
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     10,
			CandidatesTokenCount: 5,
		},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromParts([]*genai.Part{{
				FunctionCall: &genai.FunctionCall{ID: "call-" + name, Name: name, Args: args},
			}}, genai.RoleModel),
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     20,
			CandidatesTokenCount: 3,
		},
	}
}

type fakeStore struct {
	mu sync.Mutex

	history []*model.ChatMessage
	saved   []*model.ChatMessage
	metrics []*model.ChatMetrics

	historyErr error
	saveErr    error
	metricsErr error

	historyLimit int
}

func (s *fakeStore) RecentMessages(_ context.Context, _, _ string, limit int) ([]*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historyLimit = limit
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	if len(s.history) > limit {
		return s.history[len(s.history)-limit:], nil
	}
	return s.history, nil
}

func (s *fakeStore) SaveMessage(_ context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, msg)
	return nil
}

func (s *fakeStore) SaveMetrics(_ context.Context, m *model.ChatMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metricsErr != nil {
		return s.metricsErr
	}
	s.metrics = append(s.metrics, m)
	return nil
}

type fakeData struct {
	activities   []*model.Activity
	stats        []*model.DailyStats
	measurements []*model.Measurement
	err          error

	activityType model.ActivityType
	days         int
	limit        int
}

func (d *fakeData) RecentActivities(_ context.Context, _ string, activityType model.ActivityType, days int) ([]*model.Activity, error) {
	d.activityType = activityType
	d.days = days
	return d.activities, d.err
}

func (d *fakeData) DailyStats(_ context.Context, _ string, days int) ([]*model.DailyStats, error) {
	d.days = days
	return d.stats, d.err
}

func (d *fakeData) Measurements(_ context.Context, _ string, limit int) ([]*model.Measurement, error) {
	d.limit = limit
	return d.measurements, d.err
}
