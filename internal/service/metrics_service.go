package service

import (
	"context"
	"time"

	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

// MetricsService aggregates chat metrics for administrators.
type MetricsService struct {
	chats repository.ChatRepository
}

func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

func (s *MetricsService) ChatSummary(ctx context.Context, from, to time.Time) (*model.ChatMetricsSummary, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("summarizing chat metrics", zap.Time("from", from), zap.Time("to", to))

	if !from.Before(to) {
		return nil, NewError(ErrorCodeInvalidBody, "from must be before to")
	}

	rows, err := s.chats.ListMetrics(ctx, from, to)
	if err != nil {
		l.Error("failed to list chat metrics", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list chat metrics")
	}
	return summarizeMetrics(rows, from, to), nil
}

func summarizeMetrics(rows []*repository.ChatMetrics, from, to time.Time) *model.ChatMetricsSummary {
	res := &model.ChatMetricsSummary{
		From:         from.Format(time.RFC3339),
		To:           to.Format(time.RFC3339),
		Total:        len(rows),
		ByComplexity: map[string]int{},
		ByTier:       map[int]int{},
	}
	if len(rows) == 0 {
		return res
	}

	var fallbacks, toolCalls int
	var latency int64
	for _, m := range rows {
		res.ByComplexity[m.Complexity]++
		res.ByTier[m.HistoryTier]++
		res.PromptTokens += int64(m.PromptTokens)
		res.CompletionTokens += int64(m.CompletionTokens)
		latency += m.LatencyMS
		toolCalls += m.ToolCalls
		if m.Fallback {
			fallbacks++
		}
	}

	n := float64(len(rows))
	res.FallbackRate = float64(fallbacks) / n
	res.AvgLatencyMS = float64(latency) / n
	res.AvgToolCalls = float64(toolCalls) / n
	return res
}

func (s *MetricsService) WithChatRepo(r repository.ChatRepository) *MetricsService {
	s.chats = r
	return s
}
