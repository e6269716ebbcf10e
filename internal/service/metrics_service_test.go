package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/babylog/internal/repository"
)

func TestMetricsService_ChatSummary(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		from, to      time.Time
		setupMocks    func(*MockChatRepository)
		expectedError bool
		errorCode     ErrorCode
		expectedTotal int
	}{
		{
			name: "success",
			from: from,
			to:   to,
			setupMocks: func(cr *MockChatRepository) {
				cr.On("ListMetrics", mock.Anything, from, to).Return([]*repository.ChatMetrics{
					{Complexity: "simple", HistoryTier: 1, PromptTokens: 100, CompletionTokens: 40, LatencyMS: 800},
					{Complexity: "complex", HistoryTier: 3, PromptTokens: 900, CompletionTokens: 200, LatencyMS: 3200, ToolCalls: 2, Fallback: true},
				}, nil)
			},
			expectedTotal: 2,
		},
		{
			name:          "failure: empty range",
			from:          to,
			to:            from,
			setupMocks:    func(cr *MockChatRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name: "failure: repository error",
			from: from,
			to:   to,
			setupMocks: func(cr *MockChatRepository) {
				cr.On("ListMetrics", mock.Anything, from, to).Return(nil, errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockChatRepo := new(MockChatRepository)
			tt.setupMocks(mockChatRepo)

			service := NewMetricsService().WithChatRepo(mockChatRepo)

			got, err := service.ChatSummary(context.Background(), tt.from, tt.to)

			if tt.expectedError {
				assert.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				assert.Nil(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.expectedTotal, got.Total)
			}

			mockChatRepo.AssertExpectations(t)
		})
	}
}

func TestSummarizeMetrics(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	t.Run("empty window", func(t *testing.T) {
		got := summarizeMetrics(nil, from, to)
		assert.Zero(t, got.Total)
		assert.Zero(t, got.FallbackRate)
		assert.NotNil(t, got.ByComplexity)
		assert.Equal(t, "2025-03-01T00:00:00Z", got.From)
	})

	t.Run("aggregates", func(t *testing.T) {
		rows := []*repository.ChatMetrics{
			{Complexity: "simple", HistoryTier: 1, PromptTokens: 100, CompletionTokens: 40, LatencyMS: 800},
			{Complexity: "simple", HistoryTier: 3, PromptTokens: 300, CompletionTokens: 60, LatencyMS: 1200},
			{Complexity: "complex", HistoryTier: 2, PromptTokens: 900, CompletionTokens: 200, LatencyMS: 4000, ToolCalls: 3, Fallback: true},
			{Complexity: "complex", HistoryTier: 1, PromptTokens: 700, CompletionTokens: 100, LatencyMS: 2000, ToolCalls: 1},
		}

		got := summarizeMetrics(rows, from, to)

		assert.Equal(t, 4, got.Total)
		assert.Equal(t, map[string]int{"simple": 2, "complex": 2}, got.ByComplexity)
		assert.Equal(t, map[int]int{1: 2, 2: 1, 3: 1}, got.ByTier)
		assert.InDelta(t, 0.25, got.FallbackRate, 1e-9)
		assert.InDelta(t, 2000.0, got.AvgLatencyMS, 1e-9)
		assert.InDelta(t, 1.0, got.AvgToolCalls, 1e-9)
		assert.Equal(t, int64(2000), got.PromptTokens)
		assert.Equal(t, int64(400), got.CompletionTokens)
	})
}
