package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
)

func TestChatService_Send(t *testing.T) {
	result := &chat.Result{
		Reply:      "오늘은 분유를 세 번, 총 450ml 먹었어요.",
		Complexity: chat.Complex,
		History:    chat.HistoryDecision{Count: 0, Tier: 1},
		Model:      "gemini-2.5-flash",
		ToolCalls:  1,
	}

	tests := []struct {
		name          string
		message       string
		setupMocks    func(*MockFamilyRepository, *MockBabyRepository, *MockAnswerer)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:    "success: message is trimmed and answered",
			message: "  오늘 분유 얼마나 먹었어?  ",
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {
				expectBabyAccess(fr, br)
				a.On("Answer", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
					return req.UserID == "u1" && req.Baby.ID == "b1" && req.Baby.Name == "하늘" &&
						req.Message == "오늘 분유 얼마나 먹었어?"
				}), mock.Anything).Return(result, nil)
			},
		},
		{
			name:          "failure: empty message",
			message:       "   ",
			setupMocks:    func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:          "failure: message too long",
			message:       strings.Repeat("가", 21),
			setupMocks:    func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:    "failure: baby of another family",
			message: "안녕",
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {
				br.On("Get", mock.Anything, "b1").Return(&repository.Baby{ID: "b1", FamilyID: "f2"}, nil)
				fr.On("GetMembership", mock.Anything, "u1").Return(&repository.FamilyMember{FamilyID: "f1", UserID: "u1"}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeForbidden,
		},
		{
			name:    "failure: client went away",
			message: "안녕",
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {
				expectBabyAccess(fr, br)
				a.On("Answer", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, &chat.EmitError{Err: errors.New("broken pipe")})
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
		{
			name:    "failure: history could not be saved",
			message: "안녕",
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, a *MockAnswerer) {
				expectBabyAccess(fr, br)
				a.On("Answer", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeUnspecified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFamilyRepo := new(MockFamilyRepository)
			mockBabyRepo := new(MockBabyRepository)
			mockAnswerer := new(MockAnswerer)
			tt.setupMocks(mockFamilyRepo, mockBabyRepo, mockAnswerer)

			service := NewChatService(20).
				WithFamilyRepo(mockFamilyRepo).
				WithBabyRepo(mockBabyRepo).
				WithAnswerer(mockAnswerer)

			got, err := service.Send(context.Background(), "u1", "b1", tt.message, func(string) error { return nil })

			if tt.expectedError {
				assert.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				assert.Nil(t, err)
				assert.Same(t, result, got)
			}

			mockAnswerer.AssertExpectations(t)
		})
	}
}

func TestChatService_History(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		expectedLimit int
	}{
		{name: "default limit", limit: 0, expectedLimit: defaultHistoryLimit},
		{name: "explicit limit", limit: 10, expectedLimit: 10},
		{name: "limit is capped", limit: 5000, expectedLimit: maxHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFamilyRepo := new(MockFamilyRepository)
			mockBabyRepo := new(MockBabyRepository)
			mockChatRepo := new(MockChatRepository)

			expectBabyAccess(mockFamilyRepo, mockBabyRepo)
			mockChatRepo.On("ListRecent", mock.Anything, "b1", "u1", tt.expectedLimit).Return([]*repository.ChatMessage{
				{ID: "m1", Role: model.ChatRoleUser, Content: "안녕"},
				{ID: "m2", Role: model.ChatRoleAssistant, Content: "안녕하세요!"},
			}, nil)

			service := NewChatService(500).
				WithFamilyRepo(mockFamilyRepo).
				WithBabyRepo(mockBabyRepo).
				WithChatRepo(mockChatRepo)

			got, err := service.History(context.Background(), "u1", "b1", tt.limit)

			assert.Nil(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, model.ChatRoleAssistant, got[1].Role)
			mockChatRepo.AssertExpectations(t)
		})
	}
}

func TestChatService_ClearHistory(t *testing.T) {
	tests := []struct {
		name          string
		repoCount     int64
		repoErr       error
		expectedError bool
	}{
		{name: "success", repoCount: 12},
		{name: "failure: repository error", repoErr: errors.New("db error"), expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFamilyRepo := new(MockFamilyRepository)
			mockBabyRepo := new(MockBabyRepository)
			mockChatRepo := new(MockChatRepository)

			expectBabyAccess(mockFamilyRepo, mockBabyRepo)
			mockChatRepo.On("DeleteConversation", mock.Anything, "b1", "u1").Return(tt.repoCount, tt.repoErr)

			service := NewChatService(500).
				WithFamilyRepo(mockFamilyRepo).
				WithBabyRepo(mockBabyRepo).
				WithChatRepo(mockChatRepo)

			got, err := service.ClearHistory(context.Background(), "u1", "b1")

			if tt.expectedError {
				assert.NotNil(t, err)
				assert.Equal(t, ErrorCodeUnspecified, err.Code)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, tt.repoCount, got)
			}
		})
	}
}

func TestChatStore(t *testing.T) {
	mockChatRepo := new(MockChatRepository)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mockChatRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *repository.ChatMessage) bool {
		return m.ID == "m1" && m.Role == model.ChatRoleUser
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*repository.ChatMessage).CreatedAt = created
	}).Return(nil)
	mockChatRepo.On("CreateMetrics", mock.Anything, mock.MatchedBy(func(m *repository.ChatMetrics) bool {
		return m.LatencyMS == 1500 && m.HistoryTier == 3 && m.Fallback
	})).Return(nil)

	store := NewChatStore(mockChatRepo)

	msg := &model.ChatMessage{ID: "m1", BabyID: "b1", UserID: "u1", Role: model.ChatRoleUser, Content: "안녕"}
	require.NoError(t, store.SaveMessage(context.Background(), msg))
	assert.Equal(t, created, msg.CreatedAt)

	err := store.SaveMetrics(context.Background(), &model.ChatMetrics{
		ID: "x1", HistoryTier: 3, HistoryCount: 3, Latency: 1500 * time.Millisecond, Fallback: true,
	})
	require.NoError(t, err)

	mockChatRepo.AssertExpectations(t)
}

func TestChatDataSource(t *testing.T) {
	mockActivityRepo := new(MockActivityRepository)
	mockGrowthRepo := new(MockGrowthRepository)

	activities := NewActivityService(new(MockTransactor)).WithActivityRepo(mockActivityRepo)
	activities.now = func() time.Time { return testNow }
	growth := NewGrowthService().WithGrowthRepo(mockGrowthRepo)

	mockActivityRepo.On("List", mock.Anything, repository.ActivityFilter{
		BabyID: "b1",
		From:   testNow.Add(-3 * 24 * time.Hour),
		Type:   model.ActivityFeeding,
		Limit:  toolActivityLimit,
	}).Return([]*repository.Activity{
		{ID: "a1", BabyID: "b1", Type: model.ActivityFeeding, StartedAt: testNow, AmountML: ptr(120)},
	}, nil)
	mockGrowthRepo.On("ListMeasurements", mock.Anything, "b1", 5).Return(nil, errors.New("db error"))

	data := NewChatDataSource(activities, growth)

	got, err := data.RecentActivities(context.Background(), "b1", model.ActivityFeeding, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 120, *got[0].AmountML)

	ms, err := data.Measurements(context.Background(), "b1", 5)
	assert.Error(t, err)
	assert.Nil(t, ms)

	mockActivityRepo.AssertExpectations(t)
	mockGrowthRepo.AssertExpectations(t)
}
