package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
)

func newTestGrowthService(fr *MockFamilyRepository, br *MockBabyRepository, gr *MockGrowthRepository) *GrowthService {
	svc := NewGrowthService().
		WithFamilyRepo(fr).
		WithBabyRepo(br).
		WithGrowthRepo(gr)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestGrowthService_CreateMeasurement(t *testing.T) {
	tests := []struct {
		name          string
		measurement   *model.Measurement
		setupMocks    func(*MockFamilyRepository, *MockBabyRepository, *MockGrowthRepository)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:        "success: weight only",
			measurement: &model.Measurement{MeasuredAt: testNow, WeightKg: ptr(6.4)},
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, gr *MockGrowthRepository) {
				expectBabyAccess(fr, br)
				gr.On("CreateMeasurement", mock.Anything, mock.MatchedBy(func(m *repository.Measurement) bool {
					return m.BabyID == "b1" && m.WeightKg != nil && *m.WeightKg == 6.4 && m.HeightCm == nil
				})).Return(nil)
			},
		},
		{
			name:          "failure: no values",
			measurement:   &model.Measurement{MeasuredAt: testNow},
			setupMocks:    func(fr *MockFamilyRepository, br *MockBabyRepository, gr *MockGrowthRepository) {},
			expectedError: true,
			errorCode:     ErrorCodeInvalidBody,
		},
		{
			name:        "failure: baby not found",
			measurement: &model.Measurement{MeasuredAt: testNow, HeightCm: ptr(61.0)},
			setupMocks: func(fr *MockFamilyRepository, br *MockBabyRepository, gr *MockGrowthRepository) {
				br.On("Get", mock.Anything, "b1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFamilyRepo := new(MockFamilyRepository)
			mockBabyRepo := new(MockBabyRepository)
			mockGrowthRepo := new(MockGrowthRepository)
			tt.setupMocks(mockFamilyRepo, mockBabyRepo, mockGrowthRepo)

			service := newTestGrowthService(mockFamilyRepo, mockBabyRepo, mockGrowthRepo)

			got, err := service.CreateMeasurement(context.Background(), "u1", "b1", tt.measurement)

			if tt.expectedError {
				assert.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				assert.Nil(t, err)
				require.NotNil(t, got)
				assert.NotEmpty(t, got.ID)
			}

			mockGrowthRepo.AssertExpectations(t)
		})
	}
}

func TestGrowthService_SetMilestone(t *testing.T) {
	tests := []struct {
		name       string
		achievedAt time.Time
		expected   time.Time
	}{
		{
			name:       "explicit date",
			achievedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			expected:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "zero date means now",
			expected: testNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFamilyRepo := new(MockFamilyRepository)
			mockBabyRepo := new(MockBabyRepository)
			mockGrowthRepo := new(MockGrowthRepository)

			expectBabyAccess(mockFamilyRepo, mockBabyRepo)
			mockGrowthRepo.On("UpsertMilestone", mock.Anything, &repository.Milestone{
				BabyID: "b1", Key: "first_smile", AchievedAt: tt.expected,
			}).Return(nil)

			service := newTestGrowthService(mockFamilyRepo, mockBabyRepo, mockGrowthRepo)

			got, err := service.SetMilestone(context.Background(), "u1", "b1", "first_smile", tt.achievedAt)

			assert.Nil(t, err)
			assert.Equal(t, "first_smile", got.Key)
			assert.True(t, tt.expected.Equal(got.AchievedAt))
			mockGrowthRepo.AssertExpectations(t)
		})
	}
}

func TestGrowthService_ClearMilestone(t *testing.T) {
	mockFamilyRepo := new(MockFamilyRepository)
	mockBabyRepo := new(MockBabyRepository)
	mockGrowthRepo := new(MockGrowthRepository)

	expectBabyAccess(mockFamilyRepo, mockBabyRepo)
	mockGrowthRepo.On("DeleteMilestone", mock.Anything, "b1", "rolls_over").Return(repository.ErrNotFound)

	service := newTestGrowthService(mockFamilyRepo, mockBabyRepo, mockGrowthRepo)

	err := service.ClearMilestone(context.Background(), "u1", "b1", "rolls_over")

	require.NotNil(t, err)
	assert.Equal(t, ErrorCodeNotFound, err.Code)
}
