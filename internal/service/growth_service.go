package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

// GrowthService manages growth measurements and milestone progress.
type GrowthService struct {
	families repository.FamilyRepository
	babies   repository.BabyRepository
	growth   repository.GrowthRepository

	now func() time.Time
}

func NewGrowthService() *GrowthService {
	return &GrowthService{now: time.Now}
}

func toModelMeasurement(m *repository.Measurement) *model.Measurement {
	return &model.Measurement{
		ID:         m.ID,
		BabyID:     m.BabyID,
		MeasuredAt: m.MeasuredAt,
		WeightKg:   m.WeightKg,
		HeightCm:   m.HeightCm,
		HeadCm:     m.HeadCm,
	}
}

func (s *GrowthService) CreateMeasurement(ctx context.Context, userID, babyID string, m *model.Measurement) (*model.Measurement, *Error) {
	l := logger.FromContext(ctx)
	l.Info("recording measurement", zap.String("baby_id", babyID))

	if m.WeightKg == nil && m.HeightCm == nil && m.HeadCm == nil {
		return nil, NewError(ErrorCodeInvalidBody, "at least one of weight_kg, height_cm, head_cm is required")
	}
	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	row := &repository.Measurement{
		ID:         uuid.NewString(),
		BabyID:     babyID,
		MeasuredAt: m.MeasuredAt,
		WeightKg:   m.WeightKg,
		HeightCm:   m.HeightCm,
		HeadCm:     m.HeadCm,
	}
	if err := s.growth.CreateMeasurement(ctx, row); err != nil {
		l.Error("failed to create measurement", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to record measurement")
	}
	return toModelMeasurement(row), nil
}

func (s *GrowthService) ListMeasurements(ctx context.Context, userID, babyID string, limit int) ([]*model.Measurement, *Error) {
	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}
	return s.measurements(ctx, babyID, limit)
}

func (s *GrowthService) measurements(ctx context.Context, babyID string, limit int) ([]*model.Measurement, *Error) {
	rows, err := s.growth.ListMeasurements(ctx, babyID, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list measurements", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list measurements")
	}

	res := make([]*model.Measurement, 0, len(rows))
	for _, row := range rows {
		res = append(res, toModelMeasurement(row))
	}
	return res, nil
}

func (s *GrowthService) ListMilestones(ctx context.Context, userID, babyID string) ([]*model.Milestone, *Error) {
	l := logger.FromContext(ctx)

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	rows, err := s.growth.ListMilestones(ctx, babyID)
	if err != nil {
		l.Error("failed to list milestones", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list milestones")
	}

	res := make([]*model.Milestone, 0, len(rows))
	for _, row := range rows {
		res = append(res, &model.Milestone{Key: row.Key, AchievedAt: row.AchievedAt})
	}
	return res, nil
}

// SetMilestone marks key as achieved; a zero achievedAt means today.
func (s *GrowthService) SetMilestone(ctx context.Context, userID, babyID, key string, achievedAt time.Time) (*model.Milestone, *Error) {
	l := logger.FromContext(ctx)
	l.Info("setting milestone", zap.String("baby_id", babyID), zap.String("milestone", key))

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}
	if achievedAt.IsZero() {
		achievedAt = s.now()
	}

	err := s.growth.UpsertMilestone(ctx, &repository.Milestone{BabyID: babyID, Key: key, AchievedAt: achievedAt})
	if err != nil {
		l.Error("failed to set milestone", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to set milestone")
	}
	return &model.Milestone{Key: key, AchievedAt: achievedAt}, nil
}

func (s *GrowthService) ClearMilestone(ctx context.Context, userID, babyID, key string) *Error {
	l := logger.FromContext(ctx)
	l.Info("clearing milestone", zap.String("baby_id", babyID), zap.String("milestone", key))

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return serr
	}

	err := s.growth.DeleteMilestone(ctx, babyID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "milestone not set")
	}
	if err != nil {
		l.Error("failed to clear milestone", zap.String("baby_id", babyID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to clear milestone")
	}
	return nil
}

func (s *GrowthService) WithFamilyRepo(r repository.FamilyRepository) *GrowthService {
	s.families = r
	return s
}

func (s *GrowthService) WithBabyRepo(r repository.BabyRepository) *GrowthService {
	s.babies = r
	return s
}

func (s *GrowthService) WithGrowthRepo(r repository.GrowthRepository) *GrowthService {
	s.growth = r
	return s
}
