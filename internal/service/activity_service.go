package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const (
	MaxStatsDays = 31

	minTemperatureC = 30.0
	maxTemperatureC = 45.0
)

// StatsCache stores computed daily stats per baby and window.
type StatsCache interface {
	Get(ctx context.Context, babyID, day string, days int) ([]*model.DailyStats, int64, bool, error)
	Set(ctx context.Context, babyID string, version int64, day string, days int, stats []*model.DailyStats) error
	Invalidate(ctx context.Context, babyID string) error
}

type ActivityService struct {
	tx db.Transactor

	families   repository.FamilyRepository
	babies     repository.BabyRepository
	activities repository.ActivityRepository
	cache      StatsCache

	loc *time.Location
	now func() time.Time
}

func NewActivityService(tx db.Transactor) *ActivityService {
	return &ActivityService{
		tx:  tx,
		loc: time.UTC,
		now: time.Now,
	}
}

func toModelActivity(a *repository.Activity) *model.Activity {
	res := &model.Activity{
		ID:           a.ID,
		BabyID:       a.BabyID,
		Type:         a.Type,
		StartedAt:    a.StartedAt,
		EndedAt:      a.EndedAt,
		FeedingKind:  a.FeedingKind,
		AmountML:     a.AmountML,
		DiaperKind:   a.DiaperKind,
		MedicineName: a.MedicineName,
		Dose:         a.Dose,
		TemperatureC: a.TemperatureC,
		Memo:         a.Memo,
		CreatedAt:    a.CreatedAt,
	}
	if a.CreatedBy != nil {
		res.CreatedBy = *a.CreatedBy
	}
	return res
}

func toRepoActivity(a *model.Activity) *repository.Activity {
	res := &repository.Activity{
		ID:           a.ID,
		BabyID:       a.BabyID,
		Type:         a.Type,
		StartedAt:    a.StartedAt,
		EndedAt:      a.EndedAt,
		FeedingKind:  a.FeedingKind,
		AmountML:     a.AmountML,
		DiaperKind:   a.DiaperKind,
		MedicineName: a.MedicineName,
		Dose:         a.Dose,
		TemperatureC: a.TemperatureC,
		Memo:         a.Memo,
		CreatedAt:    a.CreatedAt,
	}
	if a.CreatedBy != "" {
		res.CreatedBy = &a.CreatedBy
	}
	return res
}

// validateActivity checks the fields each activity type requires.
func validateActivity(a *model.Activity) *Error {
	if !a.Type.Valid() {
		return NewError(ErrorCodeInvalidBody, fmt.Sprintf("unknown activity type %q", a.Type))
	}
	if a.EndedAt != nil && a.EndedAt.Before(a.StartedAt) {
		return NewError(ErrorCodeInvalidBody, "ended_at must not be before started_at")
	}

	switch a.Type {
	case model.ActivityFeeding:
		if a.FeedingKind == nil {
			return NewError(ErrorCodeInvalidBody, "feeding_kind is required for feeding")
		}
	case model.ActivityDiaper:
		if a.DiaperKind == nil {
			return NewError(ErrorCodeInvalidBody, "diaper_kind is required for diaper")
		}
	case model.ActivityMedicine:
		if a.MedicineName == nil || *a.MedicineName == "" {
			return NewError(ErrorCodeInvalidBody, "medicine_name is required for medicine")
		}
	case model.ActivityTemperature:
		if a.TemperatureC == nil {
			return NewError(ErrorCodeInvalidBody, "temperature_c is required for temperature")
		}
		if *a.TemperatureC < minTemperatureC || *a.TemperatureC > maxTemperatureC {
			return NewError(ErrorCodeInvalidBody, "temperature_c must be between 30 and 45")
		}
	}
	return nil
}

func (s *ActivityService) Create(ctx context.Context, userID, babyID string, activity *model.Activity) (*model.Activity, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating activity", zap.String("baby_id", babyID), zap.String("type", string(activity.Type)))

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}
	if serr := validateActivity(activity); serr != nil {
		return nil, serr
	}

	activity.ID = uuid.NewString()
	activity.BabyID = babyID
	activity.CreatedBy = userID

	row := toRepoActivity(activity)
	if err := s.activities.Create(ctx, row); err != nil {
		l.Error("failed to create activity", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create activity")
	}
	s.invalidate(ctx, babyID)

	return toModelActivity(row), nil
}

func (s *ActivityService) List(ctx context.Context, userID, babyID string, filter model.ActivityFilter) ([]*model.Activity, *Error) {
	l := logger.FromContext(ctx)

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, NewError(ErrorCodeInvalidBody, fmt.Sprintf("unknown activity type %q", filter.Type))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, NewError(ErrorCodeInvalidBody, "from must be before to")
	}

	rows, err := s.activities.List(ctx, repository.ActivityFilter{
		BabyID: babyID,
		From:   filter.From,
		To:     filter.To,
		Type:   filter.Type,
		Limit:  filter.Limit,
	})
	if err != nil {
		l.Error("failed to list activities", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list activities")
	}

	res := make([]*model.Activity, 0, len(rows))
	for _, row := range rows {
		res = append(res, toModelActivity(row))
	}
	return res, nil
}

func (s *ActivityService) Update(ctx context.Context, userID, activityID string, patch *model.ActivityPatch) (*model.Activity, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating activity", zap.String("activity_id", activityID))

	row, serr := s.accessibleActivity(ctx, userID, activityID)
	if serr != nil {
		return nil, serr
	}

	activity := toModelActivity(row)
	patch.Apply(activity)
	if serr := validateActivity(activity); serr != nil {
		return nil, serr
	}

	updated := toRepoActivity(activity)
	err := s.activities.Update(ctx, updated)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "activity not found")
	}
	if err != nil {
		l.Error("failed to update activity", zap.String("activity_id", activityID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update activity")
	}
	s.invalidate(ctx, row.BabyID)

	return activity, nil
}

func (s *ActivityService) Delete(ctx context.Context, userID, activityID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("deleting activity", zap.String("activity_id", activityID))

	row, serr := s.accessibleActivity(ctx, userID, activityID)
	if serr != nil {
		return serr
	}

	err := s.activities.Delete(ctx, activityID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "activity not found")
	}
	if err != nil {
		l.Error("failed to delete activity", zap.String("activity_id", activityID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete activity")
	}
	s.invalidate(ctx, row.BabyID)
	return nil
}

func (s *ActivityService) accessibleActivity(ctx context.Context, userID, activityID string) (*repository.Activity, *Error) {
	row, err := s.activities.Get(ctx, activityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "activity not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get activity", zap.String("activity_id", activityID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get activity")
	}

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, row.BabyID); serr != nil {
		return nil, serr
	}
	return row, nil
}

func (s *ActivityService) invalidate(ctx context.Context, babyID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, babyID); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate stats cache", zap.String("baby_id", babyID), zap.Error(err))
	}
}

// DailyStats returns one entry per local calendar day, oldest first, ending today.
func (s *ActivityService) DailyStats(ctx context.Context, userID, babyID string, days int) ([]*model.DailyStats, *Error) {
	if days < 1 || days > MaxStatsDays {
		return nil, NewError(ErrorCodeInvalidBody, fmt.Sprintf("days must be between 1 and %d", MaxStatsDays))
	}
	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	stats, err := s.dailyStats(ctx, babyID, days)
	if err != nil {
		logger.FromContext(ctx).Error("failed to compute daily stats", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to compute daily stats")
	}
	return stats, nil
}

func (s *ActivityService) dailyStats(ctx context.Context, babyID string, days int) ([]*model.DailyStats, error) {
	l := logger.FromContext(ctx)

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	day := today.Format(time.DateOnly)

	// the cache is only filled when the version was read before the query
	fill := false
	var version int64
	if s.cache != nil {
		stats, v, ok, err := s.cache.Get(ctx, babyID, day, days)
		if err != nil {
			l.Warn("failed to read stats cache", zap.String("baby_id", babyID), zap.Error(err))
		}
		if ok {
			return stats, nil
		}
		fill, version = err == nil, v
	}

	from := today.AddDate(0, 0, -(days - 1))
	rows, err := s.activities.List(ctx, repository.ActivityFilter{
		BabyID: babyID,
		From:   from,
		To:     today.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list activities")
	}

	activities := make([]*model.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, toModelActivity(row))
	}
	stats := aggregateDaily(activities, from, days, s.loc)

	if fill {
		if err := s.cache.Set(ctx, babyID, version, day, days, stats); err != nil {
			l.Warn("failed to write stats cache", zap.String("baby_id", babyID), zap.Error(err))
		}
	}
	return stats, nil
}

// aggregateDaily buckets activities by the local day they started on. Sleep is
// credited in full to the day it started.
func aggregateDaily(activities []*model.Activity, from time.Time, days int, loc *time.Location) []*model.DailyStats {
	stats := make([]*model.DailyStats, days)
	index := make(map[string]*model.DailyStats, days)
	for i := range stats {
		d := from.AddDate(0, 0, i).Format(time.DateOnly)
		stats[i] = &model.DailyStats{Date: d}
		index[d] = stats[i]
	}

	for _, a := range activities {
		st, ok := index[a.StartedAt.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}

		switch a.Type {
		case model.ActivityFeeding:
			st.FeedingCount++
			if a.AmountML != nil {
				st.FeedingAmountML += *a.AmountML
			}
		case model.ActivitySleep:
			st.SleepMinutes += int(a.Duration().Minutes())
		case model.ActivityDiaper:
			st.DiaperCount++
		case model.ActivityMedicine:
			st.MedicineCount++
		case model.ActivityTemperature:
			if a.TemperatureC != nil && (st.MaxTemperatureC == nil || *a.TemperatureC > *st.MaxTemperatureC) {
				t := *a.TemperatureC
				st.MaxTemperatureC = &t
			}
		}
	}
	return stats
}

func (s *ActivityService) WithFamilyRepo(r repository.FamilyRepository) *ActivityService {
	s.families = r
	return s
}

func (s *ActivityService) WithBabyRepo(r repository.BabyRepository) *ActivityService {
	s.babies = r
	return s
}

func (s *ActivityService) WithActivityRepo(r repository.ActivityRepository) *ActivityService {
	s.activities = r
	return s
}

func (s *ActivityService) WithStatsCache(c StatsCache) *ActivityService {
	s.cache = c
	return s
}

func (s *ActivityService) WithLocation(loc *time.Location) *ActivityService {
	s.loc = loc
	return s
}
