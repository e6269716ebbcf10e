package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/service"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const defaultStatsDays = 7

func queryInt(e echo.Context, name string, def int) (int, *service.Error) {
	raw := e.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.NewError(service.ErrorCodeInvalidBody, name+" must be an integer")
	}
	return n, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(e echo.Context, name string) (time.Time, *service.Error) {
	raw := e.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, service.NewError(service.ErrorCodeInvalidBody, name+" must be an RFC 3339 timestamp or a date")
}

func (h *Handler) CreateBaby(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name      string       `json:"name" validate:"required,min=1,max=50"`
		BirthDate string       `json:"birth_date" validate:"required,datetime=2006-01-02"`
		Gender    model.Gender `json:"gender" validate:"omitempty,oneof=boy girl"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	birth, _ := time.Parse(time.DateOnly, req.BirthDate)

	l.Info("creating baby", zap.String("name", req.Name))

	baby, err := h.baby.Create(e.Request().Context(), userID(e), &model.Baby{
		Name:      req.Name,
		BirthDate: birth,
		Gender:    req.Gender,
	})
	if err != nil {
		l.Error("failed to create baby", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, baby)
}

func (h *Handler) ListBabies(e echo.Context) error {
	babies, err := h.baby.List(e.Request().Context(), userID(e))
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to list babies", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, babies)
}

func (h *Handler) GetBaby(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	baby, err := h.baby.Get(e.Request().Context(), userID(e), babyID)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to get baby", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, baby)
}

func (h *Handler) UpdateBaby(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	patch := &model.BabyPatch{}
	if err := h.decodeRequest(e, patch); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating baby", zap.String("baby_id", babyID))

	baby, err := h.baby.Update(e.Request().Context(), userID(e), babyID, patch)
	if err != nil {
		l.Error("failed to update baby", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, baby)
}

func (h *Handler) DeleteBaby(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("deleting baby", zap.String("baby_id", babyID))

	if err := h.baby.Delete(e.Request().Context(), userID(e), babyID); err != nil {
		l.Error("failed to delete baby", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateActivity(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	activity := &model.Activity{}
	if err := h.decodeRequest(e, activity); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating activity", zap.String("baby_id", babyID), zap.String("type", string(activity.Type)))

	created, err := h.activity.Create(e.Request().Context(), userID(e), babyID, activity)
	if err != nil {
		l.Error("failed to create activity", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, created)
}

func (h *Handler) ListActivities(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	from, err := queryTime(e, "from")
	if err != nil {
		return h.transportError(e, err)
	}
	to, err := queryTime(e, "to")
	if err != nil {
		return h.transportError(e, err)
	}
	limit, err := queryInt(e, "limit", 0)
	if err != nil {
		return h.transportError(e, err)
	}

	activities, err := h.activity.List(e.Request().Context(), userID(e), babyID, model.ActivityFilter{
		From:  from,
		To:    to,
		Type:  model.ActivityType(e.QueryParam("type")),
		Limit: limit,
	})
	if err != nil {
		l.Error("failed to list activities", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, activities)
}

func (h *Handler) UpdateActivity(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	activityID, err := pathID(e, "activity_id", "activity")
	if err != nil {
		return h.transportError(e, err)
	}

	patch := &model.ActivityPatch{}
	if err := h.decodeRequest(e, patch); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating activity", zap.String("activity_id", activityID))

	activity, err := h.activity.Update(e.Request().Context(), userID(e), activityID, patch)
	if err != nil {
		l.Error("failed to update activity", zap.String("activity_id", activityID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, activity)
}

func (h *Handler) DeleteActivity(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	activityID, err := pathID(e, "activity_id", "activity")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("deleting activity", zap.String("activity_id", activityID))

	if err := h.activity.Delete(e.Request().Context(), userID(e), activityID); err != nil {
		l.Error("failed to delete activity", zap.String("activity_id", activityID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) DailyStats(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	days, err := queryInt(e, "days", defaultStatsDays)
	if err != nil {
		return h.transportError(e, err)
	}

	stats, err := h.activity.DailyStats(e.Request().Context(), userID(e), babyID, days)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to get daily stats", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, stats)
}
