package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const defaultMeasurementLimit = 50

func (h *Handler) CreateNote(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	note := &model.Note{}
	if err := h.decodeRequest(e, note); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating note", zap.String("baby_id", babyID), zap.String("type", string(note.Type)))

	created, err := h.note.Create(e.Request().Context(), userID(e), babyID, note)
	if err != nil {
		l.Error("failed to create note", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, created)
}

func (h *Handler) ListNotes(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	notes, err := h.note.List(e.Request().Context(), userID(e), babyID, model.NoteType(e.QueryParam("type")))
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to list notes", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, notes)
}

func (h *Handler) UpdateNote(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	noteID, err := pathID(e, "note_id", "note")
	if err != nil {
		return h.transportError(e, err)
	}

	patch := &model.NotePatch{}
	if err := h.decodeRequest(e, patch); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating note", zap.String("note_id", noteID))

	note, err := h.note.Update(e.Request().Context(), userID(e), noteID, patch)
	if err != nil {
		l.Error("failed to update note", zap.String("note_id", noteID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, note)
}

func (h *Handler) DeleteNote(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	noteID, err := pathID(e, "note_id", "note")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("deleting note", zap.String("note_id", noteID))

	if err := h.note.Delete(e.Request().Context(), userID(e), noteID); err != nil {
		l.Error("failed to delete note", zap.String("note_id", noteID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) NoteTemplates(e echo.Context) error {
	return e.JSON(http.StatusOK, h.note.Templates())
}

func (h *Handler) CreateMeasurement(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	m := &model.Measurement{}
	if err := h.decodeRequest(e, m); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("recording measurement", zap.String("baby_id", babyID))

	created, err := h.growth.CreateMeasurement(e.Request().Context(), userID(e), babyID, m)
	if err != nil {
		l.Error("failed to record measurement", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, created)
}

func (h *Handler) ListMeasurements(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	limit, err := queryInt(e, "limit", defaultMeasurementLimit)
	if err != nil {
		return h.transportError(e, err)
	}

	ms, err := h.growth.ListMeasurements(e.Request().Context(), userID(e), babyID, limit)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to list measurements", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, ms)
}

func (h *Handler) ListMilestones(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	milestones, err := h.growth.ListMilestones(e.Request().Context(), userID(e), babyID)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to list milestones", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, milestones)
}

func (h *Handler) SetMilestone(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}
	key := e.Param("key")

	var req struct {
		AchievedAt *time.Time `json:"achieved_at"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	var achievedAt time.Time
	if req.AchievedAt != nil {
		achievedAt = *req.AchievedAt
	}

	l.Info("setting milestone", zap.String("baby_id", babyID), zap.String("milestone", key))

	milestone, err := h.growth.SetMilestone(e.Request().Context(), userID(e), babyID, key, achievedAt)
	if err != nil {
		l.Error("failed to set milestone", zap.String("baby_id", babyID), zap.String("milestone", key), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, milestone)
}

func (h *Handler) ClearMilestone(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}
	key := e.Param("key")

	l.Info("clearing milestone", zap.String("baby_id", babyID), zap.String("milestone", key))

	if err := h.growth.ClearMilestone(e.Request().Context(), userID(e), babyID, key); err != nil {
		l.Error("failed to clear milestone", zap.String("baby_id", babyID), zap.String("milestone", key), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}
