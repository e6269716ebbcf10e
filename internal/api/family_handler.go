package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) GetMe(e echo.Context) error {
	me, err := h.user.GetMe(e.Request().Context(), userID(e))
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to get profile", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, me)
}

func (h *Handler) UpdateSettings(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	settings := &model.UserSettings{}
	if err := h.decodeRequest(e, settings); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("updating settings", zap.String("timezone", settings.Timezone), zap.String("language", settings.Language))

	updated, err := h.user.UpdateSettings(e.Request().Context(), userID(e), settings)
	if err != nil {
		l.Error("failed to update settings", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteAccount(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	l.Info("deleting account")

	if err := h.user.DeleteAccount(e.Request().Context(), userID(e)); err != nil {
		l.Error("failed to delete account", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateFamily(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name string `json:"name" validate:"required,min=1,max=50"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating family", zap.String("name", req.Name))

	family, err := h.family.CreateFamily(e.Request().Context(), userID(e), req.Name)
	if err != nil {
		l.Error("failed to create family", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, family)
}

func (h *Handler) GetMyFamily(e echo.Context) error {
	family, err := h.family.GetMyFamily(e.Request().Context(), userID(e))
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to get family", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, family)
}

func (h *Handler) JoinFamily(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Code string `json:"code" validate:"required,len=8,alphanum"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("joining family")

	family, err := h.family.JoinFamily(e.Request().Context(), userID(e), req.Code)
	if err != nil {
		l.Error("failed to join family", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, family)
}

func (h *Handler) RegenerateInviteCode(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	l.Info("regenerating invite code")

	family, err := h.family.RegenerateInviteCode(e.Request().Context(), userID(e))
	if err != nil {
		l.Error("failed to regenerate invite code", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, family)
}

func (h *Handler) SendInvite(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("sending invite", zap.String("email", req.Email))

	if err := h.family.SendInvite(e.Request().Context(), userID(e), req.Email); err != nil {
		l.Error("failed to send invite", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusAccepted)
}

func (h *Handler) RemoveMember(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	memberID := e.Param("user_id")

	l.Info("removing family member", zap.String("member_id", memberID))

	if err := h.family.RemoveMember(e.Request().Context(), userID(e), memberID); err != nil {
		l.Error("failed to remove member", zap.String("member_id", memberID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) LeaveFamily(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	l.Info("leaving family")

	if err := h.family.LeaveFamily(e.Request().Context(), userID(e)); err != nil {
		l.Error("failed to leave family", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}
