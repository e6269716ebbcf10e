package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/auth"
	"github.com/yakoovad/babylog/internal/ratelimit"
	"github.com/yakoovad/babylog/internal/service"
	"go.uber.org/zap"
)

type Handler struct {
	user     *service.UserService
	family   *service.FamilyService
	baby     *service.BabyService
	activity *service.ActivityService
	note     *service.NoteService
	growth   *service.GrowthService
	chat     *service.ChatService
	metrics  *service.MetricsService

	verifier   *auth.Verifier
	cookieName string

	apiLimiter  *ratelimit.Limiter
	chatLimiter *ratelimit.Limiter

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithAuth(v *auth.Verifier, cookieName string) *Handler {
	h.verifier = v
	h.cookieName = cookieName
	return h
}

func (h *Handler) WithRateLimits(api, chat *ratelimit.Limiter) *Handler {
	h.apiLimiter = api
	h.chatLimiter = chat
	return h
}

func (h *Handler) WithUserService(user *service.UserService) *Handler {
	h.user = user
	return h
}

func (h *Handler) WithFamilyService(family *service.FamilyService) *Handler {
	h.family = family
	return h
}

func (h *Handler) WithBabyService(baby *service.BabyService) *Handler {
	h.baby = baby
	return h
}

func (h *Handler) WithActivityService(activity *service.ActivityService) *Handler {
	h.activity = activity
	return h
}

func (h *Handler) WithNoteService(note *service.NoteService) *Handler {
	h.note = note
	return h
}

func (h *Handler) WithGrowthService(growth *service.GrowthService) *Handler {
	h.growth = growth
	return h
}

func (h *Handler) WithChatService(chat *service.ChatService) *Handler {
	h.chat = chat
	return h
}

func (h *Handler) WithMetricsService(metrics *service.MetricsService) *Handler {
	h.metrics = metrics
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	api := e.Group("/api",
		AuthMiddleware(h.verifier, h.cookieName, h.user),
		RateLimitMiddleware(h.apiLimiter))

	api.GET("/me", h.GetMe)
	api.PUT("/me/settings", h.UpdateSettings)
	api.DELETE("/me", h.DeleteAccount)

	api.POST("/families", h.CreateFamily)
	api.GET("/families/me", h.GetMyFamily)
	api.POST("/families/join", h.JoinFamily)
	api.POST("/families/invite-code", h.RegenerateInviteCode)
	api.POST("/families/invite", h.SendInvite)
	api.DELETE("/families/members/:user_id", h.RemoveMember)
	api.POST("/families/leave", h.LeaveFamily)

	api.POST("/babies", h.CreateBaby)
	api.GET("/babies", h.ListBabies)
	api.GET("/babies/:baby_id", h.GetBaby)
	api.PATCH("/babies/:baby_id", h.UpdateBaby)
	api.DELETE("/babies/:baby_id", h.DeleteBaby)

	api.POST("/babies/:baby_id/activities", h.CreateActivity)
	api.GET("/babies/:baby_id/activities", h.ListActivities)
	api.PATCH("/activities/:activity_id", h.UpdateActivity)
	api.DELETE("/activities/:activity_id", h.DeleteActivity)
	api.GET("/babies/:baby_id/stats/daily", h.DailyStats)

	api.POST("/babies/:baby_id/notes", h.CreateNote)
	api.GET("/babies/:baby_id/notes", h.ListNotes)
	api.PATCH("/notes/:note_id", h.UpdateNote)
	api.DELETE("/notes/:note_id", h.DeleteNote)
	api.GET("/note-templates", h.NoteTemplates)

	api.POST("/babies/:baby_id/measurements", h.CreateMeasurement)
	api.GET("/babies/:baby_id/measurements", h.ListMeasurements)
	api.GET("/babies/:baby_id/milestones", h.ListMilestones)
	api.PUT("/babies/:baby_id/milestones/:key", h.SetMilestone)
	api.DELETE("/babies/:baby_id/milestones/:key", h.ClearMilestone)

	api.POST("/babies/:baby_id/chat", h.Chat, RateLimitMiddleware(h.chatLimiter))
	api.GET("/babies/:baby_id/chat/history", h.ChatHistory)
	api.DELETE("/babies/:baby_id/chat/history", h.ClearChatHistory)

	admin := api.Group("/admin", AdminMiddleware())

	admin.GET("/chat-metrics", h.ChatMetrics)
}

// pathID reads a resource id from the path. Ids are UUIDs, so anything else
// cannot name an existing resource.
func pathID(e echo.Context, name, resource string) (string, *service.Error) {
	id := e.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", service.NewError(service.ErrorCodeNotFound, resource+" not found")
	}
	return id, nil
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func httpStatus(code service.ErrorCode) int {
	switch code {
	case service.ErrorCodeNotFound:
		return http.StatusNotFound
	case service.ErrorCodeInvalidBody:
		return http.StatusBadRequest
	case service.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case service.ErrorCodeForbidden:
		return http.StatusForbidden
	case service.ErrorCodeConflict, service.ErrorCodeAlreadyInFamily:
		return http.StatusConflict
	case service.ErrorCodeInviteExpired:
		return http.StatusGone
	case service.ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error *service.Error `json:"error"`
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	return e.JSON(httpStatus(err.Code), errorResponse{Error: err})
}
