package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const defaultMetricsWindow = 7 * 24 * time.Hour

type chunkEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Complexity   chat.Complexity `json:"complexity"`
	HistoryTier  int             `json:"history_tier"`
	HistoryCount int             `json:"history_count"`
	ToolCalls    int             `json:"tool_calls"`
	Fallback     bool            `json:"fallback"`
}

// eventStream writes server-sent events. Headers go out with the first event so
// that errors before any output can still be answered with a JSON status.
type eventStream struct {
	res     *echo.Response
	started bool
}

func (s *eventStream) send(event string, v any) error {
	if !s.started {
		h := s.res.Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.res.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err = fmt.Fprintf(s.res, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(s.res, "data: %s\n\n", data); err != nil {
		return err
	}
	s.res.Flush()
	return nil
}

func (s *eventStream) chunk(text string) error {
	return s.send("", chunkEvent{Text: text})
}

func (h *Handler) Chat(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		Message string `json:"message" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("answering chat message", zap.String("baby_id", babyID))

	stream := &eventStream{res: e.Response()}

	res, err := h.chat.Send(e.Request().Context(), userID(e), babyID, req.Message, stream.chunk)
	if err != nil {
		l.Error("failed to answer chat message", zap.String("baby_id", babyID), zap.Any("error", err))
		if !stream.started {
			return h.transportError(e, err)
		}
		// the client may already be gone; nothing else can be reported
		_ = stream.send("error", errorResponse{Error: err})
		return nil
	}

	return stream.send("done", doneEvent{
		Complexity:   res.Complexity,
		HistoryTier:  res.History.Tier,
		HistoryCount: res.History.Count,
		ToolCalls:    res.ToolCalls,
		Fallback:     res.Fallback,
	})
}

func (h *Handler) ChatHistory(e echo.Context) error {
	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	limit, err := queryInt(e, "limit", 0)
	if err != nil {
		return h.transportError(e, err)
	}

	msgs, err := h.chat.History(e.Request().Context(), userID(e), babyID, limit)
	if err != nil {
		logger.FromContext(e.Request().Context()).Error("failed to get chat history", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, msgs)
}

func (h *Handler) ClearChatHistory(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	babyID, err := pathID(e, "baby_id", "baby")
	if err != nil {
		return h.transportError(e, err)
	}

	l.Info("clearing chat history", zap.String("baby_id", babyID))

	n, err := h.chat.ClearHistory(e.Request().Context(), userID(e), babyID)
	if err != nil {
		l.Error("failed to clear chat history", zap.String("baby_id", babyID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) ChatMetrics(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	from, err := queryTime(e, "from")
	if err != nil {
		return h.transportError(e, err)
	}
	to, err := queryTime(e, "to")
	if err != nil {
		return h.transportError(e, err)
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-defaultMetricsWindow)
	}

	l.Info("summarizing chat metrics", zap.Time("from", from), zap.Time("to", to))

	summary, err := h.metrics.ChatSummary(e.Request().Context(), from, to)
	if err != nil {
		l.Error("failed to summarize chat metrics", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, summary)
}
