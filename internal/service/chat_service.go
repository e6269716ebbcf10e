package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	toolActivityLimit   = 100
)

// Answerer generates and streams a reply to one chat message.
type Answerer interface {
	Answer(ctx context.Context, req chat.Request, emit func(chunk string) error) (*chat.Result, error)
}

type ChatService struct {
	families repository.FamilyRepository
	babies   repository.BabyRepository
	chats    repository.ChatRepository
	answerer Answerer

	maxMessageLen int
}

func NewChatService(maxMessageLen int) *ChatService {
	return &ChatService{maxMessageLen: maxMessageLen}
}

// Send answers message about babyID, streaming the reply through emit.
func (s *ChatService) Send(ctx context.Context, userID, babyID, message string, emit func(chunk string) error) (*chat.Result, *Error) {
	l := logger.FromContext(ctx)

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, NewError(ErrorCodeInvalidBody, "message is empty")
	}
	if s.maxMessageLen > 0 && utf8.RuneCountInString(message) > s.maxMessageLen {
		return nil, NewError(ErrorCodeInvalidBody, fmt.Sprintf("message is longer than %d characters", s.maxMessageLen))
	}

	baby, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID)
	if serr != nil {
		return nil, serr
	}

	res, err := s.answerer.Answer(ctx, chat.Request{
		UserID:  userID,
		Baby:    toModelBaby(baby),
		Message: message,
	}, emit)
	if err != nil {
		var emitErr *chat.EmitError
		if errors.As(err, &emitErr) || errors.Is(err, context.Canceled) {
			l.Info("client went away during chat reply", zap.String("baby_id", babyID), zap.Error(err))
		} else {
			l.Error("failed to answer chat message", zap.String("baby_id", babyID), zap.Error(err))
		}
		return nil, NewError(ErrorCodeUnspecified, "failed to answer message")
	}

	l.Info("chat message answered",
		zap.String("baby_id", babyID),
		zap.String("complexity", string(res.Complexity)),
		zap.Int("history_tier", res.History.Tier),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Bool("fallback", res.Fallback))
	return res, nil
}

func (s *ChatService) History(ctx context.Context, userID, babyID string, limit int) ([]*model.ChatMessage, *Error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	rows, err := s.chats.ListRecent(ctx, babyID, userID, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list chat history", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list chat history")
	}

	msgs := make([]*model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, toModelChatMessage(row))
	}
	return msgs, nil
}

func (s *ChatService) ClearHistory(ctx context.Context, userID, babyID string) (int64, *Error) {
	l := logger.FromContext(ctx)
	l.Info("clearing chat history", zap.String("baby_id", babyID))

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return 0, serr
	}

	n, err := s.chats.DeleteConversation(ctx, babyID, userID)
	if err != nil {
		l.Error("failed to clear chat history", zap.String("baby_id", babyID), zap.Error(err))
		return 0, NewError(ErrorCodeUnspecified, "failed to clear chat history")
	}
	return n, nil
}

func (s *ChatService) WithFamilyRepo(r repository.FamilyRepository) *ChatService {
	s.families = r
	return s
}

func (s *ChatService) WithBabyRepo(r repository.BabyRepository) *ChatService {
	s.babies = r
	return s
}

func (s *ChatService) WithChatRepo(r repository.ChatRepository) *ChatService {
	s.chats = r
	return s
}

func (s *ChatService) WithAnswerer(a Answerer) *ChatService {
	s.answerer = a
	return s
}

func toModelChatMessage(m *repository.ChatMessage) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        m.ID,
		BabyID:    m.BabyID,
		UserID:    m.UserID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type chatStore struct {
	chats repository.ChatRepository
}

// NewChatStore persists chat messages and metrics through the chat repository.
func NewChatStore(r repository.ChatRepository) chat.Store {
	return &chatStore{chats: r}
}

func (c *chatStore) RecentMessages(ctx context.Context, babyID, userID string, limit int) ([]*model.ChatMessage, error) {
	rows, err := c.chats.ListRecent(ctx, babyID, userID, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]*model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, toModelChatMessage(row))
	}
	return msgs, nil
}

func (c *chatStore) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	row := &repository.ChatMessage{
		ID:      msg.ID,
		BabyID:  msg.BabyID,
		UserID:  msg.UserID,
		Role:    msg.Role,
		Content: msg.Content,
	}
	if err := c.chats.CreateMessage(ctx, row); err != nil {
		return err
	}
	msg.CreatedAt = row.CreatedAt
	return nil
}

func (c *chatStore) SaveMetrics(ctx context.Context, m *model.ChatMetrics) error {
	return c.chats.CreateMetrics(ctx, &repository.ChatMetrics{
		ID:               m.ID,
		UserID:           m.UserID,
		BabyID:           m.BabyID,
		Complexity:       m.Complexity,
		HistoryTier:      m.HistoryTier,
		HistoryCount:     m.HistoryCount,
		Model:            m.Model,
		PromptTokens:     m.PromptTokens,
		CompletionTokens: m.CompletionTokens,
		ToolCalls:        m.ToolCalls,
		LatencyMS:        m.Latency.Milliseconds(),
		Fallback:         m.Fallback,
	})
}

type chatData struct {
	activities *ActivityService
	growth     *GrowthService
}

// NewChatDataSource exposes activity, stats and growth reads to the chat tools.
// Access checks happen in ChatService.Send before any tool runs.
func NewChatDataSource(activities *ActivityService, growth *GrowthService) chat.DataSource {
	return &chatData{activities: activities, growth: growth}
}

func (c *chatData) RecentActivities(ctx context.Context, babyID string, activityType model.ActivityType, days int) ([]*model.Activity, error) {
	from := c.activities.now().Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := c.activities.activities.List(ctx, repository.ActivityFilter{
		BabyID: babyID,
		From:   from,
		Type:   activityType,
		Limit:  toolActivityLimit,
	})
	if err != nil {
		return nil, err
	}

	res := make([]*model.Activity, 0, len(rows))
	for _, row := range rows {
		res = append(res, toModelActivity(row))
	}
	return res, nil
}

func (c *chatData) DailyStats(ctx context.Context, babyID string, days int) ([]*model.DailyStats, error) {
	return c.activities.dailyStats(ctx, babyID, days)
}

func (c *chatData) Measurements(ctx context.Context, babyID string, limit int) ([]*model.Measurement, error) {
	ms, serr := c.growth.measurements(ctx, babyID, limit)
	if serr != nil {
		return nil, serr
	}
	return ms, nil
}
