package repository

import (
	"context"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
)

type ChatMessage struct {
	ID        string         `db:"id"`
	BabyID    string         `db:"baby_id"`
	UserID    string         `db:"user_id"`
	Role      model.ChatRole `db:"role"`
	Content   string         `db:"content"`
	CreatedAt time.Time      `db:"created_at"`
}

type ChatMetrics struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	BabyID           string    `db:"baby_id"`
	Complexity       string    `db:"complexity"`
	HistoryTier      int       `db:"history_tier"`
	HistoryCount     int       `db:"history_count"`
	Model            string    `db:"model"`
	PromptTokens     int       `db:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens"`
	ToolCalls        int       `db:"tool_calls"`
	LatencyMS        int64     `db:"latency_ms"`
	Fallback         bool      `db:"fallback"`
	CreatedAt        time.Time `db:"created_at"`
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *ChatMessage) error
	// ListRecent returns the last limit messages of a conversation in chronological order.
	ListRecent(ctx context.Context, babyID, userID string, limit int) ([]*ChatMessage, error)
	DeleteConversation(ctx context.Context, babyID, userID string) (int64, error)

	CreateMetrics(ctx context.Context, m *ChatMetrics) error
	ListMetrics(ctx context.Context, from, to time.Time) ([]*ChatMetrics, error)
}

type pgxChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgxChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &pgxChatRepository{pool: pool}
}

func (p *pgxChatRepository) CreateMessage(ctx context.Context, msg *ChatMessage) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("chat_messages", "id", "baby_id", "user_id", "role", "content"),
		im.Values(psql.Arg(msg.ID), psql.Arg(msg.BabyID), psql.Arg(msg.UserID), psql.Arg(msg.Role), psql.Arg(msg.Content)),
		im.Returning("created_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return mapPgError(e.QueryRow(ctx, sql, args...).Scan(&msg.CreatedAt))
}

func (p *pgxChatRepository) ListRecent(ctx context.Context, babyID, userID string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "baby_id", "user_id", "role", "content", "created_at"),
		sm.From("chat_messages"),
		sm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID)).
			And(psql.Quote("user_id").EQ(psql.Arg(userID)))),
		sm.OrderBy("created_at").Desc(),
		sm.Limit(limit),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ChatMessage, error) {
		m := &ChatMessage{}
		err := row.Scan(&m.ID, &m.BabyID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(msgs)
	return msgs, nil
}

func (p *pgxChatRepository) DeleteConversation(ctx context.Context, babyID, userID string) (int64, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("chat_messages"),
		dm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID)).
			And(psql.Quote("user_id").EQ(psql.Arg(userID)))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *pgxChatRepository) CreateMetrics(ctx context.Context, m *ChatMetrics) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("chat_metrics", "id", "user_id", "baby_id", "complexity", "history_tier", "history_count",
			"model", "prompt_tokens", "completion_tokens", "tool_calls", "latency_ms", "fallback"),
		im.Values(
			psql.Arg(m.ID),
			psql.Arg(m.UserID),
			psql.Arg(m.BabyID),
			psql.Arg(m.Complexity),
			psql.Arg(m.HistoryTier),
			psql.Arg(m.HistoryCount),
			psql.Arg(m.Model),
			psql.Arg(m.PromptTokens),
			psql.Arg(m.CompletionTokens),
			psql.Arg(m.ToolCalls),
			psql.Arg(m.LatencyMS),
			psql.Arg(m.Fallback),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func (p *pgxChatRepository) ListMetrics(ctx context.Context, from, to time.Time) ([]*ChatMetrics, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "coalesce(user_id, '')", "coalesce(baby_id::text, '')", "complexity", "history_tier",
			"history_count", "model", "prompt_tokens", "completion_tokens", "tool_calls", "latency_ms", "fallback", "created_at"),
		sm.From("chat_metrics"),
		sm.Where(psql.Quote("created_at").GTE(psql.Arg(from)).
			And(psql.Quote("created_at").LT(psql.Arg(to)))),
		sm.OrderBy("created_at").Asc(),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ChatMetrics, error) {
		m := &ChatMetrics{}
		err := row.Scan(
			&m.ID,
			&m.UserID,
			&m.BabyID,
			&m.Complexity,
			&m.HistoryTier,
			&m.HistoryCount,
			&m.Model,
			&m.PromptTokens,
			&m.CompletionTokens,
			&m.ToolCalls,
			&m.LatencyMS,
			&m.Fallback,
			&m.CreatedAt,
		)
		return m, err
	})
}
