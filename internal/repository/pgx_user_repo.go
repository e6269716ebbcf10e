package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/babylog/internal/db"
)

type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type UserSettings struct {
	UserID        string `db:"user_id"`
	Timezone      string `db:"timezone"`
	Language      string `db:"language"`
	Notifications bool   `db:"notifications"`
}

type UserRepository interface {
	Get(ctx context.Context, userID string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, userID string) error
	GetSettings(ctx context.Context, userID string) (*UserSettings, error)
	UpsertSettings(ctx context.Context, settings *UserSettings) error
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgxUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgxUserRepository{pool: pool}
}

func (p *pgxUserRepository) Get(ctx context.Context, userID string) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "email", "name", "created_at"),
		sm.From("users"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(userID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u := &User{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Upsert keeps the profile in sync with the session claims.
func (p *pgxUserRepository) Upsert(ctx context.Context, user *User) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "id", "email", "name"),
		im.Values(psql.Arg(user.ID), psql.Arg(user.Email), psql.Arg(user.Name)),
		im.OnConflict(psql.Quote("id")).DoUpdate(
			im.SetCol("email").ToArg(user.Email),
			im.SetCol("name").ToArg(user.Name),
			im.SetCol("updated_at").ToArg(time.Now()),
		),
		im.Returning("created_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return e.QueryRow(ctx, sql, args...).Scan(&user.CreatedAt)
}

func (p *pgxUserRepository) Delete(ctx context.Context, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("users"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(userID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxUserRepository) GetSettings(ctx context.Context, userID string) (*UserSettings, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("user_id", "timezone", "language", "notifications"),
		sm.From("user_settings"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	s := &UserSettings{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&s.UserID, &s.Timezone, &s.Language, &s.Notifications); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *pgxUserRepository) UpsertSettings(ctx context.Context, s *UserSettings) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("user_settings", "user_id", "timezone", "language", "notifications"),
		im.Values(psql.Arg(s.UserID), psql.Arg(s.Timezone), psql.Arg(s.Language), psql.Arg(s.Notifications)),
		im.OnConflict(psql.Quote("user_id")).DoUpdate(
			im.SetCol("timezone").ToArg(s.Timezone),
			im.SetCol("language").ToArg(s.Language),
			im.SetCol("notifications").ToArg(s.Notifications),
			im.SetCol("updated_at").ToArg(time.Now()),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}
