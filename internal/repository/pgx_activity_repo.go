package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
)

type Activity struct {
	ID           string             `db:"id"`
	BabyID       string             `db:"baby_id"`
	Type         model.ActivityType `db:"type"`
	StartedAt    time.Time          `db:"started_at"`
	EndedAt      *time.Time         `db:"ended_at"`
	FeedingKind  *string            `db:"feeding_kind"`
	AmountML     *int               `db:"amount_ml"`
	DiaperKind   *string            `db:"diaper_kind"`
	MedicineName *string            `db:"medicine_name"`
	Dose         *string            `db:"dose"`
	TemperatureC *float64           `db:"temperature_c"`
	Memo         string             `db:"memo"`
	CreatedBy    *string            `db:"created_by"`
	CreatedAt    time.Time          `db:"created_at"`
}

type ActivityFilter struct {
	BabyID string
	From   time.Time
	To     time.Time
	Type   model.ActivityType
	Limit  int
}

type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	Get(ctx context.Context, activityID string) (*Activity, error)
	// List returns activities with From <= started_at < To, newest first.
	List(ctx context.Context, filter ActivityFilter) ([]*Activity, error)
	Update(ctx context.Context, a *Activity) error
	Delete(ctx context.Context, activityID string) error
}

type pgxActivityRepository struct {
	pool *pgxpool.Pool
}

func NewPgxActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &pgxActivityRepository{pool: pool}
}

var activityColumns = []any{
	"id", "baby_id", "type", "started_at", "ended_at", "feeding_kind", "amount_ml",
	"diaper_kind", "medicine_name", "dose", "temperature_c", "memo", "created_by", "created_at",
}

func scanActivity(row pgx.Row) (*Activity, error) {
	a := &Activity{}
	err := row.Scan(
		&a.ID,
		&a.BabyID,
		&a.Type,
		&a.StartedAt,
		&a.EndedAt,
		&a.FeedingKind,
		&a.AmountML,
		&a.DiaperKind,
		&a.MedicineName,
		&a.Dose,
		&a.TemperatureC,
		&a.Memo,
		&a.CreatedBy,
		&a.CreatedAt,
	)
	return a, err
}

func (p *pgxActivityRepository) Create(ctx context.Context, a *Activity) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("activities", "id", "baby_id", "type", "started_at", "ended_at", "feeding_kind", "amount_ml",
			"diaper_kind", "medicine_name", "dose", "temperature_c", "memo", "created_by"),
		im.Values(
			psql.Arg(a.ID),
			psql.Arg(a.BabyID),
			psql.Arg(a.Type),
			psql.Arg(a.StartedAt),
			psql.Arg(a.EndedAt),
			psql.Arg(a.FeedingKind),
			psql.Arg(a.AmountML),
			psql.Arg(a.DiaperKind),
			psql.Arg(a.MedicineName),
			psql.Arg(a.Dose),
			psql.Arg(a.TemperatureC),
			psql.Arg(a.Memo),
			psql.Arg(a.CreatedBy),
		),
		im.Returning("created_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return mapPgError(e.QueryRow(ctx, sql, args...).Scan(&a.CreatedAt))
}

func (p *pgxActivityRepository) Get(ctx context.Context, activityID string) (*Activity, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(activityColumns...),
		sm.From("activities"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(activityID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	a, err := scanActivity(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return a, nil
}

func (p *pgxActivityRepository) List(ctx context.Context, filter ActivityFilter) ([]*Activity, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(activityColumns...),
		sm.From("activities"),
		sm.Where(psql.Quote("baby_id").EQ(psql.Arg(filter.BabyID))),
		sm.OrderBy("started_at").Desc(),
	)
	if !filter.From.IsZero() {
		q.Apply(sm.Where(psql.Quote("started_at").GTE(psql.Arg(filter.From))))
	}
	if !filter.To.IsZero() {
		q.Apply(sm.Where(psql.Quote("started_at").LT(psql.Arg(filter.To))))
	}
	if filter.Type != "" {
		q.Apply(sm.Where(psql.Quote("type").EQ(psql.Arg(filter.Type))))
	}
	if filter.Limit > 0 {
		q.Apply(sm.Limit(filter.Limit))
	}

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Activity, error) {
		return scanActivity(row)
	})
}

// Update overwrites every mutable column of a.
func (p *pgxActivityRepository) Update(ctx context.Context, a *Activity) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("activities"),
		um.SetCol("started_at").ToArg(a.StartedAt),
		um.SetCol("ended_at").ToArg(a.EndedAt),
		um.SetCol("feeding_kind").ToArg(a.FeedingKind),
		um.SetCol("amount_ml").ToArg(a.AmountML),
		um.SetCol("diaper_kind").ToArg(a.DiaperKind),
		um.SetCol("medicine_name").ToArg(a.MedicineName),
		um.SetCol("dose").ToArg(a.Dose),
		um.SetCol("temperature_c").ToArg(a.TemperatureC),
		um.SetCol("memo").ToArg(a.Memo),
		um.Where(psql.Quote("id").EQ(psql.Arg(a.ID))),
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

func (p *pgxActivityRepository) Delete(ctx context.Context, activityID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("activities"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(activityID))),
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
