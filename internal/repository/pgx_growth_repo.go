package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/babylog/internal/db"
)

type Measurement struct {
	ID         string    `db:"id"`
	BabyID     string    `db:"baby_id"`
	MeasuredAt time.Time `db:"measured_at"`
	WeightKg   *float64  `db:"weight_kg"`
	HeightCm   *float64  `db:"height_cm"`
	HeadCm     *float64  `db:"head_cm"`
}

type Milestone struct {
	BabyID     string    `db:"baby_id"`
	Key        string    `db:"milestone"`
	AchievedAt time.Time `db:"achieved_at"`
}

// GrowthRepository stores growth measurements and milestone progress.
type GrowthRepository interface {
	CreateMeasurement(ctx context.Context, m *Measurement) error
	// ListMeasurements returns the newest measurements first; limit <= 0 returns all.
	ListMeasurements(ctx context.Context, babyID string, limit int) ([]*Measurement, error)

	ListMilestones(ctx context.Context, babyID string) ([]*Milestone, error)
	UpsertMilestone(ctx context.Context, m *Milestone) error
	DeleteMilestone(ctx context.Context, babyID, key string) error
}

type pgxGrowthRepository struct {
	pool *pgxpool.Pool
}

func NewPgxGrowthRepository(pool *pgxpool.Pool) GrowthRepository {
	return &pgxGrowthRepository{pool: pool}
}

func (p *pgxGrowthRepository) CreateMeasurement(ctx context.Context, m *Measurement) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("baby_measurements", "id", "baby_id", "measured_at", "weight_kg", "height_cm", "head_cm"),
		im.Values(
			psql.Arg(m.ID),
			psql.Arg(m.BabyID),
			psql.Arg(m.MeasuredAt),
			psql.Arg(m.WeightKg),
			psql.Arg(m.HeightCm),
			psql.Arg(m.HeadCm),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapPgError(err)
}

func (p *pgxGrowthRepository) ListMeasurements(ctx context.Context, babyID string, limit int) ([]*Measurement, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "baby_id", "measured_at", "weight_kg", "height_cm", "head_cm"),
		sm.From("baby_measurements"),
		sm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID))),
		sm.OrderBy("measured_at").Desc(),
	)
	if limit > 0 {
		q.Apply(sm.Limit(limit))
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Measurement, error) {
		m := &Measurement{}
		err := row.Scan(&m.ID, &m.BabyID, &m.MeasuredAt, &m.WeightKg, &m.HeightCm, &m.HeadCm)
		return m, err
	})
}

func (p *pgxGrowthRepository) ListMilestones(ctx context.Context, babyID string) ([]*Milestone, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("baby_id", "milestone", "achieved_at"),
		sm.From("milestone_progress"),
		sm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID))),
		sm.OrderBy("achieved_at").Asc(),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Milestone, error) {
		m := &Milestone{}
		err := row.Scan(&m.BabyID, &m.Key, &m.AchievedAt)
		return m, err
	})
}

func (p *pgxGrowthRepository) UpsertMilestone(ctx context.Context, m *Milestone) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("milestone_progress", "baby_id", "milestone", "achieved_at"),
		im.Values(psql.Arg(m.BabyID), psql.Arg(m.Key), psql.Arg(m.AchievedAt)),
		im.OnConflict(psql.Quote("baby_id"), psql.Quote("milestone")).DoUpdate(
			im.SetCol("achieved_at").ToArg(m.AchievedAt),
		),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapPgError(err)
}

func (p *pgxGrowthRepository) DeleteMilestone(ctx context.Context, babyID, key string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("milestone_progress"),
		dm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID)).
			And(psql.Quote("milestone").EQ(psql.Arg(key)))),
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
