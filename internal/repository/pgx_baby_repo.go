package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
)

type Baby struct {
	ID        string       `db:"id"`
	FamilyID  string       `db:"family_id"`
	Name      string       `db:"name"`
	BirthDate time.Time    `db:"birth_date"`
	Gender    model.Gender `db:"gender"`
	CreatedAt time.Time    `db:"created_at"`
}

type BabyPatch struct {
	ID        string        `db:"id"`
	Name      *string       `db:"name"`
	BirthDate *time.Time    `db:"birth_date"`
	Gender    *model.Gender `db:"gender"`
}

type BabyRepository interface {
	Create(ctx context.Context, baby *Baby) error
	Get(ctx context.Context, babyID string) (*Baby, error)
	ListByFamily(ctx context.Context, familyID string) ([]*Baby, error)
	Patch(ctx context.Context, patch *BabyPatch) (*Baby, error)
	Delete(ctx context.Context, babyID string) error
}

type pgxBabyRepository struct {
	pool *pgxpool.Pool
}

func NewPgxBabyRepository(pool *pgxpool.Pool) BabyRepository {
	return &pgxBabyRepository{pool: pool}
}

var babyColumns = []any{"id", "family_id", "name", "birth_date", "gender", "created_at"}

func scanBaby(row pgx.Row) (*Baby, error) {
	b := &Baby{}
	err := row.Scan(&b.ID, &b.FamilyID, &b.Name, &b.BirthDate, &b.Gender, &b.CreatedAt)
	return b, err
}

func (p *pgxBabyRepository) Create(ctx context.Context, baby *Baby) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("babies", "id", "family_id", "name", "birth_date", "gender"),
		im.Values(
			psql.Arg(baby.ID),
			psql.Arg(baby.FamilyID),
			psql.Arg(baby.Name),
			psql.Arg(baby.BirthDate),
			psql.Arg(baby.Gender),
		),
		im.Returning("created_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return mapPgError(e.QueryRow(ctx, sql, args...).Scan(&baby.CreatedAt))
}

func (p *pgxBabyRepository) Get(ctx context.Context, babyID string) (*Baby, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(babyColumns...),
		sm.From("babies"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(babyID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	b, err := scanBaby(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return b, nil
}

func (p *pgxBabyRepository) ListByFamily(ctx context.Context, familyID string) ([]*Baby, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(babyColumns...),
		sm.From("babies"),
		sm.Where(psql.Quote("family_id").EQ(psql.Arg(familyID))),
		sm.OrderBy("birth_date").Asc(),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Baby, error) {
		return scanBaby(row)
	})
}

func (p *pgxBabyRepository) Patch(ctx context.Context, patch *BabyPatch) (*Baby, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 3)
	if patch.Name != nil {
		sets = append(sets, um.SetCol("name").ToArg(*patch.Name))
	}
	if patch.BirthDate != nil {
		sets = append(sets, um.SetCol("birth_date").ToArg(*patch.BirthDate))
	}
	if patch.Gender != nil {
		sets = append(sets, um.SetCol("gender").ToArg(*patch.Gender))
	}
	if len(sets) == 0 {
		return p.Get(ctx, patch.ID)
	}

	q := psql.Update(
		um.Table("babies"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning(babyColumns...),
	)
	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	b, err := scanBaby(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return b, nil
}

func (p *pgxBabyRepository) Delete(ctx context.Context, babyID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("babies"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(babyID))),
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
