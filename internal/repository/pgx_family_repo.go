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

type Family struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	OwnerID         string    `db:"owner_id"`
	InviteCode      string    `db:"invite_code"`
	InviteExpiresAt time.Time `db:"invite_expires_at"`
	CreatedAt       time.Time `db:"created_at"`
}

type FamilyMember struct {
	FamilyID string           `db:"family_id"`
	UserID   string           `db:"user_id"`
	Email    string           `db:"email"`
	Name     string           `db:"name"`
	Role     model.FamilyRole `db:"role"`
	JoinedAt time.Time        `db:"joined_at"`
}

type FamilyRepository interface {
	Create(ctx context.Context, family *Family) error
	Get(ctx context.Context, familyID string) (*Family, error)
	GetByInviteCode(ctx context.Context, code string) (*Family, error)
	UpdateInviteCode(ctx context.Context, familyID, code string, expiresAt time.Time) error
	UpdateOwner(ctx context.Context, familyID, ownerID string) error
	Delete(ctx context.Context, familyID string) error

	AddMember(ctx context.Context, familyID, userID string, role model.FamilyRole) error
	RemoveMember(ctx context.Context, familyID, userID string) error
	ListMembers(ctx context.Context, familyID string) ([]*FamilyMember, error)
	// GetMembership returns the single family membership of a user.
	GetMembership(ctx context.Context, userID string) (*FamilyMember, error)
}

type pgxFamilyRepository struct {
	pool *pgxpool.Pool
}

func NewPgxFamilyRepository(pool *pgxpool.Pool) FamilyRepository {
	return &pgxFamilyRepository{pool: pool}
}

var familyColumns = []any{"id", "name", "owner_id", "invite_code", "invite_expires_at", "created_at"}

func scanFamily(row pgx.Row) (*Family, error) {
	f := &Family{}
	if err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.InviteCode, &f.InviteExpiresAt, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapPgError(err)
	}
	return f, nil
}

func (p *pgxFamilyRepository) Create(ctx context.Context, family *Family) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("families", "id", "name", "owner_id", "invite_code", "invite_expires_at"),
		im.Values(
			psql.Arg(family.ID),
			psql.Arg(family.Name),
			psql.Arg(family.OwnerID),
			psql.Arg(family.InviteCode),
			psql.Arg(family.InviteExpiresAt),
		),
		im.Returning("created_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return mapPgError(e.QueryRow(ctx, sql, args...).Scan(&family.CreatedAt))
}

func (p *pgxFamilyRepository) Get(ctx context.Context, familyID string) (*Family, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(familyColumns...),
		sm.From("families"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(familyID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanFamily(e.QueryRow(ctx, sql, args...))
}

func (p *pgxFamilyRepository) GetByInviteCode(ctx context.Context, code string) (*Family, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(familyColumns...),
		sm.From("families"),
		sm.Where(psql.Quote("invite_code").EQ(psql.Arg(code))),
		sm.ForShare("families"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanFamily(e.QueryRow(ctx, sql, args...))
}

func (p *pgxFamilyRepository) UpdateInviteCode(ctx context.Context, familyID, code string, expiresAt time.Time) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("families"),
		um.SetCol("invite_code").ToArg(code),
		um.SetCol("invite_expires_at").ToArg(expiresAt),
		um.Where(psql.Quote("id").EQ(psql.Arg(familyID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgxFamilyRepository) UpdateOwner(ctx context.Context, familyID, ownerID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("families"),
		um.SetCol("owner_id").ToArg(ownerID),
		um.Where(psql.Quote("id").EQ(psql.Arg(familyID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}
	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return err
	}

	q = psql.Update(
		um.Table("family_members"),
		um.SetCol("role").ToArg(model.FamilyRoleOwner),
		um.Where(psql.Quote("family_id").EQ(psql.Arg(familyID)).
			And(psql.Quote("user_id").EQ(psql.Arg(ownerID)))),
	)
	sql, args, err = q.Build(ctx)
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

func (p *pgxFamilyRepository) Delete(ctx context.Context, familyID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("families"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(familyID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func (p *pgxFamilyRepository) AddMember(ctx context.Context, familyID, userID string, role model.FamilyRole) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("family_members", "family_id", "user_id", "role"),
		im.Values(psql.Arg(familyID), psql.Arg(userID), psql.Arg(role)),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapPgError(err)
}

func (p *pgxFamilyRepository) RemoveMember(ctx context.Context, familyID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("family_members"),
		dm.Where(psql.Quote("family_id").EQ(psql.Arg(familyID)).
			And(psql.Quote("user_id").EQ(psql.Arg(userID)))),
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

// ListMembers returns members ordered by join time, oldest first.
func (p *pgxFamilyRepository) ListMembers(ctx context.Context, familyID string) ([]*FamilyMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("fm.family_id", "fm.user_id", "users.email", "users.name", "fm.role", "fm.joined_at"),
		sm.From("family_members").As("fm"),
		sm.InnerJoin("users").On(psql.Quote("users", "id").EQ(psql.Quote("fm", "user_id"))),
		sm.Where(psql.Quote("fm", "family_id").EQ(psql.Arg(familyID))),
		sm.OrderBy(psql.Quote("fm", "joined_at")).Asc(),
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*FamilyMember, error) {
		m := &FamilyMember{}
		err := row.Scan(&m.FamilyID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt)
		return m, err
	})
}

func (p *pgxFamilyRepository) GetMembership(ctx context.Context, userID string) (*FamilyMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("fm.family_id", "fm.user_id", "users.email", "users.name", "fm.role", "fm.joined_at"),
		sm.From("family_members").As("fm"),
		sm.InnerJoin("users").On(psql.Quote("users", "id").EQ(psql.Quote("fm", "user_id"))),
		sm.Where(psql.Quote("fm", "user_id").EQ(psql.Arg(userID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m := &FamilyMember{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&m.FamilyID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}
