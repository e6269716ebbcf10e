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

type Note struct {
	ID        string         `db:"id"`
	BabyID    string         `db:"baby_id"`
	AuthorID  *string        `db:"author_id"`
	Type      model.NoteType `db:"type"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	DueAt     *time.Time     `db:"due_at"`
	Completed bool           `db:"completed"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type NotePatch struct {
	ID        string     `db:"id"`
	Title     *string    `db:"title"`
	Body      *string    `db:"body"`
	DueAt     *time.Time `db:"due_at"`
	Completed *bool      `db:"completed"`
}

type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	Get(ctx context.Context, noteID string) (*Note, error)
	ListByBaby(ctx context.Context, babyID string, noteType model.NoteType) ([]*Note, error)
	Patch(ctx context.Context, patch *NotePatch) (*Note, error)
	Delete(ctx context.Context, noteID string) error
}

type pgxNoteRepository struct {
	pool *pgxpool.Pool
}

func NewPgxNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &pgxNoteRepository{pool: pool}
}

var noteColumns = []any{"id", "baby_id", "author_id", "type", "title", "body", "due_at", "completed", "created_at", "updated_at"}

func scanNote(row pgx.Row) (*Note, error) {
	n := &Note{}
	err := row.Scan(&n.ID, &n.BabyID, &n.AuthorID, &n.Type, &n.Title, &n.Body, &n.DueAt, &n.Completed, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return n, nil
}

func (p *pgxNoteRepository) Create(ctx context.Context, note *Note) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("notes", "id", "baby_id", "author_id", "type", "title", "body", "due_at", "completed"),
		im.Values(
			psql.Arg(note.ID),
			psql.Arg(note.BabyID),
			psql.Arg(note.AuthorID),
			psql.Arg(note.Type),
			psql.Arg(note.Title),
			psql.Arg(note.Body),
			psql.Arg(note.DueAt),
			psql.Arg(note.Completed),
		),
		im.Returning("created_at", "updated_at"),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	return mapPgError(e.QueryRow(ctx, sql, args...).Scan(&note.CreatedAt, &note.UpdatedAt))
}

func (p *pgxNoteRepository) Get(ctx context.Context, noteID string) (*Note, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(noteColumns...),
		sm.From("notes"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(noteID))),
	)
	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanNote(e.QueryRow(ctx, sql, args...))
}

// ListByBaby lists notes newest first; an empty noteType lists every type.
func (p *pgxNoteRepository) ListByBaby(ctx context.Context, babyID string, noteType model.NoteType) ([]*Note, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(noteColumns...),
		sm.From("notes"),
		sm.Where(psql.Quote("baby_id").EQ(psql.Arg(babyID))),
		sm.OrderBy("created_at").Desc(),
	)
	if noteType != "" {
		q.Apply(sm.Where(psql.Quote("type").EQ(psql.Arg(noteType))))
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

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Note, error) {
		return scanNote(row)
	})
}

func (p *pgxNoteRepository) Patch(ctx context.Context, patch *NotePatch) (*Note, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 5)
	if patch.Title != nil {
		sets = append(sets, um.SetCol("title").ToArg(*patch.Title))
	}
	if patch.Body != nil {
		sets = append(sets, um.SetCol("body").ToArg(*patch.Body))
	}
	if patch.DueAt != nil {
		sets = append(sets, um.SetCol("due_at").ToArg(*patch.DueAt))
	}
	if patch.Completed != nil {
		sets = append(sets, um.SetCol("completed").ToArg(*patch.Completed))
	}
	sets = append(sets, um.SetCol("updated_at").ToArg(time.Now()))

	q := psql.Update(
		um.Table("notes"),
		um.Where(psql.Quote("id").EQ(psql.Arg(patch.ID))),
		um.Returning(noteColumns...),
	)
	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	return scanNote(e.QueryRow(ctx, sql, args...))
}

func (p *pgxNoteRepository) Delete(ctx context.Context, noteID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("notes"),
		dm.Where(psql.Quote("id").EQ(psql.Arg(noteID))),
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
