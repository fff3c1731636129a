package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"productivity-api/internal/domain/activity"

	"golang.org/x/sync/errgroup"
)

const activityColumns = `
	id, type, actor_id, target_user_id, task_id, note_id,
	description, metadata, created_at
`

type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Append(ctx context.Context, rec activity.Record) error {
	return insertActivity(ctx, r.db, rec)
}

// AppendBatch inserta todas las filas en una transacción.
func (r *ActivityRepo) AppendBatch(ctx context.Context, recs []activity.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range recs {
		if err := insertActivity(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertActivity(ctx context.Context, db execer, rec activity.Record) error {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rec.ID,
		string(rec.Type),
		rec.ActorID,
		toNullString(rec.TargetUserID),
		toNullString(rec.TaskID),
		toNullString(rec.NoteID),
		rec.Description,
		meta,
		rec.CreatedAt,
	)
	return err
}

func (r *ActivityRepo) GetByID(ctx context.Context, id string) (activity.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, strings.TrimSpace(id))

	rec, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Record{}, fmt.Errorf("activity %s: %w", id, activity.ErrNotFound)
	}
	return rec, err
}

// FindMany corre el COUNT y la página en paralelo sobre el mismo WHERE.
func (r *ActivityRepo) FindMany(ctx context.Context, q activity.FindQuery) ([]activity.Record, int, error) {
	where, args := buildWhere(q.Filter)

	var (
		total int
		recs  []activity.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		query, pageArgs := pageQuery(where, args, q)
		rows, err := r.db.QueryContext(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out := make([]activity.Record, 0)
		for rows.Next() {
			rec, err := scanActivity(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		recs = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (r *ActivityRepo) Count(ctx context.Context, f activity.Filter) (int, error) {
	where, args := buildWhere(f)

	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&n)
	return n, err
}

// buildWhere arma el WHERE (con espacio inicial) y sus argumentos posicionales.
func buildWhere(f activity.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.TaskID != "" {
		add("task_id = $%d", f.TaskID)
	}
	if f.NoteID != "" {
		add("note_id = $%d", f.NoteID)
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.TargetUserID != "" {
		add("target_user_id = $%d", f.TargetUserID)
	}
	if f.Involving != "" {
		args = append(args, f.Involving)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(actor_id = $%d OR target_user_id = $%d)", n, n))
	}
	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, string(t))
		}
		add("type = ANY($%d)", types)
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at <= $%d", *f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy: campo pedido, created_at en el mismo sentido y desempate por id asc.
func orderBy(by activity.SortField, order activity.SortOrder) string {
	dir := "DESC"
	if order == activity.SortAsc {
		dir = "ASC"
	}
	if by == activity.SortType {
		return fmt.Sprintf(" ORDER BY type %s, created_at %s, id ASC", dir, dir)
	}
	return fmt.Sprintf(" ORDER BY created_at %s, id ASC", dir)
}

func pageQuery(where string, args []any, q activity.FindQuery) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + activityColumns + ` FROM activities`)
	sb.WriteString(where)
	sb.WriteString(orderBy(q.SortBy, q.SortOrder))

	out := append([]any(nil), args...)
	if q.Limit > 0 {
		out = append(out, q.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(out)))
	}
	if q.Offset > 0 {
		out = append(out, q.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(out)))
	}
	return sb.String(), out
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (activity.Record, error) {
	var (
		rec                    activity.Record
		typ                    string
		target, taskID, noteID sql.NullString
		meta                   []byte
	)
	if err := s.Scan(
		&rec.ID,
		&typ,
		&rec.ActorID,
		&target,
		&taskID,
		&noteID,
		&rec.Description,
		&meta,
		&rec.CreatedAt,
	); err != nil {
		return activity.Record{}, err
	}

	rec.Type = activity.Type(typ)
	rec.TargetUserID = fromNullString(target)
	rec.TaskID = fromNullString(taskID)
	rec.NoteID = fromNullString(noteID)
	rec.CreatedAt = rec.CreatedAt.UTC()

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return activity.Record{}, fmt.Errorf("decoding metadata of %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func encodeMetadata(m activity.Metadata) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
