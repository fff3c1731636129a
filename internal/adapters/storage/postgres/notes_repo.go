package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"productivity-api/internal/domain/notes"

	"github.com/jackc/pgx/v5/pgtype"
)

// shared_with se agrega desde note_shares.
const noteSelect = `
	SELECT
		n.id, n.owner_id, n.title, n.content, n.pinned,
		COALESCE(ARRAY(SELECT s.user_id FROM note_shares s WHERE s.note_id = n.id ORDER BY s.created_at), '{}'),
		n.created_at, n.updated_at
	FROM notes n
`

type NotesRepo struct {
	db *sql.DB
}

func NewNotesRepo(db *sql.DB) *NotesRepo {
	return &NotesRepo{db: db}
}

func (r *NotesRepo) Create(ctx context.Context, n notes.Note) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, pinned, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, n.ID, n.OwnerID, n.Title, n.Content, n.Pinned, n.CreatedAt, n.UpdatedAt)
	return err
}

func (r *NotesRepo) Update(ctx context.Context, n notes.Note) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notes
		SET title = $2, content = $3, pinned = $4, updated_at = $5
		WHERE id = $1
	`, n.ID, n.Title, n.Content, n.Pinned, n.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notes.ErrNotFound
	}
	return nil
}

func (r *NotesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notes.ErrNotFound
	}
	return nil
}

func (r *NotesRepo) GetByID(ctx context.Context, id string) (notes.Note, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return notes.Note{}, notes.ErrNotFound
	}

	n, err := scanNote(r.db.QueryRowContext(ctx, noteSelect+` WHERE n.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return notes.Note{}, notes.ErrNotFound
	}
	return n, err
}

func (r *NotesRepo) ListVisible(ctx context.Context, userID string) ([]notes.Note, error) {
	return r.list(ctx, noteSelect+`
		WHERE n.owner_id = $1
		   OR EXISTS (SELECT 1 FROM note_shares s WHERE s.note_id = n.id AND s.user_id = $1)
		ORDER BY n.pinned DESC, n.created_at ASC
	`, userID)
}

func (r *NotesRepo) ListByIDs(ctx context.Context, ids []string) ([]notes.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, noteSelect+` WHERE n.id = ANY($1)`, ids)
}

func (r *NotesRepo) AddShare(ctx context.Context, noteID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO note_shares (note_id, user_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, noteID, userID)
	return err
}

func (r *NotesRepo) list(ctx context.Context, query string, args ...any) ([]notes.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notes.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// database/sql no sabe escanear text[]; pgtype provee el Scanner.
// pgtype.Map no es seguro para uso concurrente.
func scanNote(s scanner) (notes.Note, error) {
	var n notes.Note
	typeMap := pgtype.NewMap()
	if err := s.Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Content,
		&n.Pinned,
		typeMap.SQLScanner(&n.SharedWith),
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return notes.Note{}, err
	}
	return n, nil
}
