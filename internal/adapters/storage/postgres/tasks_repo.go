package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"productivity-api/internal/domain/tasks"
)

const taskColumns = `
	id, owner_id, assignee_id,
	title, description, status, priority, due_date,
	created_at, updated_at
`

type TasksRepo struct {
	db *sql.DB
}

func NewTasksRepo(db *sql.DB) *TasksRepo {
	return &TasksRepo{db: db}
}

func (r *TasksRepo) Create(ctx context.Context, t tasks.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		t.ID,
		t.OwnerID,
		toNullString(t.AssigneeID),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		toNullTime(t.DueDate),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *TasksRepo) Update(ctx context.Context, t tasks.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET
			assignee_id = $2,
			title = $3,
			description = $4,
			status = $5,
			priority = $6,
			due_date = $7,
			updated_at = $8
		WHERE id = $1
	`,
		t.ID,
		toNullString(t.AssigneeID),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		toNullTime(t.DueDate),
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tasks.ErrNotFound
	}
	return nil
}

// Delete borra comentarios y tarea en una transacción. activities no se toca.
func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_comments WHERE task_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tasks.ErrNotFound
	}
	return tx.Commit()
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (tasks.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return tasks.Task{}, tasks.ErrNotFound
	}

	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, tasks.ErrNotFound
	}
	return t, err
}

func (r *TasksRepo) ListVisible(ctx context.Context, userID string) ([]tasks.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = $1 OR assignee_id = $1
		ORDER BY created_at ASC
	`, userID)
}

func (r *TasksRepo) ListByIDs(ctx context.Context, ids []string) ([]tasks.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ANY($1)`, ids)
}

func (r *TasksRepo) list(ctx context.Context, query string, args ...any) ([]tasks.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tasks.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TasksRepo) AddComment(ctx context.Context, c tasks.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, author_id, body, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.TaskID, c.AuthorID, c.Body, c.CreatedAt)
	return err
}

func (r *TasksRepo) ListComments(ctx context.Context, taskID string) ([]tasks.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, author_id, body, created_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tasks.Comment, 0)
	for rows.Next() {
		var c tasks.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanTask(s scanner) (tasks.Task, error) {
	var (
		t        tasks.Task
		assignee sql.NullString
		status   string
		priority string
		due      sql.NullTime
	)
	if err := s.Scan(
		&t.ID,
		&t.OwnerID,
		&assignee,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&due,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return tasks.Task{}, err
	}

	t.AssigneeID = fromNullString(assignee)
	t.Status = tasks.Status(status)
	t.Priority = tasks.Priority(priority)
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	return t, nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
