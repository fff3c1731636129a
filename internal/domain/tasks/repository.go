package tasks

import "context"

// Delete borra la tarea y sus comentarios. Las actividades no se tocan.
type Repository interface {
	Create(ctx context.Context, t Task) error
	Update(ctx context.Context, t Task) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Task, error)
	ListVisible(ctx context.Context, userID string) ([]Task, error)
	ListByIDs(ctx context.Context, ids []string) ([]Task, error)

	AddComment(ctx context.Context, c Comment) error
	ListComments(ctx context.Context, taskID string) ([]Comment, error)
}
