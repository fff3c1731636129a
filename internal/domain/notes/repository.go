package notes

import "context"

type Repository interface {
	Create(ctx context.Context, n Note) error
	Update(ctx context.Context, n Note) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Note, error)
	ListVisible(ctx context.Context, userID string) ([]Note, error)
	ListByIDs(ctx context.Context, ids []string) ([]Note, error)
	AddShare(ctx context.Context, noteID, userID string) error
}
