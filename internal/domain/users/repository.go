package users

import "context"

// Create devuelve ErrConflict si el email ya está registrado.
type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	ListByIDs(ctx context.Context, ids []string) ([]User, error)
}
