package activity

import (
	"context"
	"time"
)

// Repository es append-only: no hay Update ni Delete.
// GetByID devuelve ErrNotFound (envuelto) si no existe la fila.
// AppendBatch escribe todas las filas o ninguna.
type Repository interface {
	Append(ctx context.Context, r Record) error
	AppendBatch(ctx context.Context, rs []Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	FindMany(ctx context.Context, q FindQuery) ([]Record, int, error)
	Count(ctx context.Context, f Filter) (int, error)
}

// Filter es una conjunción; los campos vacíos no filtran.
type Filter struct {
	TaskID       string
	NoteID       string
	ActorID      string
	TargetUserID string

	// Involving: actor_id = X OR target_user_id = X
	Involving string

	Types []Type

	CreatedFrom *time.Time // inclusive
	CreatedTo   *time.Time // inclusive
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortType      SortField = "type"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FindQuery ya viene normalizado por el Service; Limit <= 0 = sin límite.
type FindQuery struct {
	Filter    Filter
	SortBy    SortField
	SortOrder SortOrder
	Offset    int
	Limit     int
}
