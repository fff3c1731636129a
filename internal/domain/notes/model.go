package notes

import (
	"slices"
	"time"
)

type Note struct {
	ID      string
	OwnerID string

	Title   string
	Content string
	Pinned  bool

	// usuarios con acceso de lectura
	SharedWith []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n Note) CanView(userID string) bool {
	return n.OwnerID == userID || slices.Contains(n.SharedWith, userID)
}
