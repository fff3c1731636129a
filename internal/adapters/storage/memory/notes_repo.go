package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"productivity-api/internal/domain/notes"
)

type noteRepo struct {
	mu   sync.RWMutex
	byID map[string]notes.Note
}

func NewNoteRepo() notes.Repository {
	return &noteRepo{
		byID: make(map[string]notes.Note),
	}
}

func (r *noteRepo) Create(ctx context.Context, n notes.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("note id required")
	}
	if _, exists := r.byID[n.ID]; exists {
		return fmt.Errorf("note %s already exists", n.ID)
	}
	r.byID[n.ID] = cloneNote(n)
	return nil
}

// Update no toca SharedWith; los shares se agregan con AddShare.
func (r *noteRepo) Update(ctx context.Context, n notes.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.byID[n.ID]
	if !exists {
		return notes.ErrNotFound
	}
	next := cloneNote(n)
	next.SharedWith = cur.SharedWith
	r.byID[n.ID] = next
	return nil
}

func (r *noteRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return notes.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *noteRepo) GetByID(ctx context.Context, id string) (notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byID[id]
	if !ok {
		return notes.Note{}, notes.ErrNotFound
	}
	return cloneNote(n), nil
}

// ListVisible: fijadas primero, después por fecha de creación.
func (r *noteRepo) ListVisible(ctx context.Context, userID string) ([]notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notes.Note, 0)
	for _, n := range r.byID {
		if n.CanView(userID) {
			out = append(out, cloneNote(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *noteRepo) ListByIDs(ctx context.Context, ids []string) ([]notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notes.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := r.byID[id]; ok {
			out = append(out, cloneNote(n))
		}
	}
	return out, nil
}

func (r *noteRepo) AddShare(ctx context.Context, noteID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[noteID]
	if !ok {
		return notes.ErrNotFound
	}
	if !slices.Contains(n.SharedWith, userID) {
		n.SharedWith = append(slices.Clone(n.SharedWith), userID)
		r.byID[noteID] = n
	}
	return nil
}

func cloneNote(n notes.Note) notes.Note {
	c := n
	c.SharedWith = slices.Clone(n.SharedWith)
	return c
}
