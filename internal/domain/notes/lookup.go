package notes

import (
	"context"
	"errors"

	"productivity-api/internal/domain/activity"
)

// Lookup implementa activity.NoteLookup sobre el repo.
type Lookup struct {
	repo Repository
}

func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

func (l *Lookup) NoteExists(ctx context.Context, id string) (bool, error) {
	_, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Lookup) NoteSummaries(ctx context.Context, ids []string) (map[string]activity.NoteSummary, error) {
	list, err := l.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]activity.NoteSummary, len(list))
	for _, n := range list {
		out[n.ID] = activity.NoteSummary{ID: n.ID, Title: n.Title}
	}
	return out, nil
}
