package tasks

import (
	"context"
	"errors"

	"productivity-api/internal/domain/activity"
)

// Lookup implementa activity.TaskLookup sobre el repo.
type Lookup struct {
	repo Repository
}

func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

func (l *Lookup) TaskExists(ctx context.Context, id string) (bool, error) {
	_, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Lookup) TaskSummaries(ctx context.Context, ids []string) (map[string]activity.TaskSummary, error) {
	list, err := l.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]activity.TaskSummary, len(list))
	for _, t := range list {
		out[t.ID] = activity.TaskSummary{ID: t.ID, Title: t.Title, Status: string(t.Status)}
	}
	return out, nil
}
