package users

import (
	"context"
	"errors"

	"productivity-api/internal/domain/activity"
)

// Lookup implementa activity.UserLookup directo sobre el repo,
// así el ledger puede construirse antes que el Service de usuarios.
type Lookup struct {
	repo Repository
}

func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

func (l *Lookup) UserExists(ctx context.Context, id string) (bool, error) {
	_, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Lookup) UserSummaries(ctx context.Context, ids []string) (map[string]activity.UserSummary, error) {
	list, err := l.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]activity.UserSummary, len(list))
	for _, u := range list {
		out[u.ID] = activity.UserSummary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
	}
	return out, nil
}
