package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"productivity-api/internal/domain/activity"
)

// activityRepo es append-only: las filas se copian al entrar y al salir.
type activityRepo struct {
	mu   sync.RWMutex
	byID map[string]activity.Record
	rows []activity.Record // orden de inserción
}

func NewActivityRepo() activity.Repository {
	return &activityRepo{
		byID: make(map[string]activity.Record),
	}
}

func (r *activityRepo) Append(ctx context.Context, rec activity.Record) error {
	return r.AppendBatch(ctx, []activity.Record{rec})
}

// AppendBatch valida todo antes de escribir: o entran todas o ninguna.
func (r *activityRepo) AppendBatch(ctx context.Context, recs []activity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if strings.TrimSpace(rec.ID) == "" {
			return fmt.Errorf("activity id required")
		}
		if _, exists := r.byID[rec.ID]; exists || seen[rec.ID] {
			return fmt.Errorf("activity %s already exists", rec.ID)
		}
		seen[rec.ID] = true
	}

	for _, rec := range recs {
		c := cloneRecord(rec)
		r.byID[c.ID] = c
		r.rows = append(r.rows, c)
	}
	return nil
}

func (r *activityRepo) GetByID(ctx context.Context, id string) (activity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return activity.Record{}, fmt.Errorf("activity %s: %w", id, activity.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (r *activityRepo) FindMany(ctx context.Context, q activity.FindQuery) ([]activity.Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]activity.Record, 0)
	for _, rec := range r.rows {
		if matches(rec, q.Filter) {
			matched = append(matched, rec)
		}
	}
	total := len(matched)

	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], q.SortBy, q.SortOrder)
	})

	start := min(max(q.Offset, 0), len(matched))
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]activity.Record, 0, end-start)
	for _, rec := range matched[start:end] {
		out = append(out, cloneRecord(rec))
	}
	return out, total, nil
}

func (r *activityRepo) Count(ctx context.Context, f activity.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.rows {
		if matches(rec, f) {
			n++
		}
	}
	return n, nil
}

func matches(rec activity.Record, f activity.Filter) bool {
	if f.TaskID != "" && (rec.TaskID == nil || *rec.TaskID != f.TaskID) {
		return false
	}
	if f.NoteID != "" && (rec.NoteID == nil || *rec.NoteID != f.NoteID) {
		return false
	}
	if f.ActorID != "" && rec.ActorID != f.ActorID {
		return false
	}
	if f.TargetUserID != "" && (rec.TargetUserID == nil || *rec.TargetUserID != f.TargetUserID) {
		return false
	}
	if f.Involving != "" && !rec.InvolvesUser(f.Involving) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, rec.Type) {
		return false
	}
	if f.CreatedFrom != nil && rec.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && rec.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// less replica el ORDER BY de postgres: campo pedido, createdAt y por último id asc.
func less(a, b activity.Record, by activity.SortField, order activity.SortOrder) bool {
	desc := order == activity.SortDesc

	if by == activity.SortType && a.Type != b.Type {
		if desc {
			return a.Type > b.Type
		}
		return a.Type < b.Type
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if desc {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func cloneRecord(rec activity.Record) activity.Record {
	c := rec
	c.TargetUserID = cloneStr(rec.TargetUserID)
	c.TaskID = cloneStr(rec.TaskID)
	c.NoteID = cloneStr(rec.NoteID)
	c.Metadata = rec.Metadata.Clone()
	return c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
