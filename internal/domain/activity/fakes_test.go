package activity

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu        sync.Mutex
	rows      []Record
	failWrite error
	finds     int
}

func (r *testRepo) Append(ctx context.Context, rec Record) error {
	return r.AppendBatch(ctx, []Record{rec})
}

func (r *testRepo) AppendBatch(ctx context.Context, recs []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	r.rows = append(r.rows, recs...)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("activity %s: %w", id, ErrNotFound)
}

func (r *testRepo) FindMany(ctx context.Context, q FindQuery) ([]Record, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++

	out := make([]Record, 0)
	for _, rec := range r.rows {
		if testMatch(rec, q.Filter) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.SortOrder == SortAsc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(out)
	start := min(q.Offset, total)
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return out[start:end], total, nil
}

func (r *testRepo) Count(ctx context.Context, f Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.rows {
		if testMatch(rec, f) {
			n++
		}
	}
	return n, nil
}

func (r *testRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func testMatch(rec Record, f Filter) bool {
	switch {
	case f.TaskID != "" && deref(rec.TaskID) != f.TaskID:
		return false
	case f.NoteID != "" && deref(rec.NoteID) != f.NoteID:
		return false
	case f.ActorID != "" && rec.ActorID != f.ActorID:
		return false
	case f.Involving != "" && !rec.InvolvesUser(f.Involving):
		return false
	case len(f.Types) > 0 && !slices.Contains(f.Types, rec.Type):
		return false
	case f.CreatedFrom != nil && rec.CreatedAt.Before(*f.CreatedFrom):
		return false
	}
	return true
}

// -------------------------
// Test directory
// -------------------------

// testDirectory implementa los tres lookups con mapas id -> nombre/título.
type testDirectory struct {
	users map[string]string
	tasks map[string]string
	notes map[string]string
}

func newTestDirectory() *testDirectory {
	return &testDirectory{
		users: map[string]string{"u1": "Ana", "u2": "Bruno"},
		tasks: map[string]string{"t1": "Write report"},
		notes: map[string]string{"n1": "Ideas"},
	}
}

func (d *testDirectory) directory() Directory {
	return Directory{Users: d, Tasks: d, Notes: d}
}

func (d *testDirectory) UserExists(ctx context.Context, id string) (bool, error) {
	_, ok := d.users[id]
	return ok, nil
}

func (d *testDirectory) UserSummaries(ctx context.Context, ids []string) (map[string]UserSummary, error) {
	out := map[string]UserSummary{}
	for _, id := range ids {
		if name, ok := d.users[id]; ok {
			out[id] = UserSummary{ID: id, Name: name}
		}
	}
	return out, nil
}

func (d *testDirectory) TaskExists(ctx context.Context, id string) (bool, error) {
	_, ok := d.tasks[id]
	return ok, nil
}

func (d *testDirectory) TaskSummaries(ctx context.Context, ids []string) (map[string]TaskSummary, error) {
	out := map[string]TaskSummary{}
	for _, id := range ids {
		if title, ok := d.tasks[id]; ok {
			out[id] = TaskSummary{ID: id, Title: title, Status: "todo"}
		}
	}
	return out, nil
}

func (d *testDirectory) NoteExists(ctx context.Context, id string) (bool, error) {
	_, ok := d.notes[id]
	return ok, nil
}

func (d *testDirectory) NoteSummaries(ctx context.Context, ids []string) (map[string]NoteSummary, error) {
	out := map[string]NoteSummary{}
	for _, id := range ids {
		if title, ok := d.notes[id]; ok {
			out[id] = NoteSummary{ID: id, Title: title}
		}
	}
	return out, nil
}

// -------------------------
// Metrics / clock / ids
// -------------------------

type testMetrics struct {
	mu       sync.Mutex
	appended map[Type]int
	missing  map[EntityKind]int
	failed   map[Type]int
	dropped  map[Type]int
}

func newTestMetrics() *testMetrics {
	return &testMetrics{
		appended: map[Type]int{},
		missing:  map[EntityKind]int{},
		failed:   map[Type]int{},
		dropped:  map[Type]int{},
	}
}

func (m *testMetrics) Appended(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended[t]++
}

func (m *testMetrics) ReferenceMissing(k EntityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[k]++
}

func (m *testMetrics) BestEffortFailed(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[t]++
}

func (m *testMetrics) BestEffortDropped(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[t]++
}

func (m *testMetrics) droppedCount(t Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[t]
}

func (m *testMetrics) failedCount(t Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[t]
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// sequentialIDs genera ids ordenables lexicográficamente.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("act-%04d", n)
	}
}
