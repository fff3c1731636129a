package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test doubles
// -------------------------

type testRepo struct {
	mu       sync.Mutex
	tasks    map[string]Task
	comments map[string][]Comment
}

func newTestRepo() *testRepo {
	return &testRepo{tasks: map[string]Task{}, comments: map[string][]Comment{}}
}

func (r *testRepo) Create(ctx context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *testRepo) Update(ctx context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	delete(r.comments, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *testRepo) ListVisible(ctx context.Context, userID string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Task{}
	for _, t := range r.tasks {
		if t.CanView(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *testRepo) ListByIDs(ctx context.Context, ids []string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Task{}
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *testRepo) AddComment(ctx context.Context, c Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[c.TaskID] = append(r.comments[c.TaskID], c)
	return nil
}

func (r *testRepo) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Comment(nil), r.comments[taskID]...), nil
}

// testLedger guarda cada llamada como un batch.
type testLedger struct {
	batches [][]activity.Input
	err     error
}

func (l *testLedger) Append(ctx context.Context, in activity.Input) (activity.Record, error) {
	_, err := l.AppendBatch(ctx, []activity.Input{in})
	return activity.Record{}, err
}

func (l *testLedger) AppendBatch(ctx context.Context, ins []activity.Input) ([]activity.Record, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.batches = append(l.batches, ins)
	return make([]activity.Record, len(ins)), nil
}

func (l *testLedger) last() []activity.Input {
	if len(l.batches) == 0 {
		return nil
	}
	return l.batches[len(l.batches)-1]
}

func types(ins []activity.Input) []activity.Type {
	out := make([]activity.Type, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Event.Type())
	}
	return out
}

type testUsers map[string]bool

func (u testUsers) UserExists(ctx context.Context, id string) (bool, error) {
	return u[id], nil
}

func (u testUsers) UserSummaries(ctx context.Context, ids []string) (map[string]activity.UserSummary, error) {
	return map[string]activity.UserSummary{}, nil
}

func newTestService(t *testing.T) (*Service, *testRepo, *testLedger) {
	t.Helper()
	repo := newTestRepo()
	ledger := &testLedger{}
	svc := NewService(repo, ledger, testUsers{"owner": true, "ana": true, "bruno": true}, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo, ledger
}

func sp(s string) *string { return &s }

// -------------------------
// Tests
// -------------------------

func TestService_Create_DefaultsAndAssignment(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "  Write report ", AssigneeID: "ana"})
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, "ana", *task.AssigneeID)
	assert.Len(t, repo.tasks, 1)

	batch := ledger.last()
	require.Equal(t, []activity.Type{activity.TypeTaskCreated, activity.TypeTaskAssigned}, types(batch))
	assert.Equal(t, "owner", batch[0].ActorID)
	assert.Equal(t, "", batch[0].TargetUserID)
	assert.Equal(t, "todo", batch[0].Metadata["status"])
	assert.Equal(t, "ana", batch[1].TargetUserID)
	assert.Equal(t, "Write report", batch[1].Metadata["title"])
	assert.Equal(t, activity.TaskEvent{TaskID: task.ID, Kind: activity.TypeTaskAssigned}, batch[1].Event)
}

func TestService_Create_Validation(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", CreateInput{Title: " "})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "owner", CreateInput{Title: "x", Status: "blocked"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, "owner", CreateInput{Title: "x", Priority: "urgent"})
	require.ErrorIs(t, err, ErrInvalidInput)

	// asignado inexistente: no se guarda nada
	_, err = svc.Create(ctx, "owner", CreateInput{Title: "x", AssigneeID: "ghost"})
	var ref *activity.ReferenceNotFoundError
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, activity.EntityUser, ref.Kind)

	assert.Empty(t, repo.tasks)
	assert.Empty(t, ledger.batches)
}

func TestService_Update_EmitsOneBatchWithSpecificActivities(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report", AssigneeID: "ana"})
	require.NoError(t, err)

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, "owner", task.ID, UpdateInput{
		Status:      sp("done"),
		Priority:    sp("high"),
		DueDateSet:  true,
		DueDate:     &due,
		AssigneeSet: true,
		AssigneeID:  sp("bruno"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, updated.Status)

	batch := ledger.last()
	require.Equal(t, []activity.Type{
		activity.TypeTaskUpdated,
		activity.TypeTaskStatusChanged,
		activity.TypeTaskCompleted,
		activity.TypeTaskPriorityChanged,
		activity.TypeTaskDueDateChanged,
		activity.TypeTaskUnassigned,
		activity.TypeTaskAssigned,
	}, types(batch))

	assert.Equal(t, []string{"status", "priority", "dueDate", "assignee"}, batch[0].Metadata["changes"])
	assert.Equal(t, "todo", batch[1].Metadata["oldStatus"])
	assert.Equal(t, "done", batch[1].Metadata["newStatus"])
	assert.Equal(t, "medium", batch[3].Metadata["oldPriority"])
	assert.Equal(t, "", batch[4].Metadata["oldDueDate"])
	assert.Equal(t, "2026-02-01T00:00:00Z", batch[4].Metadata["newDueDate"])
	assert.Equal(t, "ana", batch[5].TargetUserID)
	assert.Equal(t, "bruno", batch[6].TargetUserID)
}

func TestService_Update_NoChangesWritesNothing(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report"})
	require.NoError(t, err)
	before := len(ledger.batches)

	_, err = svc.Update(ctx, "owner", task.ID, UpdateInput{Title: sp("Write report"), Status: sp("todo")})
	require.NoError(t, err)
	assert.Len(t, ledger.batches, before)
}

func TestService_Update_ClearsAssigneeAndDueDate(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report", AssigneeID: "ana", DueDate: &due})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "owner", task.ID, UpdateInput{DueDateSet: true, AssigneeSet: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Nil(t, updated.DueDate)

	assert.Equal(t, []activity.Type{
		activity.TypeTaskUpdated,
		activity.TypeTaskDueDateChanged,
		activity.TypeTaskUnassigned,
	}, types(ledger.last()))
}

func TestService_Visibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report", AssigneeID: "ana"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "ana", task.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bruno", task.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "bruno", task.ID, UpdateInput{Title: sp("hack")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, "owner", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	list, err := svc.List(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Delete_RecordsBeforeRemoving(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report", AssigneeID: "ana"})
	require.NoError(t, err)

	// 1) el asignado no puede borrar
	require.ErrorIs(t, svc.Delete(ctx, "ana", task.ID), ErrForbidden)

	// 2) si el ledger falla, la tarea sigue
	ledger.err = errors.New("ledger down")
	require.Error(t, svc.Delete(ctx, "owner", task.ID))
	assert.Contains(t, repo.tasks, task.ID)

	// 3) el dueño borra; queda task_deleted con el título congelado
	ledger.err = nil
	require.NoError(t, svc.Delete(ctx, "owner", task.ID))
	assert.NotContains(t, repo.tasks, task.ID)

	last := ledger.last()
	require.Len(t, last, 1)
	assert.Equal(t, activity.TypeTaskDeleted, last[0].Event.Type())
	assert.Equal(t, "Write report", last[0].Metadata["title"])
}

func TestService_AddComment_NotifiesOwner(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "owner", CreateInput{Title: "Write report", AssigneeID: "ana"})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, "ana", task.ID, "  looks good  ")
	require.NoError(t, err)
	assert.Equal(t, "looks good", c.Body)

	in := ledger.last()[0]
	assert.Equal(t, activity.TypeTaskCommentAdded, in.Event.Type())
	assert.Equal(t, "owner", in.TargetUserID)
	assert.Equal(t, c.ID, in.Metadata["commentId"])
	assert.Equal(t, "looks good", in.Metadata["preview"])

	_, err = svc.AddComment(ctx, "owner", task.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "", ledger.last()[0].TargetUserID)

	_, err = svc.AddComment(ctx, "bruno", task.ID, "hi")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AddComment(ctx, "ana", task.ID, " ")
	require.ErrorIs(t, err, ErrInvalidInput)

	comments, err := svc.ListComments(ctx, "owner", task.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "ábc…", preview("ábcdef", 3))
}
