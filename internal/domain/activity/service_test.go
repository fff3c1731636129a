package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"productivity-api/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *testRepo, *testDirectory, *testClock) {
	t.Helper()

	repo := &testRepo{}
	dir := newTestDirectory()
	clock := &testClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}

	svc := NewService(repo, dir.directory(), logger.Nop())
	svc.now = clock.Now
	svc.newID = sequentialIDs()
	return svc, repo, dir, clock
}

func taskInput(kind Type, taskID, actor string) Input {
	return Input{
		Event:       TaskEvent{TaskID: taskID, Kind: kind},
		ActorID:     actor,
		Description: string(kind),
	}
}

func TestService_Append_StampsIDAndCreatedAt(t *testing.T) {
	svc, repo, _, clock := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Append(ctx, Input{
		Event:        TaskEvent{TaskID: "t1", Kind: TypeTaskAssigned},
		ActorID:      "u1",
		TargetUserID: "u2",
		Description:  "  assigned the task  ",
		Metadata:     Metadata{"title": "Write report"},
	})
	require.NoError(t, err)

	assert.Equal(t, "act-0001", rec.ID)
	assert.Equal(t, TypeTaskAssigned, rec.Type)
	assert.Equal(t, clock.now, rec.CreatedAt)
	assert.Equal(t, "assigned the task", rec.Description)
	require.NotNil(t, rec.TaskID)
	assert.Equal(t, "t1", *rec.TaskID)
	assert.Nil(t, rec.NoteID)
	require.NotNil(t, rec.TargetUserID)
	assert.Equal(t, "u2", *rec.TargetUserID)
	assert.Equal(t, 1, repo.len())
}

func TestService_Append_CreatedAtHasMicrosecondPrecision(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()
	clock.now = time.Date(2026, 1, 10, 12, 0, 0, 123456789, time.UTC)

	rec, err := svc.Append(ctx, taskInput(TypeTaskCreated, "t1", "u1"))
	require.NoError(t, err)

	// TIMESTAMPTZ guarda microsegundos: lo devuelto debe coincidir con lo que se lee
	assert.Equal(t, 0, rec.CreatedAt.Nanosecond()%1000)
	assert.Equal(t, time.Date(2026, 1, 10, 12, 0, 0, 123456000, time.UTC), rec.CreatedAt)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestService_Append_ResolvesTrimmedReferences(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Append(ctx, taskInput(TypeTaskUpdated, " t1 ", "u1"))
	require.NoError(t, err)
	require.NotNil(t, rec.TaskID)
	assert.Equal(t, "t1", *rec.TaskID)

	rec, err = svc.Append(ctx, Input{
		Event:       NoteEvent{NoteID: "\tn1 ", Kind: TypeNoteUpdated},
		ActorID:     " u1",
		Description: "edited",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.NoteID)
	assert.Equal(t, "n1", *rec.NoteID)
}

func TestService_Append_CopiesNestedMetadata(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	changes := []string{"status", "priority"}
	extra := map[string]any{"tags": []any{"a"}}
	rec, err := svc.Append(ctx, Input{
		Event:       TaskEvent{TaskID: "t1", Kind: TypeTaskUpdated},
		ActorID:     "u1",
		Description: "updated",
		Metadata:    Metadata{"changes": changes, "extra": extra},
	})
	require.NoError(t, err)

	changes[0] = "title"
	extra["tags"].([]any)[0] = "b"

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "priority"}, got.Metadata["changes"])
	assert.Equal(t, map[string]any{"tags": []any{"a"}}, got.Metadata["extra"])
}

func TestService_Append_CopiesMetadata(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	meta := Metadata{"title": "Write report"}
	rec, err := svc.Append(ctx, Input{
		Event:       TaskEvent{TaskID: "t1", Kind: TypeTaskCreated},
		ActorID:     "u1",
		Description: "created",
		Metadata:    meta,
	})
	require.NoError(t, err)

	// mutar el mapa del caller no cambia lo persistido
	meta["title"] = "otro"

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Metadata["title"])
}

func TestService_Append_Validation(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]Input{
		"sin evento":        {ActorID: "u1", Description: "x"},
		"sin actor":         {Event: AccountEvent{Kind: TypeUserLogin}, Description: "x"},
		"sin descripción":   {Event: AccountEvent{Kind: TypeUserLogin}, ActorID: "u1", Description: "   "},
		"tarea sin id":      {Event: TaskEvent{Kind: TypeTaskCreated}, ActorID: "u1", Description: "x"},
		"tipo desconocido":  {Event: AccountEvent{Kind: "task_archived"}, ActorID: "u1", Description: "x"},
		"variante cruzada":  {Event: NoteEvent{NoteID: "n1", Kind: TypeTaskCreated}, ActorID: "u1", Description: "x"},
		"cuenta como tarea": {Event: TaskEvent{TaskID: "t1", Kind: TypeUserLogin}, ActorID: "u1", Description: "x"},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Append(ctx, in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Equal(t, 0, repo.len())
}

func TestService_Append_ReferenceNotFound(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	metrics := newTestMetrics()
	svc.SetMetrics(metrics)
	ctx := context.Background()

	_, err := svc.Append(ctx, taskInput(TypeTaskUpdated, "missing", "u1"))
	require.Error(t, err)

	var ref *ReferenceNotFoundError
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, EntityTask, ref.Kind)
	assert.Equal(t, "missing", ref.ID)
	assert.True(t, IsReferenceNotFound(err))

	_, err = svc.Append(ctx, Input{
		Event:       NoteEvent{NoteID: "nope", Kind: TypeNoteUpdated},
		ActorID:     "u1",
		Description: "x",
	})
	require.True(t, IsReferenceNotFound(err))

	_, err = svc.Append(ctx, Input{
		Event:        TaskEvent{TaskID: "t1", Kind: TypeTaskAssigned},
		ActorID:      "u1",
		TargetUserID: "ghost",
		Description:  "x",
	})
	require.True(t, errors.As(err, &ref))
	assert.Equal(t, EntityUser, ref.Kind)

	assert.Equal(t, 0, repo.len())
	assert.Equal(t, 1, metrics.missing[EntityTask])
	assert.Equal(t, 1, metrics.missing[EntityNote])
	assert.Equal(t, 1, metrics.missing[EntityUser])
}

func TestService_AppendBatch_SharedTimestampAndOrderedIDs(t *testing.T) {
	svc, repo, _, clock := newTestService(t)
	ctx := context.Background()

	recs, err := svc.AppendBatch(ctx, []Input{
		taskInput(TypeTaskUpdated, "t1", "u1"),
		taskInput(TypeTaskStatusChanged, "t1", "u1"),
		taskInput(TypeTaskCompleted, "t1", "u1"),
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	for i, rec := range recs {
		assert.Equal(t, clock.now, rec.CreatedAt)
		if i > 0 {
			assert.Less(t, recs[i-1].ID, rec.ID)
		}
	}
	assert.Equal(t, 3, repo.len())
}

func TestService_AppendBatch_IsAllOrNothing(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	// 1) una referencia inválida en el medio cancela todo el lote
	_, err := svc.AppendBatch(ctx, []Input{
		taskInput(TypeTaskUpdated, "t1", "u1"),
		taskInput(TypeTaskStatusChanged, "missing", "u1"),
		taskInput(TypeTaskCompleted, "t1", "u1"),
	})
	require.True(t, IsReferenceNotFound(err))
	assert.Equal(t, 0, repo.len())

	// 2) una entrada inválida también
	_, err = svc.AppendBatch(ctx, []Input{
		taskInput(TypeTaskUpdated, "t1", "u1"),
		{Event: TaskEvent{TaskID: "t1", Kind: TypeTaskCompleted}, ActorID: "u1"},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, repo.len())

	// 3) falla del store: se propaga y no se cuentan métricas
	metrics := newTestMetrics()
	svc.SetMetrics(metrics)
	repo.failWrite = errors.New("disk full")
	_, err = svc.AppendBatch(ctx, []Input{taskInput(TypeTaskUpdated, "t1", "u1")})
	require.Error(t, err)
	assert.Empty(t, metrics.appended)

	_, err = svc.AppendBatch(ctx, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_Query_TieBreakByIDAscending(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, taskInput(TypeTaskCreated, "t1", "u1"))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.AppendBatch(ctx, []Input{
		taskInput(TypeTaskUpdated, "t1", "u1"),
		taskInput(TypeTaskStatusChanged, "t1", "u1"),
		taskInput(TypeTaskCompleted, "t1", "u1"),
	})
	require.NoError(t, err)

	page, err := svc.Query(ctx, Query{Filter: Filter{TaskID: "t1"}})
	require.NoError(t, err)

	got := make([]Type, 0, len(page.Items))
	for _, v := range page.Items {
		got = append(got, v.Type)
	}
	// createdAt desc; dentro del mismo instante, id asc
	assert.Equal(t, []Type{
		TypeTaskUpdated,
		TypeTaskStatusChanged,
		TypeTaskCompleted,
		TypeTaskCreated,
	}, got)
}

func TestService_Query_ClampsPageToLast(t *testing.T) {
	svc, repo, _, clock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		clock.Advance(time.Second)
		_, err := svc.Append(ctx, taskInput(TypeTaskUpdated, "t1", "u1"))
		require.NoError(t, err)
	}

	page, err := svc.Query(ctx, Query{Page: 9999, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 2, repo.finds)
}

func TestService_Query_EmptyResultIsPageOne(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	page, err := svc.Query(context.Background(), Query{Page: 4})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.Pages)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestService_Query_LimitBounds(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	page, err := svc.Query(ctx, Query{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, page.Limit)

	page, err = svc.Query(ctx, Query{Limit: -3, Page: -1})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	assert.Equal(t, 1, page.Page)
}

func TestService_Query_RejectsUnknownSortAndTypes(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Query(ctx, Query{SortBy: "description"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Query(ctx, Query{SortOrder: "sideways"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Query(ctx, Query{Filter: Filter{Types: []Type{"task_archived"}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Query(ctx, Query{SortBy: "type", SortOrder: "ASC"})
	require.NoError(t, err)
}

func TestService_RelatedActivities_ActorOrTarget(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Append(ctx, taskInput(TypeTaskCreated, "t1", "u1"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = svc.Append(ctx, Input{
		Event:        TaskEvent{TaskID: "t1", Kind: TypeTaskAssigned},
		ActorID:      "u1",
		TargetUserID: "u2",
		Description:  "assigned",
	})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = svc.Append(ctx, Input{Event: AccountEvent{Kind: TypeUserLogin}, ActorID: "u2", Description: "login"})
	require.NoError(t, err)

	mine, err := svc.UserActivities(ctx, "u2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)

	related, err := svc.RelatedActivities(ctx, "u2", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, related.Total)
	assert.Equal(t, TypeUserLogin, related.Items[0].Type)
	assert.Equal(t, TypeTaskAssigned, related.Items[1].Type)

	_, err = svc.RelatedActivities(ctx, " ", 1, 10)
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_Enrich_DanglingReferencesAreNil(t *testing.T) {
	svc, _, dir, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Append(ctx, Input{
		Event:        TaskEvent{TaskID: "t1", Kind: TypeTaskAssigned},
		ActorID:      "u1",
		TargetUserID: "u2",
		Description:  "assigned",
	})
	require.NoError(t, err)

	v, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Actor)
	assert.Equal(t, "Ana", v.Actor.Name)
	require.NotNil(t, v.TargetUser)
	require.NotNil(t, v.Task)
	assert.Equal(t, "Write report", v.Task.Title)

	// la tarea y el target desaparecen; la fila sigue y los resúmenes quedan en nil
	delete(dir.tasks, "t1")
	delete(dir.users, "u2")

	v, err = svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Task)
	assert.Nil(t, v.TargetUser)
	require.NotNil(t, v.TaskID)
	assert.Equal(t, "t1", *v.TaskID)
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "act-9999")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestService_TaskHistory(t *testing.T) {
	svc, _, dir, clock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		_, err := svc.Append(ctx, Input{
			Event:       TaskEvent{TaskID: "t1", Kind: TypeTaskUpdated},
			ActorID:     "u1",
			Description: fmt.Sprintf("update %d", i),
		})
		require.NoError(t, err)
	}

	hist, err := svc.TaskHistory(ctx, "t1", 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "update 4", hist[0].Description)

	// sin la tarea en el store: 404 aunque el ledger tenga filas
	delete(dir.tasks, "t1")
	_, err = svc.TaskHistory(ctx, "t1", 3)
	require.ErrorIs(t, err, ErrNotFound)

	// pero el listado general sigue devolviéndolas
	page, err := svc.Query(ctx, Query{Filter: Filter{TaskID: "t1"}})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Nil(t, page.Items[0].Task)
}

func TestService_NoteHistory_UnknownNote(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.NoteHistory(context.Background(), "nope", 0)
	require.ErrorIs(t, err, ErrNotFound)

	hist, err := svc.NoteHistory(context.Background(), "n1", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestService_Count(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AppendBatch(ctx, []Input{
		taskInput(TypeTaskCreated, "t1", "u1"),
		taskInput(TypeTaskAssigned, "t1", "u2"),
	})
	require.NoError(t, err)

	n, err := svc.Count(ctx, Filter{ActorID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
