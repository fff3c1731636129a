package notifications

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"productivity-api/internal/domain/activity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test source (in-memory)
// -------------------------

type testSource struct {
	views []activity.View
}

func (s *testSource) matching(f activity.Filter) []activity.View {
	out := make([]activity.View, 0)
	for _, v := range s.views {
		if f.Involving != "" && !v.InvolvesUser(f.Involving) {
			continue
		}
		if f.CreatedFrom != nil && v.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *testSource) Query(ctx context.Context, q activity.Query) (activity.Page[activity.View], error) {
	all := s.matching(q.Filter)
	limit := q.Limit
	if limit < 1 {
		limit = activity.DefaultPageLimit
	}
	page := max(q.Page, 1)
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	return activity.Page[activity.View]{
		Items: all[start:end],
		Total: len(all),
		Page:  page,
		Limit: limit,
		Pages: (len(all) + limit - 1) / limit,
	}, nil
}

func (s *testSource) Count(ctx context.Context, f activity.Filter) (int, error) {
	return len(s.matching(f)), nil
}

var (
	testNow = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	ana     = activity.UserSummary{ID: "u1", Name: "Ana"}
	bruno   = activity.UserSummary{ID: "u2", Name: "Bruno"}
)

func strPtr(s string) *string { return &s }

func assignedView(id string, at time.Time) activity.View {
	return activity.View{
		Record: activity.Record{
			ID:           id,
			Type:         activity.TypeTaskAssigned,
			ActorID:      "u1",
			TargetUserID: strPtr("u2"),
			TaskID:       strPtr("t1"),
			Description:  "assigned",
			Metadata:     activity.Metadata{"title": "Write report"},
			CreatedAt:    at,
		},
		Actor:      &ana,
		TargetUser: &bruno,
		Task:       &activity.TaskSummary{ID: "t1", Title: "Write report", Status: "todo"},
	}
}

func newTestProjector(views ...activity.View) *Projector {
	p := NewProjector(&testSource{views: views}, nil, 0)
	p.now = func() time.Time { return testNow }
	return p
}

func TestProject_ActorAndTargetWording(t *testing.T) {
	v := assignedView("a1", testNow)

	asTarget := project(v, "u2", testNow.Add(-DefaultReadWindow))
	assert.Equal(t, `Ana assigned task "Write report" to you`, asTarget.Message)
	assert.False(t, asTarget.IsActor)
	assert.Equal(t, PriorityHigh, asTarget.Priority)
	assert.Equal(t, CategoryTask, asTarget.Category)
	assert.Equal(t, "t1", asTarget.RelatedEntityID)
	assert.Equal(t, activity.EntityTask, asTarget.RelatedEntityKind)

	asActor := project(v, "u1", testNow.Add(-DefaultReadWindow))
	assert.Equal(t, `You assigned task "Write report" to Bruno`, asActor.Message)
	assert.True(t, asActor.IsActor)

	self := v
	self.TargetUserID = strPtr("u1")
	self.TargetUser = &ana
	assert.Equal(t, `You assigned task "Write report" to yourself`, project(self, "u1", testNow).Message)
}

func TestProject_MetadataDrivenMessages(t *testing.T) {
	base := assignedView("a1", testNow)

	status := base
	status.Type = activity.TypeTaskStatusChanged
	status.Metadata = activity.Metadata{"title": "Write report", "oldStatus": "todo", "newStatus": "done"}
	assert.Equal(t, `Ana moved task "Write report" from todo to done`, project(status, "u2", testNow).Message)

	// metadata leída de JSONB llega como []any
	updated := base
	updated.Type = activity.TypeTaskUpdated
	updated.Metadata = activity.Metadata{"changes": []any{"title", "description"}}
	assert.Equal(t, `Ana updated task "Write report" (title, description)`, project(updated, "u2", testNow).Message)

	due := base
	due.Type = activity.TypeTaskDueDateChanged
	due.Metadata = activity.Metadata{"title": "Write report", "newDueDate": "2026-04-01T00:00:00Z"}
	assert.Equal(t, `Ana set the due date of task "Write report" to Apr 1, 2026`, project(due, "u2", testNow).Message)

	due.Metadata = activity.Metadata{"title": "Write report", "newDueDate": ""}
	assert.Equal(t, `Ana removed the due date of task "Write report"`, project(due, "u2", testNow).Message)
}

func TestProject_FrozenTitleWinsOverCurrent(t *testing.T) {
	v := assignedView("a1", testNow)
	v.Task = &activity.TaskSummary{ID: "t1", Title: "Renamed"}
	assert.Contains(t, project(v, "u2", testNow).Message, `"Write report"`)

	// sin título congelado y con la tarea borrada
	v.Metadata = nil
	v.Task = nil
	assert.Contains(t, project(v, "u2", testNow).Message, `"untitled"`)
}

func TestProject_UnknownTypeUsesDefaultRule(t *testing.T) {
	v := activity.View{Record: activity.Record{
		ID:          "a1",
		Type:        "legacy_import",
		ActorID:     "u1",
		Description: "Imported 3 tasks",
		CreatedAt:   testNow,
	}}

	n := project(v, "u1", testNow)
	assert.Equal(t, "System activity", n.Title)
	assert.Equal(t, "Imported 3 tasks", n.Message)
	assert.Equal(t, CategorySystem, n.Category)
	assert.Equal(t, PriorityLow, n.Priority)
	assert.Equal(t, "u1", n.RelatedEntityID)
	assert.Equal(t, activity.EntityUser, n.RelatedEntityKind)
}

func TestProject_AccountEventsFromAnotherActor(t *testing.T) {
	v := activity.View{
		Record: activity.Record{
			ID:           "a1",
			Type:         activity.TypeUserLogin,
			ActorID:      "u1",
			TargetUserID: strPtr("u2"),
			Description:  "login",
			CreatedAt:    testNow,
		},
		Actor:      &ana,
		TargetUser: &bruno,
	}
	assert.Equal(t, "Ana signed in to your account", project(v, "u2", testNow).Message)
	assert.Equal(t, "You signed in", project(v, "u1", testNow).Message)
}

func TestProject_EveryTypeHasARule(t *testing.T) {
	for _, typ := range activity.Types() {
		_, ok := rules[typ]
		assert.True(t, ok, "missing rule for %s", typ)
	}
}

func TestProjector_ReadStateDerivedFromAge(t *testing.T) {
	p := newTestProjector(
		assignedView("recent", testNow.Add(-6*24*time.Hour)),
		assignedView("old", testNow.Add(-8*24*time.Hour)),
	)

	feed, err := p.GetNotifications(context.Background(), "u2", 1, 10, false)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)

	assert.Equal(t, "recent", feed.Items[0].ID)
	assert.False(t, feed.Items[0].IsRead)
	assert.Equal(t, "old", feed.Items[1].ID)
	assert.True(t, feed.Items[1].IsRead)
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestProjector_UnreadCountIgnoresPaging(t *testing.T) {
	views := make([]activity.View, 0, 18)
	for i := 0; i < 15; i++ {
		views = append(views, assignedView(fmt.Sprintf("new-%02d", i), testNow.Add(-time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		views = append(views, assignedView(fmt.Sprintf("old-%02d", i), testNow.Add(-30*24*time.Hour)))
	}
	p := newTestProjector(views...)
	ctx := context.Background()

	feed, err := p.GetNotifications(ctx, "u2", 2, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 18, feed.Total)
	assert.Len(t, feed.Items, 8)
	assert.Equal(t, 15, feed.UnreadCount)

	unread, err := p.GetNotifications(ctx, "u2", 1, 10, true)
	require.NoError(t, err)
	assert.Equal(t, 15, unread.Total)
	assert.Equal(t, 15, unread.UnreadCount)
	for _, n := range unread.Items {
		assert.False(t, n.IsRead)
	}

	n, err := p.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	// un tercero no ve nada
	n, err = p.UnreadCount(ctx, "u9")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProjector_ReadOperationsDoNotChangeState(t *testing.T) {
	p := newTestProjector(assignedView("a1", testNow.Add(-time.Hour)))
	ctx := context.Background()

	before, err := p.UnreadCount(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, p.MarkAsRead(ctx, "u2", "a1"))
	require.NoError(t, p.MarkAllAsRead(ctx, "u2"))
	require.NoError(t, p.Delete(ctx, "u2", "a1"))

	after, err := p.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	feed, err := p.GetNotifications(ctx, "u2", 1, 10, false)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.False(t, feed.Items[0].IsRead)
}

func TestProjector_InvalidInput(t *testing.T) {
	p := newTestProjector()
	ctx := context.Background()

	_, err := p.GetNotifications(ctx, " ", 1, 10, false)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = p.UnreadCount(ctx, "")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, p.MarkAsRead(ctx, "u1", ""), ErrInvalidInput)
	require.ErrorIs(t, p.MarkAllAsRead(ctx, ""), ErrInvalidInput)
	require.ErrorIs(t, p.Delete(ctx, "", "a1"), ErrInvalidInput)
}

func TestProjector_CustomWindow(t *testing.T) {
	p := NewProjector(&testSource{views: []activity.View{assignedView("a1", testNow.Add(-2*time.Hour))}}, NoopReadState{}, time.Hour)
	p.now = func() time.Time { return testNow }

	n, err := p.UnreadCount(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
