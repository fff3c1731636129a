package notifications

import (
	"context"
	"testing"
	"time"

	"productivity-api/internal/adapters/storage/memory"
	"productivity-api/internal/domain/activity"
	"productivity-api/internal/domain/tasks"
	"productivity-api/internal/domain/users"
	"productivity-api/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Projector sobre el ledger real (service + repo en memoria), moviendo el reloj
// alrededor del borde de la ventana de lectura.
func TestProjector_OverLedger_ReadWindowBoundary(t *testing.T) {
	ctx := context.Background()

	userRepo := memory.NewUserRepo()
	require.NoError(t, userRepo.Create(ctx, users.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, userRepo.Create(ctx, users.User{ID: "u2", Name: "Bruno", Email: "bruno@example.com"}))

	taskRepo := memory.NewTaskRepo()
	require.NoError(t, taskRepo.Create(ctx, tasks.Task{ID: "t1", OwnerID: "u1", Title: "Write report", Status: tasks.StatusTodo}))

	svc := activity.NewService(memory.NewActivityRepo(), activity.Directory{
		Users: users.NewLookup(userRepo),
		Tasks: tasks.NewLookup(taskRepo),
	}, logger.Nop())

	recs, err := svc.AppendBatch(ctx, []activity.Input{
		{
			Event:       activity.TaskEvent{TaskID: "t1", Kind: activity.TypeTaskCreated},
			ActorID:     "u1",
			Description: "created",
			Metadata:    activity.Metadata{"title": "Write report"},
		},
		{
			Event:        activity.TaskEvent{TaskID: "t1", Kind: activity.TypeTaskAssigned},
			ActorID:      "u1",
			TargetUserID: "u2",
			Description:  "assigned",
			Metadata:     activity.Metadata{"title": "Write report"},
		},
	})
	require.NoError(t, err)
	createdAt := recs[0].CreatedAt

	var clock time.Time
	p := NewProjector(svc, nil, 0)
	p.now = func() time.Time { return clock }

	// justo en el borde: todavía sin leer
	clock = createdAt.Add(DefaultReadWindow)

	n, err := p.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	feed, err := p.GetNotifications(ctx, "u1", 1, 10, false)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.False(t, feed.Items[0].IsRead)
	assert.Equal(t, 2, feed.UnreadCount)

	unread, err := p.GetNotifications(ctx, "u2", 1, 10, true)
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, activity.TypeTaskAssigned, unread.Items[0].Type)
	assert.Equal(t, `Ana assigned task "Write report" to you`, unread.Items[0].Message)

	// un instante después pasan a leídas
	clock = createdAt.Add(DefaultReadWindow + time.Nanosecond)

	n, err = p.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	feed, err = p.GetNotifications(ctx, "u1", 1, 10, false)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.True(t, feed.Items[0].IsRead)
	assert.True(t, feed.Items[1].IsRead)

	unread, err = p.GetNotifications(ctx, "u2", 1, 10, true)
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
	assert.Equal(t, 0, unread.UnreadCount)
}
