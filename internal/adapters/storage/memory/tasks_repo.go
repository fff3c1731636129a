package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"productivity-api/internal/domain/tasks"
)

type taskRepo struct {
	mu       sync.RWMutex
	byID     map[string]tasks.Task
	comments map[string][]tasks.Comment // por taskID
}

func NewTaskRepo() tasks.Repository {
	return &taskRepo{
		byID:     make(map[string]tasks.Task),
		comments: make(map[string][]tasks.Comment),
	}
}

func (r *taskRepo) Create(ctx context.Context, t tasks.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task id required")
	}
	if _, exists := r.byID[t.ID]; exists {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	r.byID[t.ID] = cloneTask(t)
	return nil
}

func (r *taskRepo) Update(ctx context.Context, t tasks.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID]; !exists {
		return tasks.ErrNotFound
	}
	r.byID[t.ID] = cloneTask(t)
	return nil
}

// Delete borra la tarea y sus comentarios.
func (r *taskRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return tasks.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.comments, id)
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (tasks.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return tasks.Task{}, tasks.ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *taskRepo) ListVisible(ctx context.Context, userID string) ([]tasks.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tasks.Task, 0)
	for _, t := range r.byID {
		if t.CanView(userID) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *taskRepo) ListByIDs(ctx context.Context, ids []string) ([]tasks.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tasks.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.byID[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (r *taskRepo) AddComment(ctx context.Context, c tasks.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.TaskID]; !exists {
		return tasks.ErrNotFound
	}
	r.comments[c.TaskID] = append(r.comments[c.TaskID], c)
	return nil
}

func (r *taskRepo) ListComments(ctx context.Context, taskID string) ([]tasks.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tasks.Comment, len(r.comments[taskID]))
	copy(out, r.comments[taskID])
	return out, nil
}

func cloneTask(t tasks.Task) tasks.Task {
	c := t
	c.AssigneeID = cloneStr(t.AssigneeID)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}
