package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo   Repository
	ledger activity.Appender
	users  activity.UserLookup
	log    logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, ledger activity.Appender, users activity.UserLookup, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		users:  users,
		log:    log.With(map[string]any{"component": "tasks"}),
		now:    time.Now,
	}
}

type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	AssigneeID  string
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Task, error) {
	ownerID = strings.TrimSpace(ownerID)
	title := strings.TrimSpace(in.Title)
	if ownerID == "" || title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	status, err := parseStatus(in.Status, StatusTodo)
	if err != nil {
		return Task{}, err
	}
	priority, err := parsePriority(in.Priority, PriorityMedium)
	if err != nil {
		return Task{}, err
	}

	var assignee *string
	if a := strings.TrimSpace(in.AssigneeID); a != "" {
		if err := s.requireUser(ctx, a); err != nil {
			return Task{}, err
		}
		assignee = &a
	}

	now := s.now().UTC()
	t := Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		AssigneeID:  assignee,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     utcPtr(in.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Task{}, err
	}

	batch := []activity.Input{s.input(t, ownerID, activity.TypeTaskCreated, "", "Created task %q", activity.Metadata{
		"status":   string(t.Status),
		"priority": string(t.Priority),
	})}
	if assignee != nil {
		batch = append(batch, s.input(t, ownerID, activity.TypeTaskAssigned, *assignee, "Assigned task %q", nil))
	}
	if _, err := s.ledger.AppendBatch(ctx, batch); err != nil {
		return Task{}, fmt.Errorf("recording task creation: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, userID, taskID string) (Task, error) {
	t, err := s.repo.GetByID(ctx, strings.TrimSpace(taskID))
	if err != nil {
		return Task{}, err
	}
	if !t.CanView(userID) {
		return Task{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListVisible(ctx, userID)
}

// UpdateInput: punteros nil = no tocar. Para limpiar dueDate/assignee se usa *Set con valor nil.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string

	DueDateSet bool
	DueDate    *time.Time

	AssigneeSet bool
	AssigneeID  *string
}

// Update persiste la tarea y escribe en un solo batch task_updated más una
// actividad específica por cada campo con semántica propia.
func (s *Service) Update(ctx context.Context, userID, taskID string, in UpdateInput) (Task, error) {
	cur, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return Task{}, err
	}
	next := cur

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Task{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		next.Title = title
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		if next.Status, err = parseStatus(*in.Status, cur.Status); err != nil {
			return Task{}, err
		}
	}
	if in.Priority != nil {
		if next.Priority, err = parsePriority(*in.Priority, cur.Priority); err != nil {
			return Task{}, err
		}
	}
	if in.DueDateSet {
		next.DueDate = utcPtr(in.DueDate)
	}
	if in.AssigneeSet {
		next.AssigneeID = nil
		if in.AssigneeID != nil {
			if a := strings.TrimSpace(*in.AssigneeID); a != "" {
				if err := s.requireUser(ctx, a); err != nil {
					return Task{}, err
				}
				next.AssigneeID = &a
			}
		}
	}

	changes := diff(cur, next)
	if len(changes) == 0 {
		return cur, nil
	}

	next.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, next); err != nil {
		return Task{}, err
	}

	if _, err := s.ledger.AppendBatch(ctx, s.updateBatch(userID, cur, next, changes)); err != nil {
		return Task{}, fmt.Errorf("recording task update: %w", err)
	}
	return next, nil
}

func (s *Service) updateBatch(actorID string, cur, next Task, changes []string) []activity.Input {
	batch := []activity.Input{
		s.input(next, actorID, activity.TypeTaskUpdated, "", "Updated task %q", activity.Metadata{"changes": changes}),
	}

	if cur.Status != next.Status {
		batch = append(batch, s.input(next, actorID, activity.TypeTaskStatusChanged, "", "Changed status of task %q", activity.Metadata{
			"oldStatus": string(cur.Status),
			"newStatus": string(next.Status),
		}))
		if next.Status == StatusDone {
			batch = append(batch, s.input(next, actorID, activity.TypeTaskCompleted, "", "Completed task %q", nil))
		}
	}
	if cur.Priority != next.Priority {
		batch = append(batch, s.input(next, actorID, activity.TypeTaskPriorityChanged, "", "Changed priority of task %q", activity.Metadata{
			"oldPriority": string(cur.Priority),
			"newPriority": string(next.Priority),
		}))
	}
	if !sameTime(cur.DueDate, next.DueDate) {
		batch = append(batch, s.input(next, actorID, activity.TypeTaskDueDateChanged, "", "Changed due date of task %q", activity.Metadata{
			"oldDueDate": formatTime(cur.DueDate),
			"newDueDate": formatTime(next.DueDate),
		}))
	}

	oldA, newA := deref(cur.AssigneeID), deref(next.AssigneeID)
	if oldA != newA {
		if oldA != "" {
			batch = append(batch, s.input(next, actorID, activity.TypeTaskUnassigned, oldA, "Unassigned task %q", nil))
		}
		if newA != "" {
			batch = append(batch, s.input(next, actorID, activity.TypeTaskAssigned, newA, "Assigned task %q", nil))
		}
	}
	return batch
}

// Delete: solo el dueño. task_deleted se escribe antes de borrar porque el
// resolver exige que la tarea exista; el historial queda en el ledger.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	t, err := s.repo.GetByID(ctx, strings.TrimSpace(taskID))
	if err != nil {
		return err
	}
	if t.OwnerID != userID {
		return ErrForbidden
	}

	if _, err := s.ledger.Append(ctx, s.input(t, userID, activity.TypeTaskDeleted, "", "Deleted task %q", nil)); err != nil {
		return fmt.Errorf("recording task deletion: %w", err)
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}
	s.log.Info("task deleted", map[string]any{"task_id": t.ID, "user_id": userID})
	return nil
}

func (s *Service) AddComment(ctx context.Context, userID, taskID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}
	t, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return Comment{}, err
	}

	c := Comment{
		ID:        uuid.NewString(),
		TaskID:    t.ID,
		AuthorID:  userID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return Comment{}, err
	}

	// el dueño se entera si comenta otro
	target := ""
	if t.OwnerID != userID {
		target = t.OwnerID
	}
	if _, err := s.ledger.Append(ctx, s.input(t, userID, activity.TypeTaskCommentAdded, target, "Commented on task %q", activity.Metadata{
		"commentId": c.ID,
		"preview":   preview(body, 80),
	})); err != nil {
		return Comment{}, fmt.Errorf("recording comment: %w", err)
	}
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, userID, taskID string) ([]Comment, error) {
	t, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, t.ID)
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	if s.users == nil {
		return fmt.Errorf("user lookup not configured")
	}
	ok, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &activity.ReferenceNotFoundError{Kind: activity.EntityUser, ID: id}
	}
	return nil
}

// input arma una actividad de tarea; el título queda congelado en metadata.
func (s *Service) input(t Task, actorID string, typ activity.Type, target, format string, meta activity.Metadata) activity.Input {
	m := activity.Metadata{"title": t.Title}
	for k, v := range meta {
		m[k] = v
	}
	return activity.Input{
		Event:        activity.TaskEvent{TaskID: t.ID, Kind: typ},
		ActorID:      actorID,
		TargetUserID: target,
		Description:  fmt.Sprintf(format, t.Title),
		Metadata:     m,
	}
}

func diff(a, b Task) []string {
	var out []string
	if a.Title != b.Title {
		out = append(out, "title")
	}
	if a.Description != b.Description {
		out = append(out, "description")
	}
	if a.Status != b.Status {
		out = append(out, "status")
	}
	if a.Priority != b.Priority {
		out = append(out, "priority")
	}
	if !sameTime(a.DueDate, b.DueDate) {
		out = append(out, "dueDate")
	}
	if deref(a.AssigneeID) != deref(b.AssigneeID) {
		out = append(out, "assignee")
	}
	return out
}

func parseStatus(raw string, def Status) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	st := Status(raw)
	if !st.Valid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrInvalidInput, raw)
	}
	return st, nil
}

func parsePriority(raw string, def Priority) (Priority, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrInvalidInput, raw)
	}
	return p, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
