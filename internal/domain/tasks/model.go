package tasks

import "time"

// Status del flujo de una tarea.
// @Enum todo, inProgress, done
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inProgress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// @Enum low, medium, high
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID         string
	OwnerID    string
	AssigneeID *string

	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanView: dueño o asignado.
func (t Task) CanView(userID string) bool {
	return t.OwnerID == userID || (t.AssigneeID != nil && *t.AssigneeID == userID)
}

type Comment struct {
	ID       string
	TaskID   string
	AuthorID string
	Body     string

	CreatedAt time.Time
}
