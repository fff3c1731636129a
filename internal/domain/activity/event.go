package activity

import "strings"

// Event es la unión cerrada de variantes de actividad.
// Solo TaskEvent, NoteEvent y AccountEvent la implementan.
type Event interface {
	Type() Type
	isEvent()
}

type TaskEvent struct {
	TaskID string
	Kind   Type
}

type NoteEvent struct {
	NoteID string
	Kind   Type
}

type AccountEvent struct {
	Kind Type
}

func (e TaskEvent) Type() Type    { return e.Kind }
func (e NoteEvent) Type() Type    { return e.Kind }
func (e AccountEvent) Type() Type { return e.Kind }

func (TaskEvent) isEvent()    {}
func (NoteEvent) isEvent()    {}
func (AccountEvent) isEvent() {}

// NewEvent arma la variante correcta a partir del tipo plano y las referencias
// (usado por el endpoint de creación directa y por los adapters de storage).
func NewEvent(t Type, taskID, noteID string) (Event, error) {
	taskID = strings.TrimSpace(taskID)
	noteID = strings.TrimSpace(noteID)

	cat, ok := t.Category()
	if !ok {
		return nil, validationf("unknown activity type %q", t)
	}

	switch cat {
	case CategoryTask:
		if taskID == "" {
			return nil, validationf("%s requires a task id", t)
		}
		if noteID != "" {
			return nil, validationf("%s cannot reference a note", t)
		}
		return TaskEvent{TaskID: taskID, Kind: t}, nil
	case CategoryNote:
		if noteID == "" {
			return nil, validationf("%s requires a note id", t)
		}
		if taskID != "" {
			return nil, validationf("%s cannot reference a task", t)
		}
		return NoteEvent{NoteID: noteID, Kind: t}, nil
	default:
		if taskID != "" || noteID != "" {
			return nil, validationf("%s cannot reference a task or note", t)
		}
		return AccountEvent{Kind: t}, nil
	}
}

func validateEvent(ev Event) error {
	if ev == nil {
		return validationf("event is required")
	}

	var want Category
	switch e := ev.(type) {
	case TaskEvent:
		if strings.TrimSpace(e.TaskID) == "" {
			return validationf("%s requires a task id", e.Kind)
		}
		want = CategoryTask
	case NoteEvent:
		if strings.TrimSpace(e.NoteID) == "" {
			return validationf("%s requires a note id", e.Kind)
		}
		want = CategoryNote
	case AccountEvent:
		want = CategoryAccount
	default:
		return validationf("unsupported event %T", ev)
	}

	got, ok := ev.Type().Category()
	if !ok {
		return validationf("unknown activity type %q", ev.Type())
	}
	if got != want {
		return validationf("activity type %s is not a %s event", ev.Type(), want)
	}
	return nil
}
