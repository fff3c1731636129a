package activity

import (
	"context"
	"fmt"
	"strings"
)

// Ports hacia los stores externos. Los implementan los services de users/tasks/notes.

type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
	UserSummaries(ctx context.Context, ids []string) (map[string]UserSummary, error)
}

type TaskLookup interface {
	TaskExists(ctx context.Context, id string) (bool, error)
	TaskSummaries(ctx context.Context, ids []string) (map[string]TaskSummary, error)
}

type NoteLookup interface {
	NoteExists(ctx context.Context, id string) (bool, error)
	NoteSummaries(ctx context.Context, ids []string) (map[string]NoteSummary, error)
}

type Directory struct {
	Users UserLookup
	Tasks TaskLookup
	Notes NoteLookup
}

// Resolver valida, al momento de escribir, que las referencias de la actividad existan.
// No se vuelve a validar en lectura.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

func (r *Resolver) Resolve(ctx context.Context, in Input) error {
	if err := r.check(ctx, EntityUser, in.ActorID); err != nil {
		return err
	}

	switch ev := in.Event.(type) {
	case TaskEvent:
		if err := r.check(ctx, EntityTask, ev.TaskID); err != nil {
			return err
		}
	case NoteEvent:
		if err := r.check(ctx, EntityNote, ev.NoteID); err != nil {
			return err
		}
	case AccountEvent:
		// sin referencia de entidad
	default:
		return validationf("unsupported event %T", in.Event)
	}

	if target := strings.TrimSpace(in.TargetUserID); target != "" && target != in.ActorID {
		return r.check(ctx, EntityUser, target)
	}
	return nil
}

func (r *Resolver) check(ctx context.Context, kind EntityKind, id string) error {
	var (
		ok  bool
		err error
	)
	switch kind {
	case EntityTask:
		if r.dir.Tasks == nil {
			return fmt.Errorf("task lookup not configured")
		}
		ok, err = r.dir.Tasks.TaskExists(ctx, id)
	case EntityNote:
		if r.dir.Notes == nil {
			return fmt.Errorf("note lookup not configured")
		}
		ok, err = r.dir.Notes.NoteExists(ctx, id)
	case EntityUser:
		if r.dir.Users == nil {
			return fmt.Errorf("user lookup not configured")
		}
		ok, err = r.dir.Users.UserExists(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("resolving %s %s: %w", kind, id, err)
	}
	if !ok {
		return &ReferenceNotFoundError{Kind: kind, ID: id}
	}
	return nil
}
