package activity

import (
	"sort"
	"strings"
)

type Type string

const (
	TypeTaskCreated         Type = "task_created"
	TypeTaskUpdated         Type = "task_updated"
	TypeTaskDeleted         Type = "task_deleted"
	TypeTaskStatusChanged   Type = "task_status_changed"
	TypeTaskCompleted       Type = "task_completed"
	TypeTaskAssigned        Type = "task_assigned"
	TypeTaskUnassigned      Type = "task_unassigned"
	TypeTaskDueDateChanged  Type = "task_due_date_changed"
	TypeTaskPriorityChanged Type = "task_priority_changed"
	TypeTaskCommentAdded    Type = "task_comment_added"

	TypeNoteCreated  Type = "note_created"
	TypeNoteUpdated  Type = "note_updated"
	TypeNoteDeleted  Type = "note_deleted"
	TypeNotePinned   Type = "note_pinned"
	TypeNoteUnpinned Type = "note_unpinned"
	TypeNoteShared   Type = "note_shared"

	TypeUserRegistered  Type = "user_registered"
	TypeUserLogin       Type = "user_login"
	TypeUserLogout      Type = "user_logout"
	TypeProfileUpdated  Type = "profile_updated"
	TypePasswordChanged Type = "password_changed"
	TypeAvatarUpdated   Type = "avatar_updated"
)

// Category agrupa los tipos según la entidad a la que se refieren.
type Category string

const (
	CategoryTask    Category = "task"
	CategoryNote    Category = "note"
	CategoryAccount Category = "account"
)

var typeCategories = map[Type]Category{
	TypeTaskCreated:         CategoryTask,
	TypeTaskUpdated:         CategoryTask,
	TypeTaskDeleted:         CategoryTask,
	TypeTaskStatusChanged:   CategoryTask,
	TypeTaskCompleted:       CategoryTask,
	TypeTaskAssigned:        CategoryTask,
	TypeTaskUnassigned:      CategoryTask,
	TypeTaskDueDateChanged:  CategoryTask,
	TypeTaskPriorityChanged: CategoryTask,
	TypeTaskCommentAdded:    CategoryTask,

	TypeNoteCreated:  CategoryNote,
	TypeNoteUpdated:  CategoryNote,
	TypeNoteDeleted:  CategoryNote,
	TypeNotePinned:   CategoryNote,
	TypeNoteUnpinned: CategoryNote,
	TypeNoteShared:   CategoryNote,

	TypeUserRegistered:  CategoryAccount,
	TypeUserLogin:       CategoryAccount,
	TypeUserLogout:      CategoryAccount,
	TypeProfileUpdated:  CategoryAccount,
	TypePasswordChanged: CategoryAccount,
	TypeAvatarUpdated:   CategoryAccount,
}

func (t Type) Category() (Category, bool) {
	c, ok := typeCategories[t]
	return c, ok
}

func (t Type) Valid() bool {
	_, ok := typeCategories[t]
	return ok
}

// Types devuelve la enumeración completa en orden estable.
func Types() []Type {
	out := make([]Type, 0, len(typeCategories))
	for t := range typeCategories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if !t.Valid() {
		return "", validationf("unknown activity type %q", s)
	}
	return t, nil
}

// EntityKind identifica la entidad externa a la que apunta una referencia.
type EntityKind string

const (
	EntityTask EntityKind = "task"
	EntityNote EntityKind = "note"
	EntityUser EntityKind = "user"
)
