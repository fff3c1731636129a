package notifications

import (
	"fmt"
	"strings"
	"time"

	"productivity-api/internal/domain/activity"
)

// scene es el contexto de redacción de una notificación para un lector concreto.
type scene struct {
	self           bool // el lector es el actor
	viewerIsTarget bool
	actor          string
	target         string
	entity         string
	meta           activity.Metadata
	description    string
}

func (s scene) who() string {
	if s.self {
		return "You"
	}
	return s.actor
}

// whom nombra al target como complemento ("you", "yourself", "Ana").
func (s scene) whom() string {
	switch {
	case s.viewerIsTarget && s.self:
		return "yourself"
	case s.viewerIsTarget:
		return "you"
	case s.target != "":
		return s.target
	default:
		return "someone"
	}
}

// whose es el posesivo del target ("your", "Ana's", "their").
func (s scene) whose() string {
	switch {
	case s.viewerIsTarget:
		return "your"
	case s.target != "":
		return s.target + "'s"
	case s.self:
		return "your"
	default:
		return "their"
	}
}

func (s scene) str(key string) string {
	if s.meta == nil {
		return ""
	}
	switch v := s.meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

type rule struct {
	title    string
	category Category
	priority Priority
	message  func(s scene) string
}

var rules = map[activity.Type]rule{
	activity.TypeTaskCreated: {"Task created", CategoryTask, PriorityMedium, func(s scene) string {
		return fmt.Sprintf("%s created task %q", s.who(), s.entity)
	}},
	activity.TypeTaskUpdated: {"Task updated", CategoryTask, PriorityLow, func(s scene) string {
		msg := fmt.Sprintf("%s updated task %q", s.who(), s.entity)
		if changes := changesOf(s.meta); len(changes) > 0 {
			msg += " (" + strings.Join(changes, ", ") + ")"
		}
		return msg
	}},
	activity.TypeTaskDeleted: {"Task deleted", CategoryTask, PriorityMedium, func(s scene) string {
		return fmt.Sprintf("%s deleted task %q", s.who(), s.entity)
	}},
	activity.TypeTaskStatusChanged: {"Task status changed", CategoryTask, PriorityLow, func(s scene) string {
		from, to := s.str("oldStatus"), s.str("newStatus")
		if from == "" || to == "" {
			return fmt.Sprintf("%s changed the status of task %q", s.who(), s.entity)
		}
		return fmt.Sprintf("%s moved task %q from %s to %s", s.who(), s.entity, from, to)
	}},
	activity.TypeTaskCompleted: {"Task completed", CategoryTask, PriorityMedium, func(s scene) string {
		return fmt.Sprintf("%s completed task %q", s.who(), s.entity)
	}},
	activity.TypeTaskAssigned: {"Task assigned", CategoryTask, PriorityHigh, func(s scene) string {
		return fmt.Sprintf("%s assigned task %q to %s", s.who(), s.entity, s.whom())
	}},
	activity.TypeTaskUnassigned: {"Task unassigned", CategoryTask, PriorityMedium, func(s scene) string {
		return fmt.Sprintf("%s unassigned %s from task %q", s.who(), s.whom(), s.entity)
	}},
	activity.TypeTaskDueDateChanged: {"Due date changed", CategoryTask, PriorityHigh, func(s scene) string {
		if due := s.str("newDueDate"); due != "" {
			return fmt.Sprintf("%s set the due date of task %q to %s", s.who(), s.entity, formatDate(due))
		}
		return fmt.Sprintf("%s removed the due date of task %q", s.who(), s.entity)
	}},
	activity.TypeTaskPriorityChanged: {"Task priority changed", CategoryTask, PriorityMedium, func(s scene) string {
		from, to := s.str("oldPriority"), s.str("newPriority")
		if from == "" || to == "" {
			return fmt.Sprintf("%s changed the priority of task %q", s.who(), s.entity)
		}
		return fmt.Sprintf("%s changed the priority of task %q from %s to %s", s.who(), s.entity, from, to)
	}},
	activity.TypeTaskCommentAdded: {"New comment", CategoryTask, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s commented on task %q", s.who(), s.entity)
	}},

	activity.TypeNoteCreated: {"Note created", CategoryNote, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s created note %q", s.who(), s.entity)
	}},
	activity.TypeNoteUpdated: {"Note updated", CategoryNote, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s updated note %q", s.who(), s.entity)
	}},
	activity.TypeNoteDeleted: {"Note deleted", CategoryNote, PriorityMedium, func(s scene) string {
		return fmt.Sprintf("%s deleted note %q", s.who(), s.entity)
	}},
	activity.TypeNotePinned: {"Note pinned", CategoryNote, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s pinned note %q", s.who(), s.entity)
	}},
	activity.TypeNoteUnpinned: {"Note unpinned", CategoryNote, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s unpinned note %q", s.who(), s.entity)
	}},
	activity.TypeNoteShared: {"Note shared", CategoryNote, PriorityHigh, func(s scene) string {
		return fmt.Sprintf("%s shared note %q with %s", s.who(), s.entity, s.whom())
	}},

	activity.TypeUserRegistered: {"Welcome", CategoryAccount, PriorityLow, func(s scene) string {
		if s.self {
			return "Your account was created"
		}
		return fmt.Sprintf("%s created an account", s.actor)
	}},
	activity.TypeUserLogin: {"New sign-in", CategorySecurity, PriorityMedium, func(s scene) string {
		if s.self {
			return "You signed in"
		}
		return fmt.Sprintf("%s signed in to %s account", s.actor, s.whose())
	}},
	activity.TypeUserLogout: {"Signed out", CategorySecurity, PriorityLow, func(s scene) string {
		if s.self {
			return "You signed out"
		}
		return fmt.Sprintf("%s signed out", s.actor)
	}},
	activity.TypeProfileUpdated: {"Profile updated", CategoryAccount, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s updated %s profile", s.who(), s.whose())
	}},
	activity.TypePasswordChanged: {"Password changed", CategorySecurity, PriorityHigh, func(s scene) string {
		return fmt.Sprintf("%s changed %s password", s.who(), s.whose())
	}},
	activity.TypeAvatarUpdated: {"Avatar updated", CategoryAccount, PriorityLow, func(s scene) string {
		return fmt.Sprintf("%s changed %s avatar", s.who(), s.whose())
	}},
}

// fallback para tipos sin regla: nunca falla, usa la descripción guardada.
var defaultRule = rule{"System activity", CategorySystem, PriorityLow, func(s scene) string {
	return s.description
}}

// project transforma una fila en notificación para viewerID.
func project(v activity.View, viewerID string, readBefore time.Time) Notification {
	r, ok := rules[v.Type]
	if !ok {
		r = defaultRule
	}

	s := scene{
		self:           v.ActorID == viewerID,
		viewerIsTarget: v.TargetUserID != nil && *v.TargetUserID == viewerID,
		actor:          "Someone",
		entity:         entityTitle(v),
		meta:           v.Metadata,
		description:    v.Description,
	}
	if v.Actor != nil && strings.TrimSpace(v.Actor.Name) != "" {
		s.actor = v.Actor.Name
	}
	if v.TargetUser != nil {
		s.target = v.TargetUser.Name
	}

	n := Notification{
		ID:        v.ID,
		Type:      v.Type,
		Title:     r.title,
		Message:   r.message(s),
		Category:  r.category,
		Priority:  r.priority,
		Actor:     v.Actor,
		IsActor:   s.self,
		IsRead:    v.CreatedAt.Before(readBefore),
		Metadata:  v.Metadata,
		CreatedAt: v.CreatedAt,
	}
	n.RelatedEntityID, n.RelatedEntityKind = relatedEntity(v)
	return n
}

func relatedEntity(v activity.View) (string, activity.EntityKind) {
	switch ev := v.Record.Event().(type) {
	case activity.TaskEvent:
		return ev.TaskID, activity.EntityTask
	case activity.NoteEvent:
		return ev.NoteID, activity.EntityNote
	case activity.AccountEvent:
		if v.TargetUserID != nil {
			return *v.TargetUserID, activity.EntityUser
		}
		return v.ActorID, activity.EntityUser
	default:
		return "", ""
	}
}

// entityTitle prefiere el título congelado en metadata; si no, el actual.
func entityTitle(v activity.View) string {
	if t, ok := v.Metadata["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	switch {
	case v.Task != nil && v.Task.Title != "":
		return v.Task.Title
	case v.Note != nil && v.Note.Title != "":
		return v.Note.Title
	default:
		return "untitled"
	}
}

func changesOf(m activity.Metadata) []string {
	switch v := m["changes"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, c := range v {
			if s, ok := c.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func formatDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("Jan 2, 2006")
	}
	return s
}
