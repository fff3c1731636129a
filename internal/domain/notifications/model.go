package notifications

import (
	"time"

	"productivity-api/internal/domain/activity"
)

// DefaultReadWindow: una actividad más vieja que esto se considera leída.
const DefaultReadWindow = 7 * 24 * time.Hour

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Category string

const (
	CategoryTask     Category = "task"
	CategoryNote     Category = "note"
	CategoryAccount  Category = "account"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
)

// Notification es la proyección de una fila del ledger para un lector concreto.
// El ID es el de la actividad; no existe tabla de notificaciones.
type Notification struct {
	ID                string                `json:"id"`
	Type              activity.Type         `json:"type"`
	Title             string                `json:"title"`
	Message           string                `json:"message"`
	Category          Category              `json:"category"`
	Priority          Priority              `json:"priority"`
	RelatedEntityID   string                `json:"relatedEntityId,omitempty"`
	RelatedEntityKind activity.EntityKind   `json:"relatedEntityKind,omitempty"`
	Actor             *activity.UserSummary `json:"actor"`
	IsActor           bool                  `json:"isActor"`
	IsRead            bool                  `json:"isRead"`
	Metadata          activity.Metadata     `json:"metadata,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

type Feed struct {
	activity.Page[Notification]
	UnreadCount int `json:"unreadCount"`
}
