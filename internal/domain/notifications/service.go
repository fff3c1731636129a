package notifications

import (
	"context"
	"strings"
	"time"

	"productivity-api/internal/domain/activity"
)

// Source es la parte del ledger que necesita el proyector.
type Source interface {
	Query(ctx context.Context, q activity.Query) (activity.Page[activity.View], error)
	Count(ctx context.Context, f activity.Filter) (int, error)
}

// ReadStateStore guarda el estado leído/borrado por usuario.
// Hoy no existe esa tabla: NoopReadState responde OK sin persistir nada y el
// estado leído se deriva solo de la antigüedad (ver Projector.readBefore).
type ReadStateStore interface {
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Dismiss(ctx context.Context, userID, notificationID string) error
}

type NoopReadState struct{}

func (NoopReadState) MarkRead(context.Context, string, string) error { return nil }
func (NoopReadState) MarkAllRead(context.Context, string) error      { return nil }
func (NoopReadState) Dismiss(context.Context, string, string) error  { return nil }

type Projector struct {
	src    Source
	state  ReadStateStore
	window time.Duration
	now    func() time.Time
}

func NewProjector(src Source, state ReadStateStore, window time.Duration) *Projector {
	if state == nil {
		state = NoopReadState{}
	}
	if window <= 0 {
		window = DefaultReadWindow
	}
	return &Projector{
		src:    src,
		state:  state,
		window: window,
		now:    time.Now,
	}
}

// readBefore: todo lo creado antes de este instante cuenta como leído.
func (p *Projector) readBefore() time.Time {
	return p.now().UTC().Add(-p.window)
}

// GetNotifications proyecta las actividades donde userID es actor o target.
// UnreadCount se calcula aparte y siempre cubre toda la ventana, sin importar página ni unreadOnly.
func (p *Projector) GetNotifications(ctx context.Context, userID string, page, limit int, unreadOnly bool) (Feed, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Feed{}, ErrInvalidInput
	}

	cutoff := p.readBefore()

	f := activity.Filter{Involving: userID}
	if unreadOnly {
		f.CreatedFrom = &cutoff
	}

	res, err := p.src.Query(ctx, activity.Query{Filter: f, Page: page, Limit: limit})
	if err != nil {
		return Feed{}, err
	}

	unread, err := p.countSince(ctx, userID, cutoff)
	if err != nil {
		return Feed{}, err
	}

	items := make([]Notification, 0, len(res.Items))
	for _, v := range res.Items {
		items = append(items, project(v, userID, cutoff))
	}

	return Feed{
		Page: activity.Page[Notification]{
			Items: items,
			Total: res.Total,
			Page:  res.Page,
			Limit: res.Limit,
			Pages: res.Pages,
		},
		UnreadCount: unread,
	}, nil
}

func (p *Projector) UnreadCount(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrInvalidInput
	}
	return p.countSince(ctx, userID, p.readBefore())
}

func (p *Projector) countSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	return p.src.Count(ctx, activity.Filter{Involving: userID, CreatedFrom: &cutoff})
}

// MarkAsRead, MarkAllAsRead y Delete delegan en ReadStateStore; con NoopReadState
// no cambian UnreadCount ni el feed.
func (p *Projector) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(notificationID) == "" {
		return ErrInvalidInput
	}
	return p.state.MarkRead(ctx, userID, notificationID)
}

func (p *Projector) MarkAllAsRead(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	return p.state.MarkAllRead(ctx, userID)
}

func (p *Projector) Delete(ctx context.Context, userID, notificationID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(notificationID) == "" {
		return ErrInvalidInput
	}
	return p.state.Dismiss(ctx, userID, notificationID)
}
