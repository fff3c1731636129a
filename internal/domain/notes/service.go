package notes

import (
	"context"
	"fmt"
	"slices"
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
		log:    log.With(map[string]any{"component": "notes"}),
		now:    time.Now,
	}
}

type CreateInput struct {
	Title   string
	Content string
	Pinned  bool
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Note, error) {
	ownerID = strings.TrimSpace(ownerID)
	title := strings.TrimSpace(in.Title)
	if ownerID == "" || title == "" {
		return Note{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	n := Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   in.Content,
		Pinned:    in.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Note{}, err
	}

	if _, err := s.ledger.Append(ctx, s.input(n, ownerID, activity.TypeNoteCreated, "", "Created note %q", nil)); err != nil {
		return Note{}, fmt.Errorf("recording note creation: %w", err)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, userID, noteID string) (Note, error) {
	n, err := s.repo.GetByID(ctx, strings.TrimSpace(noteID))
	if err != nil {
		return Note{}, err
	}
	if !n.CanView(userID) {
		return Note{}, ErrForbidden
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Note, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListVisible(ctx, userID)
}

type UpdateInput struct {
	Title   *string
	Content *string
}

func (s *Service) Update(ctx context.Context, userID, noteID string, in UpdateInput) (Note, error) {
	n, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return Note{}, err
	}

	var changes []string
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Note{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		if title != n.Title {
			n.Title = title
			changes = append(changes, "title")
		}
	}
	if in.Content != nil && *in.Content != n.Content {
		n.Content = *in.Content
		changes = append(changes, "content")
	}
	if len(changes) == 0 {
		return n, nil
	}

	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, n); err != nil {
		return Note{}, err
	}
	if _, err := s.ledger.Append(ctx, s.input(n, userID, activity.TypeNoteUpdated, "", "Updated note %q", activity.Metadata{"changes": changes})); err != nil {
		return Note{}, fmt.Errorf("recording note update: %w", err)
	}
	return n, nil
}

// SetPinned es idempotente: si ya estaba en ese estado no escribe actividad.
func (s *Service) SetPinned(ctx context.Context, userID, noteID string, pinned bool) (Note, error) {
	n, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return Note{}, err
	}
	if n.Pinned == pinned {
		return n, nil
	}

	n.Pinned = pinned
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, n); err != nil {
		return Note{}, err
	}

	typ, format := activity.TypeNoteUnpinned, "Unpinned note %q"
	if pinned {
		typ, format = activity.TypeNotePinned, "Pinned note %q"
	}
	if _, err := s.ledger.Append(ctx, s.input(n, userID, typ, "", format, nil)); err != nil {
		return Note{}, fmt.Errorf("recording pin change: %w", err)
	}
	return n, nil
}

// Share da acceso de lectura a recipientID y le deja una actividad como target.
func (s *Service) Share(ctx context.Context, userID, noteID, recipientID string) (Note, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return Note{}, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if recipientID == userID {
		return Note{}, fmt.Errorf("%w: cannot share a note with yourself", ErrInvalidInput)
	}

	n, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return Note{}, err
	}
	if slices.Contains(n.SharedWith, recipientID) {
		return n, nil
	}
	if err := s.requireUser(ctx, recipientID); err != nil {
		return Note{}, err
	}

	if err := s.repo.AddShare(ctx, n.ID, recipientID); err != nil {
		return Note{}, err
	}
	n.SharedWith = append(n.SharedWith, recipientID)

	if _, err := s.ledger.Append(ctx, s.input(n, userID, activity.TypeNoteShared, recipientID, "Shared note %q", nil)); err != nil {
		return Note{}, fmt.Errorf("recording note share: %w", err)
	}
	return n, nil
}

// Delete escribe note_deleted antes de borrar; las actividades no se borran.
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	n, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return err
	}
	if _, err := s.ledger.Append(ctx, s.input(n, userID, activity.TypeNoteDeleted, "", "Deleted note %q", nil)); err != nil {
		return fmt.Errorf("recording note deletion: %w", err)
	}
	if err := s.repo.Delete(ctx, n.ID); err != nil {
		return err
	}
	s.log.Info("note deleted", map[string]any{"note_id": n.ID, "user_id": userID})
	return nil
}

func (s *Service) owned(ctx context.Context, userID, noteID string) (Note, error) {
	n, err := s.repo.GetByID(ctx, strings.TrimSpace(noteID))
	if err != nil {
		return Note{}, err
	}
	if n.OwnerID != userID {
		return Note{}, ErrForbidden
	}
	return n, nil
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

func (s *Service) input(n Note, actorID string, typ activity.Type, target, format string, meta activity.Metadata) activity.Input {
	m := activity.Metadata{"title": n.Title}
	for k, v := range meta {
		m[k] = v
	}
	return activity.Input{
		Event:        activity.NoteEvent{NoteID: n.ID, Kind: typ},
		ActorID:      actorID,
		TargetUserID: target,
		Description:  fmt.Sprintf(format, n.Title),
		Metadata:     m,
	}
}
