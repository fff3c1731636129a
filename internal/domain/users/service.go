package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo       Repository
	ledger     activity.Appender
	bestEffort activity.BestEffortAppender
	log        logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, ledger activity.Appender, bestEffort activity.BestEffortAppender, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:       repo,
		ledger:     ledger,
		bestEffort: bestEffort,
		log:        log.With(map[string]any{"component": "users"}),
		now:        time.Now,
	}
}

type RegisterInput struct {
	Name      string
	Email     string
	AvatarURL string
}

// Register crea el usuario. La actividad user_registered es best-effort:
// si no se puede escribir, el registro igual se considera exitoso.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return User{}, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	now := s.now().UTC()
	u := User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	if s.bestEffort != nil {
		s.bestEffort.BestEffortAppend(activity.Input{
			Event:        activity.AccountEvent{Kind: activity.TypeUserRegistered},
			ActorID:      u.ID,
			TargetUserID: u.ID,
			Description:  fmt.Sprintf("%s registered", u.Name),
			Metadata:     activity.Metadata{"name": u.Name},
		})
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

type UpdateProfileInput struct {
	Name      *string
	AvatarURL *string
}

// UpdateProfile persiste los cambios y registra profile_updated
// (y avatar_updated en el mismo batch si cambió el avatar).
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	var changes []string
	oldAvatar := u.AvatarURL

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return User{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		if name != u.Name {
			u.Name = name
			changes = append(changes, "name")
		}
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != u.AvatarURL {
			u.AvatarURL = avatar
			changes = append(changes, "avatar")
		}
	}
	if len(changes) == 0 {
		return u, nil
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}

	batch := []activity.Input{{
		Event:        activity.AccountEvent{Kind: activity.TypeProfileUpdated},
		ActorID:      u.ID,
		TargetUserID: u.ID,
		Description:  fmt.Sprintf("%s updated their profile", u.Name),
		Metadata:     activity.Metadata{"changes": changes},
	}}
	if u.AvatarURL != oldAvatar {
		batch = append(batch, activity.Input{
			Event:        activity.AccountEvent{Kind: activity.TypeAvatarUpdated},
			ActorID:      u.ID,
			TargetUserID: u.ID,
			Description:  fmt.Sprintf("%s changed their avatar", u.Name),
			Metadata:     activity.Metadata{"oldAvatar": oldAvatar, "newAvatar": u.AvatarURL},
		})
	}
	if _, err := s.ledger.AppendBatch(ctx, batch); err != nil {
		return User{}, fmt.Errorf("recording profile update: %w", err)
	}
	return u, nil
}

func (s *Service) RecordLogin(ctx context.Context, userID string) error {
	return s.recordSession(ctx, userID, activity.TypeUserLogin, "%s signed in")
}

func (s *Service) RecordLogout(ctx context.Context, userID string) error {
	return s.recordSession(ctx, userID, activity.TypeUserLogout, "%s signed out")
}

func (s *Service) recordSession(ctx context.Context, userID string, t activity.Type, format string) error {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.ledger.Append(ctx, activity.Input{
		Event:        activity.AccountEvent{Kind: t},
		ActorID:      u.ID,
		TargetUserID: u.ID,
		Description:  fmt.Sprintf(format, u.Name),
	})
	return err
}
