package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"productivity-api/internal/platform/logger"

	"github.com/google/uuid"
)

const (
	DefaultPageLimit    = 10
	MaxPageLimit        = 100
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Appender es lo que necesitan los módulos que escriben en el ledger de forma síncrona.
type Appender interface {
	Append(ctx context.Context, in Input) (Record, error)
	AppendBatch(ctx context.Context, ins []Input) ([]Record, error)
}

// Metrics recibe contadores del ledger; nil-safe via noopMetrics.
type Metrics interface {
	Appended(t Type)
	ReferenceMissing(kind EntityKind)
	BestEffortFailed(t Type)
	BestEffortDropped(t Type)
}

type Service struct {
	repo     Repository
	dir      Directory
	resolver *Resolver
	log      logger.Logger
	metrics  Metrics

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, dir Directory, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		dir:      dir,
		resolver: NewResolver(dir),
		log:      log.With(map[string]any{"component": "activity"}),
		metrics:  noopMetrics{},
		now:      time.Now,
		newID:    newRecordID,
	}
}

func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// Append valida, resuelve referencias y persiste una actividad.
func (s *Service) Append(ctx context.Context, in Input) (Record, error) {
	recs, err := s.AppendBatch(ctx, []Input{in})
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// AppendBatch escribe todas las actividades en un único insert atómico.
// Todas comparten createdAt; los ids (UUIDv7) conservan el orden de entrada.
func (s *Service) AppendBatch(ctx context.Context, ins []Input) ([]Record, error) {
	if len(ins) == 0 {
		return nil, validationf("empty batch")
	}

	// Postgres guarda microsegundos; así el registro devuelto es igual al leído.
	now := s.now().UTC().Truncate(time.Microsecond)
	out := make([]Record, 0, len(ins))
	for i, in := range ins {
		rec, err := s.build(in, now)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		out = append(out, rec)
	}

	for i, in := range ins {
		in.Event = out[i].Event()
		in.ActorID = out[i].ActorID
		in.TargetUserID = deref(out[i].TargetUserID)
		if err := s.resolver.Resolve(ctx, in); err != nil {
			var ref *ReferenceNotFoundError
			if errors.As(err, &ref) {
				s.metrics.ReferenceMissing(ref.Kind)
			}
			return nil, err
		}
	}

	var err error
	if len(out) == 1 {
		err = s.repo.Append(ctx, out[0])
	} else {
		err = s.repo.AppendBatch(ctx, out)
	}
	if err != nil {
		return nil, fmt.Errorf("appending activity: %w", err)
	}

	for _, r := range out {
		s.metrics.Appended(r.Type)
	}
	return out, nil
}

func (s *Service) build(in Input, now time.Time) (Record, error) {
	if err := validateEvent(in.Event); err != nil {
		return Record{}, err
	}

	actorID := strings.TrimSpace(in.ActorID)
	if actorID == "" {
		return Record{}, validationf("actor id is required")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Record{}, validationf("description is required")
	}

	r := Record{
		ID:          s.newID(),
		Type:        in.Event.Type(),
		ActorID:     actorID,
		Description: desc,
		Metadata:    in.Metadata.Clone(),
		CreatedAt:   now,
	}
	if target := strings.TrimSpace(in.TargetUserID); target != "" {
		r.TargetUserID = &target
	}

	switch ev := in.Event.(type) {
	case TaskEvent:
		id := strings.TrimSpace(ev.TaskID)
		r.TaskID = &id
	case NoteEvent:
		id := strings.TrimSpace(ev.NoteID)
		r.NoteID = &id
	case AccountEvent:
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (View, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return View{}, validationf("activity id is required")
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}

	views, err := s.enrich(ctx, []Record{r})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

func (s *Service) Count(ctx context.Context, f Filter) (int, error) {
	return s.repo.Count(ctx, f)
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type noopMetrics struct{}

func (noopMetrics) Appended(Type)               {}
func (noopMetrics) ReferenceMissing(EntityKind) {}
func (noopMetrics) BestEffortFailed(Type)       {}
func (noopMetrics) BestEffortDropped(Type)      {}
