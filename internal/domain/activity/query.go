package activity

import (
	"context"
	"fmt"
	"strings"
)

// Query son los parámetros del listado general. Page/Limit/Sort vacíos toman defaults.
type Query struct {
	Filter    Filter
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

var sortableFields = map[SortField]bool{
	SortCreatedAt: true,
	SortType:      true,
}

func (q Query) normalize() (FindQuery, int, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	sortBy := SortField(strings.TrimSpace(q.SortBy))
	if sortBy == "" {
		sortBy = SortCreatedAt
	}
	if !sortableFields[sortBy] {
		return FindQuery{}, 0, validationf("cannot sort by %q", q.SortBy)
	}

	order := SortOrder(strings.ToLower(strings.TrimSpace(q.SortOrder)))
	switch order {
	case "":
		order = SortDesc
	case SortAsc, SortDesc:
	default:
		return FindQuery{}, 0, validationf("invalid sort order %q", q.SortOrder)
	}

	for _, t := range q.Filter.Types {
		if !t.Valid() {
			return FindQuery{}, 0, validationf("unknown activity type %q", t)
		}
	}

	return FindQuery{
		Filter:    q.Filter,
		SortBy:    sortBy,
		SortOrder: order,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}, page, nil
}

// Query lista actividades filtradas y paginadas.
// Una página fuera de rango se ajusta a la última disponible (nunca vacío por página alta).
func (s *Service) Query(ctx context.Context, q Query) (Page[View], error) {
	fq, page, err := q.normalize()
	if err != nil {
		return Page[View]{}, err
	}

	recs, total, err := s.repo.FindMany(ctx, fq)
	if err != nil {
		return Page[View]{}, fmt.Errorf("querying activity: %w", err)
	}

	pages := pageCount(total, fq.Limit)
	if clamped := clampPage(page, pages); clamped != page {
		page = clamped
		fq.Offset = (page - 1) * fq.Limit
		recs, total, err = s.repo.FindMany(ctx, fq)
		if err != nil {
			return Page[View]{}, fmt.Errorf("querying activity: %w", err)
		}
		pages = pageCount(total, fq.Limit)
	}

	views, err := s.enrich(ctx, recs)
	if err != nil {
		return Page[View]{}, err
	}

	return Page[View]{
		Items: views,
		Total: total,
		Page:  page,
		Limit: fq.Limit,
		Pages: pages,
	}, nil
}

// UserActivities: actividades donde el usuario es el actor.
func (s *Service) UserActivities(ctx context.Context, userID string, page, limit int) (Page[View], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Page[View]{}, validationf("user id is required")
	}
	return s.Query(ctx, Query{Filter: Filter{ActorID: userID}, Page: page, Limit: limit})
}

// RelatedActivities: actividades donde el usuario es actor o target.
func (s *Service) RelatedActivities(ctx context.Context, userID string, page, limit int) (Page[View], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Page[View]{}, validationf("user id is required")
	}
	return s.Query(ctx, Query{Filter: Filter{Involving: userID}, Page: page, Limit: limit})
}

// TaskHistory devuelve hasta limit actividades de la tarea, más reciente primero.
// La existencia se chequea contra el store de tareas, no contra el ledger.
func (s *Service) TaskHistory(ctx context.Context, taskID string, limit int) ([]View, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, validationf("task id is required")
	}
	if s.dir.Tasks == nil {
		return nil, fmt.Errorf("task lookup not configured")
	}
	ok, err := s.dir.Tasks.TaskExists(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("checking task %s: %w", taskID, err)
	}
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return s.history(ctx, Filter{TaskID: taskID}, limit)
}

func (s *Service) NoteHistory(ctx context.Context, noteID string, limit int) ([]View, error) {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return nil, validationf("note id is required")
	}
	if s.dir.Notes == nil {
		return nil, fmt.Errorf("note lookup not configured")
	}
	ok, err := s.dir.Notes.NoteExists(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("checking note %s: %w", noteID, err)
	}
	if !ok {
		return nil, fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	return s.history(ctx, Filter{NoteID: noteID}, limit)
}

func (s *Service) history(ctx context.Context, f Filter, limit int) ([]View, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	recs, _, err := s.repo.FindMany(ctx, FindQuery{
		Filter:    f,
		SortBy:    SortCreatedAt,
		SortOrder: SortDesc,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return s.enrich(ctx, recs)
}

// enrich agrega resúmenes de actor/target/tarea/nota. Referencias colgantes quedan en nil.
func (s *Service) enrich(ctx context.Context, recs []Record) ([]View, error) {
	out := make([]View, 0, len(recs))
	if len(recs) == 0 {
		return out, nil
	}

	var userIDs, taskIDs, noteIDs idSet
	for _, r := range recs {
		userIDs.add(r.ActorID)
		if r.TargetUserID != nil {
			userIDs.add(*r.TargetUserID)
		}
		if r.TaskID != nil {
			taskIDs.add(*r.TaskID)
		}
		if r.NoteID != nil {
			noteIDs.add(*r.NoteID)
		}
	}

	users := map[string]UserSummary{}
	tasks := map[string]TaskSummary{}
	notes := map[string]NoteSummary{}
	var err error

	if s.dir.Users != nil && len(userIDs.ids) > 0 {
		if users, err = s.dir.Users.UserSummaries(ctx, userIDs.ids); err != nil {
			return nil, fmt.Errorf("loading users: %w", err)
		}
	}
	if s.dir.Tasks != nil && len(taskIDs.ids) > 0 {
		if tasks, err = s.dir.Tasks.TaskSummaries(ctx, taskIDs.ids); err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
	}
	if s.dir.Notes != nil && len(noteIDs.ids) > 0 {
		if notes, err = s.dir.Notes.NoteSummaries(ctx, noteIDs.ids); err != nil {
			return nil, fmt.Errorf("loading notes: %w", err)
		}
	}

	for _, r := range recs {
		v := View{Record: r}
		if u, ok := users[r.ActorID]; ok {
			v.Actor = &u
		}
		if r.TargetUserID != nil {
			if u, ok := users[*r.TargetUserID]; ok {
				v.TargetUser = &u
			}
		}
		if r.TaskID != nil {
			if t, ok := tasks[*r.TaskID]; ok {
				v.Task = &t
			}
		}
		if r.NoteID != nil {
			if n, ok := notes[*r.NoteID]; ok {
				v.Note = &n
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func pageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// clampPage: page = min(requested, pages), o 1 si no hay páginas.
func clampPage(page, pages int) int {
	if pages < 1 {
		return 1
	}
	if page > pages {
		return pages
	}
	return page
}

type idSet struct {
	seen map[string]bool
	ids  []string
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}
