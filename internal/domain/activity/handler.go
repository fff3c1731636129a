package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/response"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/activities", func(ar chi.Router) {
		ar.Use(middleware.RequireClaims)

		ar.Post("/", createActivityHandler(svc, log))
		ar.Get("/", listActivitiesHandler(svc, log))
		ar.Get("/me", myActivitiesHandler(svc, log))
		ar.Get("/related", relatedActivitiesHandler(svc, log))
		ar.Get("/{activityID}", getActivityHandler(svc, log))
	})
}

// TaskHistoryRoutes se monta dentro de /tasks (ver router).
func TaskHistoryRoutes(svc *Service, log logger.Logger) func(chi.Router) {
	return func(r chi.Router) {
		r.With(middleware.RequireClaims).Get("/{taskID}/history", taskHistoryHandler(svc, log))
	}
}

func NoteHistoryRoutes(svc *Service, log logger.Logger) func(chi.Router) {
	return func(r chi.Router) {
		r.With(middleware.RequireClaims).Get("/{noteID}/history", noteHistoryHandler(svc, log))
	}
}

// createActivityRequest es el cuerpo para registrar una actividad manual.
type createActivityRequest struct {
	Type         Type     `json:"type"`
	TaskID       string   `json:"taskId"`
	NoteID       string   `json:"noteId"`
	TargetUserID string   `json:"targetUserId"`
	Description  string   `json:"description"`
	Metadata     Metadata `json:"metadata"`
}

// ActivityResponse representa una actividad del ledger con sus referencias resueltas.
type ActivityResponse struct {
	ID           string       `json:"id"`
	Type         Type         `json:"type"`
	ActorID      string       `json:"actorId"`
	TargetUserID *string      `json:"targetUserId"`
	TaskID       *string      `json:"taskId"`
	NoteID       *string      `json:"noteId"`
	Description  string       `json:"description"`
	Metadata     Metadata     `json:"metadata,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	Actor        *UserSummary `json:"actor"`
	TargetUser   *UserSummary `json:"targetUser"`
	Task         *TaskSummary `json:"task"`
	Note         *NoteSummary `json:"note"`
}

// createActivityHandler godoc
// @Summary Registrar actividad
// @Description Agrega una entrada al ledger con el usuario autenticado como actor. Valida que la tarea/nota/usuario referenciados existan.
// @Tags activities
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param payload body createActivityRequest true "Actividad"
// @Success 201 {object} response.Envelope{data=ActivityResponse}
// @Failure 400 {object} response.Envelope "tipo inválido / descripción vacía"
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope "evento de cuenta dirigido a otro usuario"
// @Failure 404 {object} response.Envelope "referencia inexistente"
// @Router /activities [post]
func createActivityHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req createActivityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		ev, err := NewEvent(req.Type, req.TaskID, req.NoteID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if err := checkClientEvent(ev, userID, req.TargetUserID); err != nil {
			writeError(w, log, err)
			return
		}

		rec, err := svc.Append(r.Context(), Input{
			Event:        ev,
			ActorID:      userID,
			TargetUserID: req.TargetUserID,
			Description:  req.Description,
			Metadata:     req.Metadata,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}

		v, err := svc.Get(r.Context(), rec.ID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusCreated, ToResponse(v))
	}
}

// getActivityHandler godoc
// @Summary Obtener actividad
// @Tags activities
// @Produce json
// @Param activityID path string true "ID de la actividad"
// @Success 200 {object} response.Envelope{data=ActivityResponse}
// @Failure 404 {object} response.Envelope
// @Router /activities/{activityID} [get]
func getActivityHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.Get(r.Context(), chi.URLParam(r, "activityID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, ToResponse(v))
	}
}

// listActivitiesHandler godoc
// @Summary Listar actividades
// @Description Listado filtrado y paginado. Todos los filtros se combinan con AND; type acepta CSV (OR). Una página mayor a la última devuelve la última.
// @Tags activities
// @Produce json
// @Param task query string false "ID de tarea"
// @Param note query string false "ID de nota"
// @Param user query string false "ID del actor"
// @Param targetUser query string false "ID del usuario target"
// @Param type query string false "Tipos CSV (ej: task_created,task_updated)"
// @Param createdStart query string false "createdAt mínimo inclusive (RFC3339)"
// @Param createdEnd query string false "createdAt máximo inclusive (RFC3339)"
// @Param page query int false "Página (default 1)"
// @Param limit query int false "Tamaño de página (default 10, máx 100)"
// @Param sortBy query string false "createdAt | type"
// @Param sortOrder query string false "asc | desc"
// @Success 200 {object} response.Envelope{data=response.Collection}
// @Failure 400 {object} response.Envelope
// @Router /activities [get]
func listActivitiesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseListQuery(r)
		if err != nil {
			writeError(w, log, err)
			return
		}

		res, err := svc.Query(r.Context(), q)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writePage(w, res)
	}
}

// myActivitiesHandler godoc
// @Summary Actividades del usuario autenticado (como actor)
// @Tags activities
// @Produce json
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} response.Envelope{data=response.Collection}
// @Router /activities/me [get]
func myActivitiesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())
		page, limit := ParsePaging(r)

		res, err := svc.UserActivities(r.Context(), userID, page, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writePage(w, res)
	}
}

// relatedActivitiesHandler godoc
// @Summary Actividades relacionadas al usuario (actor o target)
// @Tags activities
// @Produce json
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} response.Envelope{data=response.Collection}
// @Router /activities/related [get]
func relatedActivitiesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())
		page, limit := ParsePaging(r)

		res, err := svc.RelatedActivities(r.Context(), userID, page, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writePage(w, res)
	}
}

// taskHistoryHandler godoc
// @Summary Historial de una tarea
// @Description Últimas actividades de la tarea, más reciente primero. 404 si la tarea ya no existe.
// @Tags activities
// @Produce json
// @Param taskID path string true "ID de la tarea"
// @Param limit query int false "Máximo (default 50, máx 200)"
// @Success 200 {object} response.Envelope{data=[]ActivityResponse}
// @Failure 404 {object} response.Envelope
// @Router /tasks/{taskID}/history [get]
func taskHistoryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.TaskHistory(r.Context(), chi.URLParam(r, "taskID"), intParam(r, "limit", DefaultHistoryLimit))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toResponses(items))
	}
}

// noteHistoryHandler godoc
// @Summary Historial de una nota
// @Tags activities
// @Produce json
// @Param noteID path string true "ID de la nota"
// @Param limit query int false "Máximo (default 50, máx 200)"
// @Success 200 {object} response.Envelope{data=[]ActivityResponse}
// @Failure 404 {object} response.Envelope
// @Router /notes/{noteID}/history [get]
func noteHistoryHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.NoteHistory(r.Context(), chi.URLParam(r, "noteID"), intParam(r, "limit", DefaultHistoryLimit))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toResponses(items))
	}
}

func parseListQuery(r *http.Request) (Query, error) {
	v := r.URL.Query()
	page, limit := ParsePaging(r)

	q := Query{
		Filter: Filter{
			TaskID:       strings.TrimSpace(v.Get("task")),
			NoteID:       strings.TrimSpace(v.Get("note")),
			ActorID:      strings.TrimSpace(v.Get("user")),
			TargetUserID: strings.TrimSpace(v.Get("targetUser")),
		},
		Page:      page,
		Limit:     limit,
		SortBy:    v.Get("sortBy"),
		SortOrder: v.Get("sortOrder"),
	}

	// type=task_created,task_updated (también acepta ?type=a&type=b)
	for _, raw := range v["type"] {
		for _, p := range strings.Split(raw, ",") {
			if strings.TrimSpace(p) == "" {
				continue
			}
			t, err := ParseType(p)
			if err != nil {
				return Query{}, err
			}
			q.Filter.Types = append(q.Filter.Types, t)
		}
	}

	if s := strings.TrimSpace(v.Get("createdStart")); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Query{}, validationf("createdStart must be RFC3339")
		}
		q.Filter.CreatedFrom = &t
	}
	if s := strings.TrimSpace(v.Get("createdEnd")); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Query{}, validationf("createdEnd must be RFC3339")
		}
		q.Filter.CreatedTo = &t
	}

	return q, nil
}

// ParsePaging lee page/limit; valores inválidos caen en los defaults del Service.
func ParsePaging(r *http.Request) (int, int) {
	return intParam(r, "page", 1), intParam(r, "limit", DefaultPageLimit)
}

func intParam(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writePage(w http.ResponseWriter, p Page[View]) {
	response.Paginated(w, toResponses(p.Items), p.Total, p.Page, p.Limit, p.Pages)
}

func ToResponse(v View) ActivityResponse {
	return ActivityResponse{
		ID:           v.ID,
		Type:         v.Type,
		ActorID:      v.ActorID,
		TargetUserID: v.TargetUserID,
		TaskID:       v.TaskID,
		NoteID:       v.NoteID,
		Description:  v.Description,
		Metadata:     v.Metadata,
		CreatedAt:    v.CreatedAt,
		Actor:        v.Actor,
		TargetUser:   v.TargetUser,
		Task:         v.Task,
		Note:         v.Note,
	}
}

func toResponses(vs []View) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, ToResponse(v))
	}
	return out
}

// checkClientEvent: un cliente solo registra eventos de cuenta sobre sí mismo.
func checkClientEvent(ev Event, actorID, targetUserID string) error {
	if _, ok := ev.(AccountEvent); !ok {
		return nil
	}
	if target := strings.TrimSpace(targetUserID); target != "" && target != actorID {
		return fmt.Errorf("%w: %s can only target the caller", ErrForbidden, ev.Type())
	}
	return nil
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var ref *ReferenceNotFoundError
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ref):
		response.Error(w, http.StatusNotFound, ref.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	default:
		log.Error("activity request failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
