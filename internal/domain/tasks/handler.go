package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/response"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /tasks. extra permite que otros módulos cuelguen
// rutas dentro del mismo subrouter (p.ej. /tasks/{taskID}/history).
func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger, extra ...func(chi.Router)) {
	r.Route("/tasks", func(tr chi.Router) {
		tr.Use(middleware.RequireClaims)

		tr.Post("/", createTaskHandler(svc, log))
		tr.Get("/", listTasksHandler(svc, log))
		tr.Get("/{taskID}", getTaskHandler(svc, log))
		tr.Patch("/{taskID}", updateTaskHandler(svc, log))
		tr.Delete("/{taskID}", deleteTaskHandler(svc, log))

		tr.Post("/{taskID}/comments", addCommentHandler(svc, log))
		tr.Get("/{taskID}/comments", listCommentsHandler(svc, log))

		for _, fn := range extra {
			fn(tr)
		}
	})
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"` // RFC3339 opcional
	AssigneeID  string `json:"assigneeId"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	// null limpia el campo; ausente = no tocar
	DueDate    nullable `json:"dueDate" swaggertype:"string"`
	AssigneeID nullable `json:"assigneeId" swaggertype:"string"`
}

// nullable distingue "campo ausente" de "campo en null".
type nullable struct {
	Set   bool
	Value *string
}

func (n *nullable) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

type commentRequest struct {
	Body string `json:"body"`
}

type taskResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	AssigneeID  *string    `json:"assigneeId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// createTaskHandler godoc
// @Summary Crear tarea
// @Description Crea la tarea y registra task_created (y task_assigned si viene assigneeId).
// @Tags tasks
// @Accept json
// @Produce json
// @Param payload body createTaskRequest true "Tarea"
// @Success 201 {object} response.Envelope{data=taskResponse}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope "assignee inexistente"
// @Router /tasks [post]
func createTaskHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		var due *time.Time
		if strings.TrimSpace(req.DueDate) != "" {
			t, err := time.Parse(time.RFC3339, req.DueDate)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "dueDate must be RFC3339")
				return
			}
			due = &t
		}

		t, err := svc.Create(r.Context(), userID, CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			DueDate:     due,
			AssigneeID:  req.AssigneeID,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusCreated, toTaskResponse(t))
	}
}

// listTasksHandler godoc
// @Summary Tareas propias o asignadas
// @Tags tasks
// @Produce json
// @Success 200 {object} response.Envelope{data=[]taskResponse}
// @Router /tasks [get]
func listTasksHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]taskResponse, 0, len(items))
		for _, t := range items {
			out = append(out, toTaskResponse(t))
		}
		response.Success(w, http.StatusOK, out)
	}
}

// getTaskHandler godoc
// @Summary Obtener tarea
// @Tags tasks
// @Produce json
// @Param taskID path string true "ID de la tarea"
// @Success 200 {object} response.Envelope{data=taskResponse}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{taskID} [get]
func getTaskHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		t, err := svc.Get(r.Context(), userID, chi.URLParam(r, "taskID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toTaskResponse(t))
	}
}

// updateTaskHandler godoc
// @Summary Actualizar tarea
// @Description Registra task_updated y, en el mismo batch, las actividades de status/prioridad/vencimiento/asignación que correspondan.
// @Tags tasks
// @Accept json
// @Produce json
// @Param taskID path string true "ID de la tarea"
// @Param payload body updateTaskRequest true "Cambios"
// @Success 200 {object} response.Envelope{data=taskResponse}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{taskID} [patch]
func updateTaskHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req updateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		in := UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			DueDateSet:  req.DueDate.Set,
			AssigneeSet: req.AssigneeID.Set,
			AssigneeID:  req.AssigneeID.Value,
		}
		if req.DueDate.Set && req.DueDate.Value != nil && strings.TrimSpace(*req.DueDate.Value) != "" {
			t, err := time.Parse(time.RFC3339, *req.DueDate.Value)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "dueDate must be RFC3339")
				return
			}
			in.DueDate = &t
		}

		t, err := svc.Update(r.Context(), userID, chi.URLParam(r, "taskID"), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toTaskResponse(t))
	}
}

// deleteTaskHandler godoc
// @Summary Borrar tarea
// @Description Solo el dueño. Borra la tarea y sus comentarios; el historial de actividades se conserva.
// @Tags tasks
// @Param taskID path string true "ID de la tarea"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{taskID} [delete]
func deleteTaskHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := svc.Delete(r.Context(), userID, chi.URLParam(r, "taskID")); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "task deleted", nil)
	}
}

// addCommentHandler godoc
// @Summary Comentar tarea
// @Tags tasks
// @Accept json
// @Produce json
// @Param taskID path string true "ID de la tarea"
// @Param payload body commentRequest true "Comentario"
// @Success 201 {object} response.Envelope{data=commentResponse}
// @Router /tasks/{taskID}/comments [post]
func addCommentHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req commentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		c, err := svc.AddComment(r.Context(), userID, chi.URLParam(r, "taskID"), req.Body)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusCreated, toCommentResponse(c))
	}
}

// listCommentsHandler godoc
// @Summary Comentarios de una tarea
// @Tags tasks
// @Produce json
// @Param taskID path string true "ID de la tarea"
// @Success 200 {object} response.Envelope{data=[]commentResponse}
// @Router /tasks/{taskID}/comments [get]
func listCommentsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		items, err := svc.ListComments(r.Context(), userID, chi.URLParam(r, "taskID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]commentResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCommentResponse(c))
		}
		response.Success(w, http.StatusOK, out)
	}
}

func toTaskResponse(t Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		AssigneeID:  t.AssigneeID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toCommentResponse(c Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, activity.ErrValidation):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), activity.IsReferenceNotFound(err):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(w, http.StatusForbidden, "forbidden")
	default:
		log.Error("tasks request failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
