package notes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/response"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger, extra ...func(chi.Router)) {
	r.Route("/notes", func(nr chi.Router) {
		nr.Use(middleware.RequireClaims)

		nr.Post("/", createNoteHandler(svc, log))
		nr.Get("/", listNotesHandler(svc, log))
		nr.Get("/{noteID}", getNoteHandler(svc, log))
		nr.Patch("/{noteID}", updateNoteHandler(svc, log))
		nr.Delete("/{noteID}", deleteNoteHandler(svc, log))

		nr.Post("/{noteID}/pin", pinHandler(svc, log, true))
		nr.Post("/{noteID}/unpin", pinHandler(svc, log, false))
		nr.Post("/{noteID}/share", shareHandler(svc, log))

		for _, fn := range extra {
			fn(nr)
		}
	})
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

type updateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type shareRequest struct {
	UserID string `json:"userId"`
}

type noteResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Pinned     bool      `json:"pinned"`
	SharedWith []string  `json:"sharedWith"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// createNoteHandler godoc
// @Summary Crear nota
// @Tags notes
// @Accept json
// @Produce json
// @Param payload body createNoteRequest true "Nota"
// @Success 201 {object} response.Envelope{data=noteResponse}
// @Failure 400 {object} response.Envelope
// @Router /notes [post]
func createNoteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req createNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		n, err := svc.Create(r.Context(), userID, CreateInput{
			Title:   req.Title,
			Content: req.Content,
			Pinned:  req.Pinned,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusCreated, toNoteResponse(n))
	}
}

// listNotesHandler godoc
// @Summary Notas propias y compartidas conmigo
// @Tags notes
// @Produce json
// @Success 200 {object} response.Envelope{data=[]noteResponse}
// @Router /notes [get]
func listNotesHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		out := make([]noteResponse, 0, len(items))
		for _, n := range items {
			out = append(out, toNoteResponse(n))
		}
		response.Success(w, http.StatusOK, out)
	}
}

// getNoteHandler godoc
// @Summary Obtener nota
// @Tags notes
// @Produce json
// @Param noteID path string true "ID de la nota"
// @Success 200 {object} response.Envelope{data=noteResponse}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{noteID} [get]
func getNoteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		n, err := svc.Get(r.Context(), userID, chi.URLParam(r, "noteID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toNoteResponse(n))
	}
}

// updateNoteHandler godoc
// @Summary Actualizar nota
// @Tags notes
// @Accept json
// @Produce json
// @Param noteID path string true "ID de la nota"
// @Param payload body updateNoteRequest true "Cambios"
// @Success 200 {object} response.Envelope{data=noteResponse}
// @Router /notes/{noteID} [patch]
func updateNoteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req updateNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		n, err := svc.Update(r.Context(), userID, chi.URLParam(r, "noteID"), UpdateInput{
			Title:   req.Title,
			Content: req.Content,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toNoteResponse(n))
	}
}

// deleteNoteHandler godoc
// @Summary Borrar nota
// @Tags notes
// @Param noteID path string true "ID de la nota"
// @Success 200 {object} response.Envelope
// @Router /notes/{noteID} [delete]
func deleteNoteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := svc.Delete(r.Context(), userID, chi.URLParam(r, "noteID")); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "note deleted", nil)
	}
}

// pinHandler godoc
// @Summary Fijar / desfijar nota
// @Tags notes
// @Param noteID path string true "ID de la nota"
// @Success 200 {object} response.Envelope{data=noteResponse}
// @Router /notes/{noteID}/pin [post]
// @Router /notes/{noteID}/unpin [post]
func pinHandler(svc *Service, log logger.Logger, pinned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		n, err := svc.SetPinned(r.Context(), userID, chi.URLParam(r, "noteID"), pinned)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toNoteResponse(n))
	}
}

// shareHandler godoc
// @Summary Compartir nota
// @Description Da acceso de lectura y registra note_shared con el destinatario como target.
// @Tags notes
// @Accept json
// @Produce json
// @Param noteID path string true "ID de la nota"
// @Param payload body shareRequest true "Destinatario"
// @Success 200 {object} response.Envelope{data=noteResponse}
// @Failure 404 {object} response.Envelope "nota o usuario inexistente"
// @Router /notes/{noteID}/share [post]
func shareHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req shareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		n, err := svc.Share(r.Context(), userID, chi.URLParam(r, "noteID"), req.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toNoteResponse(n))
	}
}

func toNoteResponse(n Note) noteResponse {
	shared := n.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return noteResponse{
		ID:         n.ID,
		OwnerID:    n.OwnerID,
		Title:      n.Title,
		Content:    n.Content,
		Pinned:     n.Pinned,
		SharedWith: shared,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
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
		log.Error("notes request failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
