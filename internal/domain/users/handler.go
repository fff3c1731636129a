package users

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

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/users", func(ur chi.Router) {
		// Registro abierto
		ur.Post("/", registerHandler(svc, log))

		ur.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireClaims)

			pr.Get("/me", getMeHandler(svc, log))
			pr.Patch("/me", updateMeHandler(svc, log))
			pr.Post("/me/login", loginHandler(svc, log))
			pr.Post("/me/logout", logoutHandler(svc, log))
			pr.Get("/{userID}", getUserHandler(svc, log))
		})
	})
}

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar"`
}

type updateProfileRequest struct {
	// nil = no tocar
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// registerHandler godoc
// @Summary Registrar usuario
// @Description Crea el usuario. La actividad user_registered se escribe en segundo plano y nunca hace fallar el registro.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body registerRequest true "Usuario"
// @Success 201 {object} response.Envelope{data=userResponse}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope "email ya registrado"
// @Router /users [post]
func registerHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		u, err := svc.Register(r.Context(), RegisterInput{
			Name:      req.Name,
			Email:     req.Email,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusCreated, toUserResponse(u))
	}
}

// getMeHandler godoc
// @Summary Perfil del usuario autenticado
// @Tags users
// @Produce json
// @Success 200 {object} response.Envelope{data=userResponse}
// @Router /users/me [get]
func getMeHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		u, err := svc.GetByID(r.Context(), userID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toUserResponse(u))
	}
}

// getUserHandler godoc
// @Summary Obtener usuario
// @Tags users
// @Produce json
// @Param userID path string true "ID del usuario"
// @Success 200 {object} response.Envelope{data=userResponse}
// @Failure 404 {object} response.Envelope
// @Router /users/{userID} [get]
func getUserHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetByID(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toUserResponse(u))
	}
}

// updateMeHandler godoc
// @Summary Actualizar perfil
// @Description Registra profile_updated y, si cambió el avatar, avatar_updated en el mismo batch.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body updateProfileRequest true "Cambios"
// @Success 200 {object} response.Envelope{data=userResponse}
// @Failure 400 {object} response.Envelope
// @Router /users/me [patch]
func updateMeHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid json")
			return
		}

		u, err := svc.UpdateProfile(r.Context(), userID, UpdateProfileInput{
			Name:      req.Name,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, toUserResponse(u))
	}
}

// loginHandler godoc
// @Summary Registrar inicio de sesión
// @Tags users
// @Success 200 {object} response.Envelope
// @Router /users/me/login [post]
func loginHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := svc.RecordLogin(r.Context(), userID); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "login recorded", nil)
	}
}

// logoutHandler godoc
// @Summary Registrar cierre de sesión
// @Tags users
// @Success 200 {object} response.Envelope
// @Router /users/me/logout [post]
func logoutHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := svc.RecordLogout(r.Context(), userID); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "logout recorded", nil)
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, activity.ErrValidation):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), activity.IsReferenceNotFound(err):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		response.Error(w, http.StatusConflict, err.Error())
	default:
		log.Error("users request failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
