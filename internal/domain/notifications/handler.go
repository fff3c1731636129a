package notifications

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"productivity-api/internal/domain/activity"
	"productivity-api/internal/middleware"
	"productivity-api/internal/platform/logger"
	"productivity-api/internal/platform/response"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, p *Projector, log logger.Logger) {
	r.Route("/notifications", func(nr chi.Router) {
		nr.Use(middleware.RequireClaims)

		nr.Get("/", listNotificationsHandler(p, log))
		nr.Get("/unread-count", unreadCountHandler(p, log))
		nr.Patch("/read-all", markAllReadHandler(p, log))
		nr.Patch("/{notificationID}/read", markReadHandler(p, log))
		nr.Delete("/{notificationID}", deleteNotificationHandler(p, log))
	})
}

// listNotificationsHandler godoc
// @Summary Feed de notificaciones
// @Description Actividades donde el usuario es actor o target, proyectadas como notificaciones. Leído/no leído se deriva de la antigüedad (7 días). unreadCount no depende de la página.
// @Tags notifications
// @Produce json
// @Param page query int false "Página"
// @Param limit query int false "Tamaño de página"
// @Param unreadOnly query bool false "Solo no leídas"
// @Success 200 {object} response.Envelope{data=Feed}
// @Failure 401 {object} response.Envelope
// @Router /notifications [get]
func listNotificationsHandler(p *Projector, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())
		page, limit := activity.ParsePaging(r)
		unreadOnly, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("unreadOnly")))

		feed, err := p.GetNotifications(r.Context(), userID, page, limit, unreadOnly)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, feed)
	}
}

// unreadCountHandler godoc
// @Summary Cantidad de notificaciones no leídas
// @Tags notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func unreadCountHandler(p *Projector, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		n, err := p.UnreadCount(r.Context(), userID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		response.Success(w, http.StatusOK, map[string]int{"unreadCount": n})
	}
}

// markReadHandler godoc
// @Summary Marcar notificación como leída
// @Description No persiste estado todavía: responde éxito sin cambios.
// @Tags notifications
// @Param notificationID path string true "ID de la notificación (= ID de actividad)"
// @Success 200 {object} response.Envelope
// @Router /notifications/{notificationID}/read [patch]
func markReadHandler(p *Projector, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := p.MarkAsRead(r.Context(), userID, chi.URLParam(r, "notificationID")); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "notification marked as read", nil)
	}
}

// markAllReadHandler godoc
// @Summary Marcar todas como leídas
// @Tags notifications
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [patch]
func markAllReadHandler(p *Projector, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := p.MarkAllAsRead(r.Context(), userID); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "all notifications marked as read", nil)
	}
}

// deleteNotificationHandler godoc
// @Summary Borrar notificación
// @Tags notifications
// @Param notificationID path string true "ID de la notificación"
// @Success 200 {object} response.Envelope
// @Router /notifications/{notificationID} [delete]
func deleteNotificationHandler(p *Projector, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())

		if err := p.Delete(r.Context(), userID, chi.URLParam(r, "notificationID")); err != nil {
			writeError(w, log, err)
			return
		}
		response.Message(w, http.StatusOK, "notification deleted", nil)
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, activity.ErrValidation):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("notifications request failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
