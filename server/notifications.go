package server

import (
	"net/http"

	"github.com/heraldai/herald/notify"
)

// notificationListResponse is the envelope for inbox pages.
type notificationListResponse struct {
	Notifications []*notify.Notification `json:"notifications"`
	Count         int                    `json:"count"`
	Unread        int                    `json:"unread"`
}

// HandleNotifications handles GET /api/notifications
// The unread=true query narrows the page to unread entries.
func (s *HeraldServer) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	owner := s.ownerFromRequest(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := queryInt(r, "limit", 50)

	entries, err := s.notifStore.List(r.Context(), owner, unreadOnly, limit)
	if err != nil {
		s.writeServiceError(w, err, "list notifications")
		return
	}

	unread, err := s.notifStore.CountUnread(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, err, "count unread")
		return
	}

	writeJSON(w, http.StatusOK, notificationListResponse{
		Notifications: entries,
		Count:         len(entries),
		Unread:        unread,
	})
}

// HandleNotification handles POST /api/notifications/{id}/read
func (s *HeraldServer) HandleNotification(w http.ResponseWriter, r *http.Request) {
	pathParts := extractPathParts(r.URL.Path, "/api/notifications/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing notification ID")
		return
	}
	if len(pathParts) < 2 || pathParts[1] != "read" {
		writeError(w, http.StatusNotFound, "Unknown notification operation")
		return
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	owner := s.ownerFromRequest(r)
	id := pathParts[0]

	if err := s.notifStore.MarkRead(r.Context(), owner, id); err != nil {
		s.writeServiceError(w, err, "mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read", "id": id})
}

// HandleMarkAllRead handles POST /api/notifications/read-all
func (s *HeraldServer) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	owner := s.ownerFromRequest(r)
	updated, err := s.notifStore.MarkAllRead(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, err, "mark all notifications read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
