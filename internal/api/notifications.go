package api

import (
	"net/http"
	"strconv"

	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := notification.ListQuery{Principal: currentPrincipal(r)}

	if raw := q.Get("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "unread must be a boolean")
			return
		}
		query.UnreadOnly = unread
	}
	var err error
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "limit must be an integer")
		return
	}
	if query.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", "offset must be an integer")
		return
	}

	items, err := h.notifications.List(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), currentPrincipal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	n, err := h.notifications.Broadcast(r.Context(), currentPrincipal(r), req.Audience, req.Message, notification.Category(req.Category))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNotificationResponse(*n))
}
