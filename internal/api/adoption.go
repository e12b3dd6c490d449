package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
)

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	var filter adoption.ListingFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := adoption.ParseListingStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		filter.Status = &st
	}

	listings, err := h.adoption.ListListings(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	l, err := h.adoption.CreateListing(r.Context(), currentPrincipal(r), adoption.ListingInput{
		AnimalName:  req.AnimalName,
		Species:     req.Species,
		Age:         req.Age,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toListingResponse(*l))
}

func (h *Handler) setListingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SetListingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	status, err := adoption.ParseListingStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	l, err := h.adoption.SetListingStatus(r.Context(), currentPrincipal(r), id, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*l))
}

func (h *Handler) submitAdoptionRequest(w http.ResponseWriter, r *http.Request) {
	listingID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	rq, err := h.adoption.SubmitRequest(r.Context(), currentPrincipal(r), listingID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(*rq))
}

func (h *Handler) listAdoptionRequests(w http.ResponseWriter, r *http.Request) {
	var filter adoption.RequestFilter
	q := r.URL.Query()
	if raw := q.Get("listing_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "listing_id must be a valid UUID")
			return
		}
		filter.ListingID = &id
	}
	if raw := q.Get("status"); raw != "" {
		st, err := adoption.ParseRequestStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		filter.Status = &st
	}

	requests, err := h.adoption.ListRequests(r.Context(), currentPrincipal(r), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := make([]AdoptionRequestResponse, 0, len(requests))
	for _, rq := range requests {
		resp = append(resp, toRequestResponse(rq))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) approveAdoptionRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body ApproveRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_listing_id", "listing_id must be a valid UUID")
		return
	}

	if _, err := h.adoption.ApproveRequest(r.Context(), currentPrincipal(r), requestID, listingID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) rejectAdoptionRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.adoption.RejectRequest(r.Context(), currentPrincipal(r), requestID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
