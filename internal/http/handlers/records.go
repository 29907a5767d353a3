package handlers

import (
	"net/http"

	"applybot/internal/app"
	"applybot/internal/common"
	"applybot/internal/domain/record"
	"applybot/internal/http/response"
)

type RecordHandler struct {
	reviews *app.ReviewService
}

func NewRecordHandler(reviews *app.ReviewService) *RecordHandler {
	return &RecordHandler{reviews: reviews}
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := recordIDFromPath(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	found, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, found)
}

func (h *RecordHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.reviews.ListPending(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

type decideRequest struct {
	Actor   actorPayload `json:"actor"`
	Outcome string       `json:"outcome"`
	Reason  string       `json:"reason"`
}

type decideResponse struct {
	Record            *record.ApplicationRecord `json:"record"`
	RolesToGrant      []string                  `json:"roles_to_grant,omitempty"`
	RolesToRevoke     []string                  `json:"roles_to_revoke,omitempty"`
	NotificationError string                    `json:"notification_error,omitempty"`
}

func (h *RecordHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := recordIDFromPath(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req decideRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := req.Actor.validate(); err != nil {
		response.Error(w, err)
		return
	}
	result, err := h.reviews.Decide(r.Context(), id, req.Actor.toActor(), record.Outcome(req.Outcome), req.Reason)
	if err != nil {
		response.Error(w, err)
		return
	}
	body := decideResponse{
		Record:        result.Record,
		RolesToGrant:  result.RolesToGrant,
		RolesToRevoke: result.RolesToRevoke,
	}
	if result.NotificationError != nil {
		body.NotificationError = result.NotificationError.Error()
	}
	response.JSON(w, http.StatusOK, body)
}

func recordIDFromPath(r *http.Request) (common.UUID, error) {
	raw, err := idFromPath(r, 1)
	if err != nil {
		return "", err
	}
	parsed, err := common.ParseUUID(raw)
	if err != nil {
		return "", common.NewValidationError("invalid record id", map[string]string{"id": "invalid uuid"})
	}
	return parsed, nil
}
