package handlers

import (
	"net/http"
	"strings"
	"time"

	"applybot/internal/app"
	"applybot/internal/common"
	"applybot/internal/http/middleware"
	"applybot/internal/http/response"
)

type IntakeHandler struct {
	intake  *app.IntakeService
	limiter middleware.Limiter
}

func NewIntakeHandler(intake *app.IntakeService, limiter middleware.Limiter) *IntakeHandler {
	return &IntakeHandler{intake: intake, limiter: limiter}
}

type startRequest struct {
	Actor    actorPayload `json:"actor"`
	Position string       `json:"position"`
}

func (h *IntakeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := req.Actor.validate(); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.Position) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"position": "position is required"}))
		return
	}
	if h.limiter != nil {
		key := "start:" + req.Actor.ID
		if !h.limiter.Allow(key, 3, time.Minute) {
			response.Error(w, common.NewError(common.CodeRateLimited, "start rate limit exceeded", nil))
			return
		}
	}
	created, err := h.intake.Start(r.Context(), req.Actor.toActor(), strings.TrimSpace(req.Position))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

type applicantRequest struct {
	ApplicantID string `json:"applicant_id"`
}

func (h *IntakeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req applicantRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.ApplicantID) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"applicant_id": "applicant_id is required"}))
		return
	}
	confirmed, err := h.intake.Confirm(r.Context(), strings.TrimSpace(req.ApplicantID))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, confirmed)
}

func (h *IntakeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req applicantRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.ApplicantID) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"applicant_id": "applicant_id is required"}))
		return
	}
	if err := h.intake.Cancel(r.Context(), strings.TrimSpace(req.ApplicantID)); err != nil {
		// A second cancel is a no-op, not an error worth surfacing.
		if common.Is(err, common.CodeNotFound) {
			response.JSON(w, http.StatusOK, map[string]bool{"cancelled": false})
			return
		}
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

type answerRequest struct {
	ApplicantID string `json:"applicant_id"`
	Text        string `json:"text"`
}

func (h *IntakeHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if strings.TrimSpace(req.ApplicantID) == "" {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"applicant_id": "applicant_id is required"}))
		return
	}
	if h.limiter != nil {
		key := "answer:" + strings.TrimSpace(req.ApplicantID)
		if !h.limiter.Allow(key, 20, time.Minute) {
			response.Error(w, common.NewError(common.CodeRateLimited, "answer rate limit exceeded", nil))
			return
		}
	}
	result, err := h.intake.Answer(r.Context(), strings.TrimSpace(req.ApplicantID), req.Text)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
