package handlers

import (
	"net/http"
	"time"

	"applybot/internal/domain/position"
	"applybot/internal/http/response"
)

type PositionHandler struct {
	positions position.Source
}

func NewPositionHandler(positions position.Source) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// positionSummary is the outward shape of a position: enough for the gateway
// to render a selection menu, nothing about roles or review channels.
type positionSummary struct {
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	QuestionCount    int    `json:"question_count"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
}

func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.positions.List(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	summaries := make([]positionSummary, 0, len(items))
	for _, cfg := range items {
		summaries = append(summaries, positionSummary{
			Name:             cfg.Name,
			Enabled:          cfg.Enabled,
			QuestionCount:    len(cfg.Questions),
			TimeLimitMinutes: int(cfg.TimeLimit / time.Minute),
		})
	}
	response.JSON(w, http.StatusOK, summaries)
}
