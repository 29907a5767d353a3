package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"applybot/internal/common"
)

type errorCollector interface {
	IncErrors()
}

var collector errorCollector

// SetErrorCollector wires the metrics collector used to count 5xx responses.
func SetErrorCollector(c errorCollector) {
	collector = c
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type errorBody struct {
	Error   common.Code       `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func Error(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError && collector != nil {
		collector.IncErrors()
	}

	body := errorBody{Error: code, Message: "internal error"}
	var typed *common.Error
	if errors.As(err, &typed) {
		body.Message = typed.Message
		body.Fields = typed.Fields
	}
	JSON(w, status, body)
}

func statusFor(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeInvalidState, common.CodeConflict, common.CodeAlreadyDecided:
		return http.StatusConflict
	case common.CodeExpired:
		return http.StatusGone
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
