package handlers

import (
	"net/http"
	"strings"

	"applybot/internal/http/response"
)

const (
	internalAuthHeader    = "Authorization"
	internalAuthAltHeader = "X-Internal-Key"
)

// RequireInternalAuth guards every state-changing endpoint: only the chat
// gateway holding the shared internal key may call this API.
func RequireInternalAuth(w http.ResponseWriter, r *http.Request, internalKey string) bool {
	key := strings.TrimSpace(internalKey)
	if key == "" {
		response.Error(w, errUnauthorized())
		return false
	}
	altValue := strings.TrimSpace(r.Header.Get(internalAuthAltHeader))
	value := strings.TrimSpace(r.Header.Get(internalAuthHeader))
	if altValue == key || value == "Bearer "+key {
		return true
	}
	response.Error(w, errUnauthorized())
	return false
}
