package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"applybot/internal/common"
	"applybot/internal/domain/authz"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return common.NewValidationError("invalid request body", map[string]string{"body": "malformed json"})
	}
	return nil
}

func errUnauthorized() error {
	return common.NewError(common.CodeForbidden, "unauthorized", nil)
}

// actorPayload is how the chat gateway describes the acting user. The gateway
// is trusted (internal key) to report roles truthfully; the role policy only
// evaluates them.
type actorPayload struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Roles   []string `json:"roles"`
	IsAdmin bool     `json:"is_admin"`
}

func (p actorPayload) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return common.NewValidationError("invalid actor", map[string]string{"actor.id": "id is required"})
	}
	return nil
}

func (p actorPayload) toActor() authz.Actor {
	return authz.Actor{
		ID:      strings.TrimSpace(p.ID),
		Name:    strings.TrimSpace(p.Name),
		Roles:   p.Roles,
		IsAdmin: p.IsAdmin,
	}
}

// idFromPath extracts path segment i (0-based, leading slash stripped).
func idFromPath(r *http.Request, i int) (string, error) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if i >= len(parts) || strings.TrimSpace(parts[i]) == "" {
		return "", common.NewValidationError("invalid path", nil)
	}
	return parts[i], nil
}
