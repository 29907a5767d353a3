package authz

import (
	"context"

	"applybot/internal/domain/position"
	"applybot/internal/domain/record"
)

// Actor is the identity the chat gateway resolved for a request. Role IDs are
// opaque strings owned by the chat platform.
type Actor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Roles   []string `json:"roles"`
	IsAdmin bool     `json:"is_admin"`
}

func (a Actor) hasAny(roles []string) bool {
	for _, required := range roles {
		for _, held := range a.Roles {
			if held == required {
				return true
			}
		}
	}
	return false
}

type Authorizer interface {
	MayApply(ctx context.Context, actor Actor, cfg *position.Config) bool
	MayDecide(ctx context.Context, actor Actor, cfg *position.Config, outcome record.Outcome, withReason bool) bool
}

// RolePolicy evaluates the position's role lists. It is consulted at call
// time, never cached across calls.
type RolePolicy struct{}

func NewRolePolicy() *RolePolicy {
	return &RolePolicy{}
}

func (p *RolePolicy) MayApply(_ context.Context, actor Actor, cfg *position.Config) bool {
	if len(cfg.RestrictedRoles) > 0 && actor.hasAny(cfg.RestrictedRoles) {
		return false
	}
	if len(cfg.RequiredRoles) > 0 && !actor.hasAny(cfg.RequiredRoles) {
		return false
	}
	return true
}

func (p *RolePolicy) MayDecide(_ context.Context, actor Actor, cfg *position.Config, outcome record.Outcome, withReason bool) bool {
	if actor.IsAdmin {
		return true
	}
	required := decisionRoles(cfg, outcome, withReason)
	if len(required) == 0 {
		// No roles configured means only administrators decide.
		return false
	}
	return actor.hasAny(required)
}

func decisionRoles(cfg *position.Config, outcome record.Outcome, withReason bool) []string {
	if outcome == record.OutcomeAccept {
		if withReason && len(cfg.AcceptReasonRoles) > 0 {
			return cfg.AcceptReasonRoles
		}
		return cfg.AcceptRoles
	}
	if withReason && len(cfg.DenyReasonRoles) > 0 {
		return cfg.DenyReasonRoles
	}
	return cfg.DenyRoles
}
