package authz

import (
	"context"
	"testing"

	"applybot/internal/domain/position"
	"applybot/internal/domain/record"
)

func TestMayApply(t *testing.T) {
	policy := NewRolePolicy()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor Actor
		cfg   position.Config
		want  bool
	}{
		{
			name:  "open position",
			actor: Actor{ID: "u1"},
			cfg:   position.Config{},
			want:  true,
		},
		{
			name:  "required role held",
			actor: Actor{ID: "u1", Roles: []string{"member"}},
			cfg:   position.Config{RequiredRoles: []string{"member"}},
			want:  true,
		},
		{
			name:  "required role missing",
			actor: Actor{ID: "u1"},
			cfg:   position.Config{RequiredRoles: []string{"member"}},
			want:  false,
		},
		{
			name:  "restricted role blocks despite required",
			actor: Actor{ID: "u1", Roles: []string{"member", "banned"}},
			cfg:   position.Config{RequiredRoles: []string{"member"}, RestrictedRoles: []string{"banned"}},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.MayApply(ctx, tt.actor, &tt.cfg); got != tt.want {
				t.Fatalf("MayApply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMayDecide(t *testing.T) {
	policy := NewRolePolicy()
	ctx := context.Background()
	cfg := position.Config{
		AcceptRoles:     []string{"staff"},
		DenyRoles:       []string{"staff"},
		DenyReasonRoles: []string{"senior-staff"},
	}

	staff := Actor{ID: "r1", Roles: []string{"staff"}}
	senior := Actor{ID: "r2", Roles: []string{"senior-staff"}}
	root := Actor{ID: "r3", IsAdmin: true}

	if !policy.MayDecide(ctx, staff, &cfg, record.OutcomeAccept, false) {
		t.Fatal("staff must be able to accept")
	}
	if !policy.MayDecide(ctx, staff, &cfg, record.OutcomeDeny, false) {
		t.Fatal("staff must be able to deny without reason")
	}
	if policy.MayDecide(ctx, staff, &cfg, record.OutcomeDeny, true) {
		t.Fatal("reasoned denial is reserved for the reason-specific list")
	}
	if !policy.MayDecide(ctx, senior, &cfg, record.OutcomeDeny, true) {
		t.Fatal("senior staff must be able to deny with reason")
	}
	// No accept-reason list configured, so the base list applies.
	if !policy.MayDecide(ctx, staff, &cfg, record.OutcomeAccept, true) {
		t.Fatal("reasoned accept must fall back to the base list")
	}
	if !policy.MayDecide(ctx, root, &position.Config{}, record.OutcomeDeny, true) {
		t.Fatal("administrators always decide")
	}
	if policy.MayDecide(ctx, staff, &position.Config{}, record.OutcomeAccept, false) {
		t.Fatal("empty lists must leave decisions to administrators")
	}
}
