package position

import (
	"context"
	"time"
)

// Config is the static per-position definition. It is read-only to the intake
// and review services; editing the catalog never touches in-flight sessions
// because sessions snapshot their questions at start.
type Config struct {
	Name      string
	Enabled   bool
	Questions []string
	TimeLimit time.Duration

	WelcomeMessage    string
	CompletionMessage string
	AcceptedMessage   string
	DeniedMessage     string

	// Who may apply. An empty RequiredRoles list means anyone; any role in
	// RestrictedRoles blocks the applicant.
	RequiredRoles   []string
	RestrictedRoles []string

	// Who may decide. The reason-specific lists fall back to the base lists
	// when empty; administrators always pass.
	AcceptRoles       []string
	DenyRoles         []string
	AcceptReasonRoles []string
	DenyReasonRoles   []string

	// Role changes applied on each outcome.
	AcceptedRoles        []string
	AcceptedRemovalRoles []string
	DeniedRoles          []string
	DeniedRemovalRoles   []string

	// Review request fan-out.
	ReviewChannel string
	PingRoles     []string
}

type Source interface {
	Get(ctx context.Context, name string) (*Config, error)
	List(ctx context.Context) ([]Config, error)
}
