package record

import (
	"context"
	"time"

	"applybot/internal/common"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDenied   Status = "denied"
)

type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeDeny   Outcome = "deny"
)

// Status maps a review outcome to the terminal record status.
func (o Outcome) Status() Status {
	if o == OutcomeAccept {
		return StatusAccepted
	}
	return StatusDenied
}

type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Decision struct {
	ReviewerID string    `json:"reviewer_id"`
	Reason     string    `json:"reason,omitempty"`
	WithReason bool      `json:"with_reason"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ApplicationRecord is a submitted questionnaire. It is immutable after
// creation except for the single pending -> accepted/denied transition, which
// the store applies as a compare-and-swap.
type ApplicationRecord struct {
	ID            common.UUID `json:"id"`
	ApplicantID   string      `json:"applicant_id"`
	ApplicantName string      `json:"applicant_name"`
	Position      string      `json:"position"`
	Entries       []Entry     `json:"entries"`
	Status        Status      `json:"status"`
	Decision      *Decision   `json:"decision,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, value *ApplicationRecord) error
	Get(ctx context.Context, id common.UUID) (*ApplicationRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]ApplicationRecord, error)
	// CompareAndSwapStatus transitions the record from expected to next and
	// attaches the decision, as a single atomic write. It fails with
	// CodeAlreadyDecided when the record is no longer in the expected status.
	CompareAndSwapStatus(ctx context.Context, id common.UUID, expected, next Status, decision *Decision) error
}
