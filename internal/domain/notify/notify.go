package notify

import (
	"context"

	"applybot/internal/common"
)

type MessageKind string

const (
	KindWelcome    MessageKind = "welcome"
	KindQuestion   MessageKind = "question"
	KindCompletion MessageKind = "completion"
	KindCancelled  MessageKind = "cancelled"
	KindExpired    MessageKind = "expired"
	KindAccepted   MessageKind = "accepted"
	KindDenied     MessageKind = "denied"
)

// ApplicantMessage is the payload delivered to an applicant. Text carries the
// rendered message template; question fields are set for KindQuestion only.
type ApplicantMessage struct {
	Position         string      `json:"position"`
	Text             string      `json:"text"`
	QuestionIndex    int         `json:"question_index,omitempty"`
	QuestionTotal    int         `json:"question_total,omitempty"`
	TimeLimitMinutes int         `json:"time_limit_minutes,omitempty"`
	RecordID         common.UUID `json:"record_id,omitempty"`
}

// ReviewRequest asks the reviewers' channel to surface a submitted record.
type ReviewRequest struct {
	RecordID      common.UUID `json:"record_id"`
	Position      string      `json:"position"`
	ApplicantID   string      `json:"applicant_id"`
	ApplicantName string      `json:"applicant_name"`
	PingRoles     []string    `json:"ping_roles,omitempty"`
}

// Notifier is the outbound chat-delivery port. Delivery is best effort: the
// services log failures and never retry or roll back committed state.
type Notifier interface {
	NotifyApplicant(ctx context.Context, applicantID string, kind MessageKind, msg ApplicantMessage) error
	NotifyReviewers(ctx context.Context, channelRef string, req ReviewRequest) error
}
