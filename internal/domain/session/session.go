package session

import (
	"context"
	"time"
)

// IntakeSession is one applicant's in-progress questionnaire. Questions are a
// snapshot taken at start, never a live reference into the position catalog.
// A nil StartedAt means the applicant was offered the session but has not
// confirmed it yet; once confirmed a session never returns to that state.
type IntakeSession struct {
	ApplicantID    string     `json:"applicant_id"`
	ApplicantName  string     `json:"applicant_name"`
	Position       string     `json:"position"`
	Questions      []string   `json:"questions"`
	Answers        []string   `json:"answers"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

func (s *IntakeSession) Active() bool {
	return s.StartedAt != nil
}

// CurrentQuestion returns the index of the next unanswered question.
func (s *IntakeSession) CurrentQuestion() int {
	return len(s.Answers)
}

func (s *IntakeSession) Completed() bool {
	return len(s.Answers) >= len(s.Questions)
}

// IdleSince is the timestamp expiry is measured from: last answer activity for
// active sessions, creation time for unconfirmed ones.
func (s *IntakeSession) IdleSince() time.Time {
	if s.StartedAt == nil {
		return s.CreatedAt
	}
	return s.LastActivityAt
}

type Store interface {
	Get(ctx context.Context, applicantID string) (*IntakeSession, error)
	Put(ctx context.Context, value *IntakeSession) error
	Delete(ctx context.Context, applicantID string) error
	ListAll(ctx context.Context) ([]IntakeSession, error)
}
