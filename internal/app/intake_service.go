package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"applybot/internal/common"
	"applybot/internal/domain/authz"
	"applybot/internal/domain/notify"
	"applybot/internal/domain/position"
	"applybot/internal/domain/record"
	"applybot/internal/domain/session"
	"applybot/internal/events"
	"applybot/internal/observability"
)

// defaultTimeLimit applies when a session's position has been removed from the
// catalog mid-flight.
const defaultTimeLimit = 60 * time.Minute

// IntakeService drives one applicant at a time through a position's question
// sequence. All session mutations for one applicant run under that
// applicant's key lock, shared with the expiry sweep.
type IntakeService struct {
	sessions  session.Store
	records   record.Store
	positions position.Source
	authorize authz.Authorizer
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *observability.Collector
	logger    *logrus.Logger
	locks     *keyedMutex
	now       func() time.Time
}

func NewIntakeService(sessions session.Store, records record.Store, positions position.Source, authorize authz.Authorizer, notifier notify.Notifier, publisher events.Publisher, metrics *observability.Collector, logger *logrus.Logger) *IntakeService {
	return &IntakeService{
		sessions:  sessions,
		records:   records,
		positions: positions,
		authorize: authorize,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AnswerResult reports what an accepted answer led to: either the next
// question to ask, or the identifier of the record the completed intake
// produced.
type AnswerResult struct {
	Done          bool        `json:"done"`
	RecordID      common.UUID `json:"record_id,omitempty"`
	QuestionIndex int         `json:"question_index,omitempty"`
	QuestionText  string      `json:"question_text,omitempty"`
	QuestionTotal int         `json:"question_total,omitempty"`
}

// Start offers a session for the given position. An unconfirmed session for
// the same position is re-offered with a fresh question snapshot; an active
// one is returned as is. A session for a different position blocks the start.
func (s *IntakeService) Start(ctx context.Context, actor authz.Actor, positionName string) (*session.IntakeSession, error) {
	cfg, err := s.positions.Get(ctx, positionName)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, common.NewError(common.CodeValidation, "position is not accepting applications", nil)
	}
	if len(cfg.Questions) == 0 {
		return nil, common.NewError(common.CodeValidation, "position has no questions configured", nil)
	}
	if !s.authorize.MayApply(ctx, actor, cfg) {
		return nil, common.NewError(common.CodeForbidden, "you are not permitted to apply for this position", nil)
	}

	s.locks.Lock(actor.ID)
	existing, err := retryStorage(func() (*session.IntakeSession, error) {
		return s.sessions.Get(ctx, actor.ID)
	})
	if err != nil && !common.Is(err, common.CodeNotFound) {
		s.locks.Unlock(actor.ID)
		return nil, err
	}
	if existing != nil {
		if existing.Position != positionName {
			s.locks.Unlock(actor.ID)
			return nil, common.NewError(common.CodeConflict, "an application for another position is already in progress", nil)
		}
		if existing.Active() {
			// Mid-questionnaire; nothing to re-offer.
			s.locks.Unlock(actor.ID)
			return existing, nil
		}
		// Unconfirmed re-offer falls through to a fresh snapshot.
	}

	now := s.now()
	created := &session.IntakeSession{
		ApplicantID:    actor.ID,
		ApplicantName:  actor.Name,
		Position:       positionName,
		Questions:      append([]string(nil), cfg.Questions...),
		Answers:        []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := retryStorageErr(func() error { return s.sessions.Put(ctx, created) }); err != nil {
		s.locks.Unlock(actor.ID)
		return nil, err
	}
	s.locks.Unlock(actor.ID)

	s.metrics.IncIntakeStarted()
	s.deliver(ctx, actor.ID, notify.KindWelcome, notify.ApplicantMessage{
		Position:         positionName,
		Text:             cfg.WelcomeMessage,
		TimeLimitMinutes: int(cfg.TimeLimit / time.Minute),
	})
	return created, nil
}

// Confirm marks the session started and asks the first question.
func (s *IntakeService) Confirm(ctx context.Context, applicantID string) (*session.IntakeSession, error) {
	s.locks.Lock(applicantID)
	current, err := retryStorage(func() (*session.IntakeSession, error) {
		return s.sessions.Get(ctx, applicantID)
	})
	if err != nil {
		s.locks.Unlock(applicantID)
		return nil, err
	}
	if current.Active() {
		s.locks.Unlock(applicantID)
		return nil, common.NewError(common.CodeInvalidState, "application already started", nil)
	}

	now := s.now()
	current.StartedAt = &now
	current.LastActivityAt = now
	if err := retryStorageErr(func() error { return s.sessions.Put(ctx, current) }); err != nil {
		s.locks.Unlock(applicantID)
		return nil, err
	}
	s.locks.Unlock(applicantID)

	limit := s.timeLimitFor(ctx, current.Position)
	s.deliver(ctx, applicantID, notify.KindQuestion, notify.ApplicantMessage{
		Position:         current.Position,
		Text:             current.Questions[0],
		QuestionIndex:    0,
		QuestionTotal:    len(current.Questions),
		TimeLimitMinutes: int(limit / time.Minute),
	})
	return current, nil
}

// Cancel removes the applicant's session if one exists. A second call finds
// nothing and reports not_found, which callers treat as a no-op.
func (s *IntakeService) Cancel(ctx context.Context, applicantID string) error {
	s.locks.Lock(applicantID)
	current, err := retryStorage(func() (*session.IntakeSession, error) {
		return s.sessions.Get(ctx, applicantID)
	})
	if err != nil {
		s.locks.Unlock(applicantID)
		return err
	}
	if err := retryStorageErr(func() error { return s.sessions.Delete(ctx, applicantID) }); err != nil {
		s.locks.Unlock(applicantID)
		return err
	}
	s.locks.Unlock(applicantID)

	s.deliver(ctx, applicantID, notify.KindCancelled, notify.ApplicantMessage{
		Position: current.Position,
		Text:     "Your application has been cancelled.",
	})
	return nil
}

// Answer records one answer for the applicant's active session. On the final
// answer it creates the pending record first and deletes the session second,
// so a crash in between leaves a stale session but never a duplicate record.
func (s *IntakeService) Answer(ctx context.Context, applicantID, text string) (*AnswerResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewValidationError("answer must not be empty", map[string]string{"text": "text is required"})
	}

	s.locks.Lock(applicantID)
	current, err := retryStorage(func() (*session.IntakeSession, error) {
		return s.sessions.Get(ctx, applicantID)
	})
	if err != nil {
		s.locks.Unlock(applicantID)
		return nil, err
	}
	if !current.Active() {
		s.locks.Unlock(applicantID)
		return nil, common.NewError(common.CodeInvalidState, "application has not been started", nil)
	}

	now := s.now()
	limit := s.timeLimitFor(ctx, current.Position)
	if now.Sub(current.IdleSince()) > limit {
		if err := retryStorageErr(func() error { return s.sessions.Delete(ctx, applicantID) }); err != nil {
			s.locks.Unlock(applicantID)
			return nil, err
		}
		s.locks.Unlock(applicantID)
		s.notifyExpired(ctx, current, limit)
		return nil, common.NewError(common.CodeExpired, "application session has expired", nil)
	}

	current.Answers = append(current.Answers, text)
	current.LastActivityAt = now

	if !current.Completed() {
		if err := retryStorageErr(func() error { return s.sessions.Put(ctx, current) }); err != nil {
			s.locks.Unlock(applicantID)
			return nil, err
		}
		index := current.CurrentQuestion()
		question := current.Questions[index]
		s.locks.Unlock(applicantID)

		s.deliver(ctx, applicantID, notify.KindQuestion, notify.ApplicantMessage{
			Position:      current.Position,
			Text:          question,
			QuestionIndex: index,
			QuestionTotal: len(current.Questions),
		})
		return &AnswerResult{QuestionIndex: index, QuestionText: question, QuestionTotal: len(current.Questions)}, nil
	}

	created, err := s.finalize(ctx, current)
	if err != nil {
		s.locks.Unlock(applicantID)
		return nil, err
	}
	s.locks.Unlock(applicantID)

	s.metrics.IncIntakeSubmitted()
	s.announceSubmission(ctx, created)
	return &AnswerResult{Done: true, RecordID: created.ID}, nil
}

// finalize turns the completed session into a pending record. Record creation
// comes first; only after it is durable is the session removed.
func (s *IntakeService) finalize(ctx context.Context, current *session.IntakeSession) (*record.ApplicationRecord, error) {
	entries := make([]record.Entry, len(current.Questions))
	for i, question := range current.Questions {
		entries[i] = record.Entry{Question: question, Answer: current.Answers[i]}
	}
	created := &record.ApplicationRecord{
		ID:            common.NewUUID(),
		ApplicantID:   current.ApplicantID,
		ApplicantName: current.ApplicantName,
		Position:      current.Position,
		Entries:       entries,
		Status:        record.StatusPending,
		CreatedAt:     s.now(),
	}
	err := retryStorageErr(func() error { return s.records.Create(ctx, created) })
	if err != nil && common.Is(err, common.CodeConflict) {
		// ID collision; a fresh random ID cannot collide with the first try.
		created.ID = common.NewUUID()
		err = retryStorageErr(func() error { return s.records.Create(ctx, created) })
	}
	if err != nil {
		return nil, err
	}
	if err := retryStorageErr(func() error { return s.sessions.Delete(ctx, current.ApplicantID) }); err != nil {
		// The record exists; the stale session will be reclaimed by expiry.
		s.logger.WithError(err).WithField("applicant_id", current.ApplicantID).
			Warn("failed to delete session after record creation")
	}
	return created, nil
}

func (s *IntakeService) announceSubmission(ctx context.Context, created *record.ApplicationRecord) {
	cfg := s.configOrEmpty(ctx, created.Position)
	s.deliver(ctx, created.ApplicantID, notify.KindCompletion, notify.ApplicantMessage{
		Position: created.Position,
		Text:     cfg.CompletionMessage,
		RecordID: created.ID,
	})
	if err := s.notifier.NotifyReviewers(ctx, cfg.ReviewChannel, notify.ReviewRequest{
		RecordID:      created.ID,
		Position:      created.Position,
		ApplicantID:   created.ApplicantID,
		ApplicantName: created.ApplicantName,
		PingRoles:     cfg.PingRoles,
	}); err != nil {
		s.logger.WithError(err).WithField("record_id", created.ID).Warn("failed to notify reviewers")
	}
	s.publish(ctx, events.ApplicationSubmitted, created)
}

// EvictExpired removes every session whose idle time exceeds its position's
// limit. Each eviction runs under the applicant's key lock so it cannot
// interleave with an in-flight Answer.
func (s *IntakeService) EvictExpired(ctx context.Context) (int, error) {
	all, err := retryStorage(func() ([]session.IntakeSession, error) {
		return s.sessions.ListAll(ctx)
	})
	if err != nil {
		return 0, err
	}

	evicted := 0
	for i := range all {
		applicantID := all[i].ApplicantID

		s.locks.Lock(applicantID)
		current, err := s.sessions.Get(ctx, applicantID)
		if err != nil {
			// Completed or cancelled since the listing; nothing to do.
			s.locks.Unlock(applicantID)
			continue
		}
		limit := s.timeLimitFor(ctx, current.Position)
		if s.now().Sub(current.IdleSince()) <= limit {
			s.locks.Unlock(applicantID)
			continue
		}
		if err := retryStorageErr(func() error { return s.sessions.Delete(ctx, applicantID) }); err != nil {
			s.locks.Unlock(applicantID)
			s.logger.WithError(err).WithField("applicant_id", applicantID).Warn("failed to evict expired session")
			continue
		}
		s.locks.Unlock(applicantID)

		evicted++
		s.metrics.IncIntakeExpired()
		s.notifyExpired(ctx, current, limit)
		s.publish(ctx, events.ApplicationExpired, current)
	}
	return evicted, nil
}

func (s *IntakeService) notifyExpired(ctx context.Context, expired *session.IntakeSession, limit time.Duration) {
	s.deliver(ctx, expired.ApplicantID, notify.KindExpired, notify.ApplicantMessage{
		Position: expired.Position,
		Text: fmt.Sprintf("Your application has expired. You had %d minutes to complete it. Please start a new application if you wish to apply.",
			int(limit/time.Minute)),
		TimeLimitMinutes: int(limit / time.Minute),
	})
}

func (s *IntakeService) timeLimitFor(ctx context.Context, positionName string) time.Duration {
	cfg, err := s.positions.Get(ctx, positionName)
	if err != nil || cfg.TimeLimit <= 0 {
		return defaultTimeLimit
	}
	return cfg.TimeLimit
}

func (s *IntakeService) configOrEmpty(ctx context.Context, positionName string) *position.Config {
	cfg, err := s.positions.Get(ctx, positionName)
	if err != nil {
		return &position.Config{Name: positionName}
	}
	return cfg
}

func (s *IntakeService) deliver(ctx context.Context, applicantID string, kind notify.MessageKind, msg notify.ApplicantMessage) {
	if err := s.notifier.NotifyApplicant(ctx, applicantID, kind, msg); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"applicant_id": applicantID,
			"kind":         kind,
		}).Warn("failed to deliver applicant notification")
	}
}

func (s *IntakeService) publish(ctx context.Context, event string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.logger.WithError(err).WithField("event", event).Warn("failed to publish event")
	}
}
