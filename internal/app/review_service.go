package app

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"applybot/internal/common"
	"applybot/internal/domain/authz"
	"applybot/internal/domain/notify"
	"applybot/internal/domain/position"
	"applybot/internal/domain/record"
	"applybot/internal/events"
	"applybot/internal/observability"
)

// ReviewService applies accept/deny decisions to submitted records. The
// pending -> decided transition is a compare-and-swap at the store, so two
// reviewers racing on the same record commit exactly one decision.
type ReviewService struct {
	records   record.Store
	positions position.Source
	authorize authz.Authorizer
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *observability.Collector
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReviewService(records record.Store, positions position.Source, authorize authz.Authorizer, notifier notify.Notifier, publisher events.Publisher, metrics *observability.Collector, logger *logrus.Logger) *ReviewService {
	return &ReviewService{
		records:   records,
		positions: positions,
		authorize: authorize,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DecisionResult reports a committed decision. NotificationError is set when
// the decision went through but the applicant could not be told; the caller
// decides whether to surface that to the reviewer.
type DecisionResult struct {
	Record            *record.ApplicationRecord `json:"record"`
	RolesToGrant      []string                  `json:"roles_to_grant,omitempty"`
	RolesToRevoke     []string                  `json:"roles_to_revoke,omitempty"`
	NotificationError error                     `json:"-"`
}

func (s *ReviewService) Get(ctx context.Context, id common.UUID) (*record.ApplicationRecord, error) {
	return retryStorage(func() (*record.ApplicationRecord, error) {
		return s.records.Get(ctx, id)
	})
}

func (s *ReviewService) ListPending(ctx context.Context) ([]record.ApplicationRecord, error) {
	return retryStorage(func() ([]record.ApplicationRecord, error) {
		return s.records.ListByStatus(ctx, record.StatusPending)
	})
}

// Decide commits the reviewer's outcome exactly once. A failure to notify the
// applicant never rolls the decision back; it is reported on the result
// instead.
func (s *ReviewService) Decide(ctx context.Context, id common.UUID, actor authz.Actor, outcome record.Outcome, reason string) (*DecisionResult, error) {
	if outcome != record.OutcomeAccept && outcome != record.OutcomeDeny {
		return nil, common.NewValidationError("invalid outcome", map[string]string{"outcome": "outcome must be accept or deny"})
	}
	current, err := retryStorage(func() (*record.ApplicationRecord, error) {
		return s.records.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if current.Status != record.StatusPending {
		return nil, common.NewError(common.CodeAlreadyDecided, "application has already been processed", nil)
	}

	cfg := s.configOrEmpty(ctx, current.Position)
	reason = strings.TrimSpace(reason)
	withReason := reason != ""
	if !s.authorize.MayDecide(ctx, actor, cfg, outcome, withReason) {
		return nil, common.NewError(common.CodeForbidden, "you are not permitted to "+string(outcome)+" this application", nil)
	}

	decision := &record.Decision{
		ReviewerID: actor.ID,
		Reason:     reason,
		WithReason: withReason,
		DecidedAt:  s.now(),
	}
	if err := retryStorageErr(func() error {
		return s.records.CompareAndSwapStatus(ctx, id, record.StatusPending, outcome.Status(), decision)
	}); err != nil {
		return nil, err
	}

	current.Status = outcome.Status()
	current.Decision = decision
	s.metrics.IncDecisions()
	s.publish(ctx, events.ApplicationDecided, current)

	result := &DecisionResult{Record: current}
	if outcome == record.OutcomeAccept {
		result.RolesToGrant = cfg.AcceptedRoles
		result.RolesToRevoke = cfg.AcceptedRemovalRoles
	} else {
		result.RolesToGrant = cfg.DeniedRoles
		result.RolesToRevoke = cfg.DeniedRemovalRoles
	}

	kind := notify.KindAccepted
	text := cfg.AcceptedMessage
	if outcome == record.OutcomeDeny {
		kind = notify.KindDenied
		text = cfg.DeniedMessage
	}
	if withReason {
		text = reason
	}
	if err := s.notifier.NotifyApplicant(ctx, current.ApplicantID, kind, notify.ApplicantMessage{
		Position: current.Position,
		Text:     text,
		RecordID: current.ID,
	}); err != nil {
		s.logger.WithError(err).WithField("record_id", current.ID).Warn("decision committed but applicant notification failed")
		result.NotificationError = err
	}
	return result, nil
}

// configOrEmpty keeps records decidable after their position was removed from
// the catalog: only administrators pass authorization then, and no role
// changes are produced.
func (s *ReviewService) configOrEmpty(ctx context.Context, positionName string) *position.Config {
	cfg, err := s.positions.Get(ctx, positionName)
	if err != nil {
		return &position.Config{Name: positionName}
	}
	return cfg
}

func (s *ReviewService) publish(ctx context.Context, event string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event, payload); err != nil {
		s.logger.WithError(err).WithField("event", event).Warn("failed to publish event")
	}
}
