package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"applybot/internal/common"
	"applybot/internal/domain/authz"
	"applybot/internal/domain/notify"
	"applybot/internal/domain/position"
	"applybot/internal/domain/record"
	"applybot/internal/events"
	"applybot/internal/observability"
)

type reviewFixture struct {
	reviews   *ReviewService
	records   *fakeRecordStore
	notifier  *fakeNotifier
	positions *fakePositionSource
}

func newReviewFixture(configs ...position.Config) *reviewFixture {
	byName := make(map[string]position.Config)
	for _, cfg := range configs {
		byName[cfg.Name] = cfg
	}
	records := newFakeRecordStore()
	notifier := &fakeNotifier{}
	source := &fakePositionSource{byName: byName}
	reviews := NewReviewService(records, source, authz.NewRolePolicy(), notifier, events.NopPublisher{}, observability.NewCollector(), quietLogger())
	return &reviewFixture{reviews: reviews, records: records, notifier: notifier, positions: source}
}

func (f *reviewFixture) seedPending(t *testing.T, positionName string) common.UUID {
	t.Helper()
	pending := &record.ApplicationRecord{
		ID:            common.NewUUID(),
		ApplicantID:   "u1",
		ApplicantName: "Alice",
		Position:      positionName,
		Entries: []record.Entry{
			{Question: "Why?", Answer: "I care"},
			{Question: "Experience?", Answer: "5 years"},
		},
		Status:    record.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.records.Create(context.Background(), pending); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return pending.ID
}

func staffReviewer() authz.Actor {
	return authz.Actor{ID: "r1", Name: "Carol", Roles: []string{"staff"}}
}

func admin() authz.Actor {
	return authz.Actor{ID: "a1", Name: "Dave", IsAdmin: true}
}

func TestDecideAccept(t *testing.T) {
	ctx := context.Background()
	cfg := moderatorConfig()
	cfg.AcceptedRemovalRoles = []string{"applicant"}
	f := newReviewFixture(cfg)
	id := f.seedPending(t, "Moderator")

	result, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeAccept, "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if result.Record.Status != record.StatusAccepted {
		t.Fatalf("status = %s, want accepted", result.Record.Status)
	}
	if result.Record.Decision == nil || result.Record.Decision.ReviewerID != "r1" {
		t.Fatalf("decision = %+v", result.Record.Decision)
	}
	if result.Record.Decision.WithReason {
		t.Fatal("no reason was given")
	}
	if len(result.RolesToGrant) != 1 || result.RolesToGrant[0] != "moderator" {
		t.Fatalf("roles to grant = %v", result.RolesToGrant)
	}
	if len(result.RolesToRevoke) != 1 || result.RolesToRevoke[0] != "applicant" {
		t.Fatalf("roles to revoke = %v", result.RolesToRevoke)
	}

	stored, err := f.records.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != record.StatusAccepted {
		t.Fatalf("stored status = %s, want accepted", stored.Status)
	}
	kinds := f.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != notify.KindAccepted {
		t.Fatalf("applicant notification kinds = %v", kinds)
	}
	if f.notifier.applicant[0].msg.Text != "Your application has been accepted!" {
		t.Fatalf("notification text = %q", f.notifier.applicant[0].msg.Text)
	}
}

func TestDecideDenyWithReason(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")

	result, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeDeny, "  Not enough experience.  ")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if result.Record.Status != record.StatusDenied {
		t.Fatalf("status = %s, want denied", result.Record.Status)
	}
	if !result.Record.Decision.WithReason || result.Record.Decision.Reason != "Not enough experience." {
		t.Fatalf("decision = %+v", result.Record.Decision)
	}
	// The given reason replaces the configured denial text.
	if f.notifier.applicant[0].msg.Text != "Not enough experience." {
		t.Fatalf("notification text = %q", f.notifier.applicant[0].msg.Text)
	}
	if len(result.RolesToGrant) != 1 || result.RolesToGrant[0] != "applicant-denied" {
		t.Fatalf("roles to grant = %v", result.RolesToGrant)
	}
}

func TestDecideValidatesOutcome(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")

	_, err := f.reviews.Decide(ctx, id, staffReviewer(), record.Outcome("defer"), "")
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	stored, _ := f.records.Get(ctx, id)
	if stored.Status != record.StatusPending {
		t.Fatalf("record must stay pending, got %s", stored.Status)
	}
}

func TestDecideUnknownRecord(t *testing.T) {
	f := newReviewFixture(moderatorConfig())
	_, err := f.reviews.Decide(context.Background(), common.NewUUID(), staffReviewer(), record.OutcomeAccept, "")
	if !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestDecideTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")

	if _, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeAccept, ""); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	_, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeDeny, "changed my mind")
	if !common.Is(err, common.CodeAlreadyDecided) {
		t.Fatalf("expected already_decided, got %v", err)
	}
	stored, _ := f.records.Get(ctx, id)
	if stored.Status != record.StatusAccepted {
		t.Fatalf("first decision must stand, got %s", stored.Status)
	}
}

func TestConcurrentDecisionsCommitOnce(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")

	const reviewers = 8
	results := make([]error, reviewers)
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := record.OutcomeAccept
			if i%2 == 1 {
				outcome = record.OutcomeDeny
			}
			_, results[i] = f.reviews.Decide(ctx, id, staffReviewer(), outcome, "")
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range results {
		switch {
		case err == nil:
			committed++
		case common.Is(err, common.CodeAlreadyDecided):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if committed != 1 {
		t.Fatalf("committed = %d, want exactly 1", committed)
	}
	stored, _ := f.records.Get(ctx, id)
	if stored.Status == record.StatusPending || stored.Decision == nil {
		t.Fatalf("record must carry exactly one decision: %+v", stored)
	}
}

func TestDecideAuthorization(t *testing.T) {
	ctx := context.Background()
	cfg := moderatorConfig()
	cfg.DenyReasonRoles = []string{"senior-staff"}
	f := newReviewFixture(cfg)

	outsider := authz.Actor{ID: "r2", Name: "Eve", Roles: []string{"member"}}
	id := f.seedPending(t, "Moderator")
	if _, err := f.reviews.Decide(ctx, id, outsider, record.OutcomeAccept, ""); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("outsider accept: expected forbidden, got %v", err)
	}

	// A reasoned denial requires the reason-specific role when one is set.
	if _, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeDeny, "too junior"); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("staff reasoned deny: expected forbidden, got %v", err)
	}
	senior := authz.Actor{ID: "r3", Name: "Frank", Roles: []string{"senior-staff"}}
	if _, err := f.reviews.Decide(ctx, id, senior, record.OutcomeDeny, "too junior"); err != nil {
		t.Fatalf("senior reasoned deny: %v", err)
	}

	// A plain denial still follows the base list.
	second := f.seedPending(t, "Moderator")
	if _, err := f.reviews.Decide(ctx, second, staffReviewer(), record.OutcomeDeny, ""); err != nil {
		t.Fatalf("staff plain deny: %v", err)
	}
}

func TestDecideRemovedPositionIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")
	delete(f.positions.byName, "Moderator")

	if _, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeAccept, ""); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("staff on removed position: expected forbidden, got %v", err)
	}
	result, err := f.reviews.Decide(ctx, id, admin(), record.OutcomeAccept, "")
	if err != nil {
		t.Fatalf("admin on removed position: %v", err)
	}
	if len(result.RolesToGrant) != 0 || len(result.RolesToRevoke) != 0 {
		t.Fatalf("removed position must yield no role changes: %+v", result)
	}
}

func TestDecideSurvivesNotificationFailure(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	id := f.seedPending(t, "Moderator")
	f.notifier.failApplicant = true

	result, err := f.reviews.Decide(ctx, id, staffReviewer(), record.OutcomeAccept, "")
	if err != nil {
		t.Fatalf("decide must not fail on notification: %v", err)
	}
	if result.NotificationError == nil {
		t.Fatal("notification failure must be reported on the result")
	}
	stored, _ := f.records.Get(ctx, id)
	if stored.Status != record.StatusAccepted {
		t.Fatalf("decision must be committed, got %s", stored.Status)
	}
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture(moderatorConfig())
	first := f.seedPending(t, "Moderator")
	second := f.seedPending(t, "Moderator")

	if _, err := f.reviews.Decide(ctx, first, staffReviewer(), record.OutcomeAccept, ""); err != nil {
		t.Fatalf("decide: %v", err)
	}
	pending, err := f.reviews.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second {
		t.Fatalf("pending = %+v, want only the undecided record", pending)
	}
}
