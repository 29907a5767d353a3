package app

import (
	"context"
	"testing"
	"time"

	"applybot/internal/common"
)

func TestExpiryMonitorReclaimsStaleSessions(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(moderatorConfig())

	if _, err := f.intake.Start(ctx, applicant(), "Moderator"); err != nil {
		t.Fatalf("start: %v", err)
	}
	stale, _ := f.sessions.Get(ctx, "u1")
	stale.CreatedAt = time.Now().UTC().Add(-3 * time.Hour)
	stale.LastActivityAt = stale.CreatedAt
	if err := f.sessions.Put(ctx, stale); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	monitor := NewExpiryMonitor(f.intake, 5*time.Millisecond, quietLogger())
	done := make(chan struct{})
	go func() {
		monitor.Run(runCtx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for {
		if _, err := f.sessions.Get(ctx, "u1"); common.Is(err, common.CodeNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stale session was never reclaimed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestExpiryMonitorStopsOnCancel(t *testing.T) {
	f := newIntakeFixture(moderatorConfig())
	monitor := NewExpiryMonitor(f.intake, time.Millisecond, quietLogger())

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(runCtx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}
