package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// ExpiryMonitor periodically reclaims stale sessions. The sweep is
// independent of applicant activity: an applicant who never writes again
// would otherwise keep a session forever.
type ExpiryMonitor struct {
	intake   *IntakeService
	interval time.Duration
	logger   *logrus.Logger
}

func NewExpiryMonitor(intake *IntakeService, interval time.Duration, logger *logrus.Logger) *ExpiryMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryMonitor{intake: intake, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled.
func (m *ExpiryMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := m.intake.EvictExpired(ctx)
			if err != nil {
				m.logger.WithError(err).Warn("expiry sweep failed")
				continue
			}
			if evicted > 0 {
				m.logger.WithField("evicted", evicted).Info("expired sessions reclaimed")
			}
		}
	}
}
