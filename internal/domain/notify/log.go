package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier is the fallback Notifier used when no chat gateway is
// configured. It records deliveries instead of sending them.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyApplicant(_ context.Context, applicantID string, kind MessageKind, msg ApplicantMessage) error {
	n.logger.WithFields(logrus.Fields{
		"applicant_id": applicantID,
		"kind":         kind,
		"position":     msg.Position,
	}).Info("applicant notification (no gateway configured)")
	return nil
}

func (n *LogNotifier) NotifyReviewers(_ context.Context, channelRef string, req ReviewRequest) error {
	n.logger.WithFields(logrus.Fields{
		"channel":   channelRef,
		"record_id": req.RecordID,
		"position":  req.Position,
	}).Info("review request notification (no gateway configured)")
	return nil
}
