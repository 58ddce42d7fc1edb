package notify

import (
	"context"

	"go.uber.org/zap"

	"njcrashes/internal/domain"
	"njcrashes/internal/port"
)

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a BatchNotifier that only logs the batch summary.
func NewLogNotifier(logger *zap.Logger) port.BatchNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) NotifyBatch(_ context.Context, runs []domain.IngestRun) error {
	s := Summarize(runs)
	n.logger.Info("notify: batch finished",
		zap.String("subject", Subject(runs)),
		zap.Int("files", s.Files),
		zap.Int("failed", s.Failed),
		zap.Int("records", s.Records),
		zap.Int("unresolved", s.Unresolved))
	return nil
}
