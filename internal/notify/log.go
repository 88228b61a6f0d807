package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the structured log. The default sink
// for deployments without a message broker, and the test double.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, recipient string, kind TemplateKind, data map[string]any) error {
	n.logger.InfoContext(ctx, "notification",
		"recipient", recipient,
		"template", kind,
		"data", data,
	)
	return nil
}
