package notify

import (
	"context"
	"log/slog"

	"github.com/screwyprof/stakecheck/checker"
)

// LogNotifier writes every rendered line to a structured logger
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(ctx context.Context, snapshot checker.Snapshot) error {
	for _, r := range snapshot.Data {
		l.log.InfoContext(ctx, RenderLine(r),
			slog.String("address", r.Address),
			slog.String("status", r.Status.String()),
		)
	}
	return nil
}
