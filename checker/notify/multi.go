package notify

import (
	"context"
	"errors"

	"github.com/screwyprof/stakecheck/checker"
)

// MultiNotifier fans a snapshot out to several notifiers.
// Every notifier is tried; their failures are joined.
type MultiNotifier struct {
	notifiers []checker.Notifier
}

func NewMultiNotifier(notifiers ...checker.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Add appends a notifier to the fan-out
func (m *MultiNotifier) Add(n checker.Notifier) {
	m.notifiers = append(m.notifiers, n)
}

func (m *MultiNotifier) Send(ctx context.Context, snapshot checker.Snapshot) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
