package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/screwyprof/stakecheck/pkg/clock"
	"github.com/screwyprof/stakecheck/pkg/stargate"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithInterval sets the time between scheduled runs
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithRunOnce makes Start perform a single run and then shut down
func WithRunOnce() Option {
	return func(s *Service) { s.runOnce = true }
}

// WithEngine replaces the diff engine. By default the engine shares the service clock.
func WithEngine(e *Engine) Option {
	return func(s *Service) { s.engine = e }
}

// Service fetches validators, diffs them against the previous snapshot, persists and notifies
// -------------------------------------------------------------------------------------------
type Service struct {
	api      Fetcher
	store    SnapshotStore
	notifier Notifier
	engine   *Engine
	clock    Clock
	interval time.Duration
	runOnce  bool
	events   chan Event
}

// NewService constructs a Service with required dependencies and options
// ---------------------------------------------------------------------
// By default, it uses a real clock and runs every hour.
func NewService(api Fetcher, store SnapshotStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		api:      api,
		store:    store,
		notifier: notifier,
		clock:    clock.SystemClock{},
		interval: DefaultInterval,
		events:   make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewEngine(s.clock)
	}
	return s
}

// Start launches the scheduler and returns the events channel and done channel.
// The first run happens immediately, then one run per interval.
//
// Shutdown pattern:
//  1. Cancel context to request shutdown: cancel()
//  2. Service stops producing events and closes events channel
//  3. Wait for complete shutdown: <-done
//
// With WithRunOnce the service shuts down on its own after the first run.
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

// run drives the schedule; runs never overlap
func (s *Service) run(ctx context.Context) {
	s.events <- SchedulerStarted{Interval: s.interval, RunOnce: s.runOnce}

	s.runCycle(ctx)
	if s.runOnce {
		s.events <- SchedulerShutdown{}
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.events <- SchedulerShutdown{Reason: ctx.Err()}
			return
		case <-s.clock.After(s.interval):
			s.runCycle(ctx)
		}
	}
}

// runCycle performs one Run and reports its outcome as events
func (s *Service) runCycle(ctx context.Context) {
	runID := uuid.New()
	start := s.clock.Now()

	s.events <- RunStarted{RunID: runID, StartedAt: start}

	snapshot, err := s.Run(ctx)
	if err != nil {
		s.events <- RunFailed{RunID: runID, Err: err}
		return
	}

	s.events <- RunCompleted{
		RunID:    runID,
		Snapshot: snapshot,
		Duration: s.clock.Now().Sub(start),
	}
}

// Run executes the pipeline once: fetch, load previous, transform, save, notify.
// A failure at any step aborts the run; nothing is saved or sent after it.
func (s *Service) Run(ctx context.Context) (Snapshot, error) {
	// respect cancellation
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	default:
	}

	raw, err := s.fetchAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	previous, err := s.store.LoadLatest(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	snapshot, err := s.engine.Transform(raw, previous)
	if err != nil {
		return Snapshot{}, err
	}

	// store writes the body before moving the latest pointer
	if err := s.store.Save(ctx, snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := s.notifier.Send(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}

	return snapshot, nil
}

// fetchAll queries every status filter concurrently and concatenates in filter order
func (s *Service) fetchAll(ctx context.Context) ([]RawValidator, error) {
	slots := make([][]stargate.Validator, len(StatusFilters))

	g, gctx := errgroup.WithContext(ctx)
	for i, status := range StatusFilters {
		g.Go(func() error {
			validators, err := s.api.GetValidators(gctx, status.String())
			if err != nil {
				return fmt.Errorf("status %s: %w", status, err)
			}
			slots[i] = validators
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var raw []RawValidator
	for _, validators := range slots {
		raw = append(raw, convertValidators(validators)...)
	}
	return raw, nil
}

// convertValidators converts API validators to raw domain validators
func convertValidators(validators []stargate.Validator) []RawValidator {
	raw := make([]RawValidator, len(validators))

	for i, v := range validators {
		raw[i] = RawValidator{
			Moniker:    v.Description.Moniker,
			Address:    v.OperatorAddress,
			StatusCode: v.Status,
			RawTokens:  v.Tokens,
		}
	}

	return raw
}
