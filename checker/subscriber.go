package checker

// Subscriber handles event subscriptions.
type Subscriber struct {
	done             chan struct{}
	startedHandler   func(SchedulerStarted)
	runStartHandler  func(RunStarted)
	completedHandler func(RunCompleted)
	failedHandler    func(RunFailed)
	shutdownHandler  func(SchedulerShutdown)
}

// OnSchedulerStarted sets the handler for SchedulerStarted events
func OnSchedulerStarted(fn func(SchedulerStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnRunStarted sets the handler for RunStarted events
func OnRunStarted(fn func(RunStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.runStartHandler = fn }
}

// OnRunCompleted sets the handler for RunCompleted events
func OnRunCompleted(fn func(RunCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.completedHandler = fn }
}

// OnRunFailed sets the handler for RunFailed events
func OnRunFailed(fn func(RunFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.failedHandler = fn }
}

// OnSchedulerShutdown sets the handler for SchedulerShutdown events
func OnSchedulerShutdown(fn func(SchedulerShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.shutdownHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	closer := checker.NewSubscriber(events,
//	  checker.OnRunCompleted(func(e RunCompleted) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
//
// The subscriber processes events until the events channel closes.
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:             make(chan struct{}),
		startedHandler:   func(SchedulerStarted) {},
		runStartHandler:  func(RunStarted) {},
		completedHandler: func(RunCompleted) {},
		failedHandler:    func(RunFailed) {},
		shutdownHandler:  func(SchedulerShutdown) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case SchedulerStarted:
				s.startedHandler(e)
			case RunStarted:
				s.runStartHandler(e)
			case RunCompleted:
				s.completedHandler(e)
			case RunFailed:
				s.failedHandler(e)
			case SchedulerShutdown:
				s.shutdownHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
