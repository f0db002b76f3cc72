package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campus-adp/timetable-api/internal/models"
)

// Event is a committed schedule change handed to delivery channels.
// Dispatch happens after the owning transaction has returned success;
// delivery failures never roll back the schedule change.
type Event struct {
	Kind       models.NotificationKind
	SessionID  string
	Title      string
	Body       string
	Recipients []models.Recipient
	Attempt    int
	Enqueued   time.Time
}

// Deliverer pushes an event to an external channel (push, email).
type Deliverer interface {
	Deliver(ctx context.Context, event Event) error
}

// Config tunes the dispatcher worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Dispatcher fans committed schedule events out to a Deliverer on a pool
// of background workers.
type Dispatcher struct {
	deliverer Deliverer

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDispatcher builds a dispatcher around the given deliverer.
func NewDispatcher(deliverer Deliverer, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Dispatcher{
		deliverer:  deliverer,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		events:     make(chan Event, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Sugar().Infow("delivery dispatcher started", "workers", d.workers)
}

// Stop cancels workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("delivery dispatcher stopped")
}

// Enqueue hands an event to the workers without blocking the caller
// beyond buffer capacity. A stopped dispatcher drops the event with a log
// line; the notification rows are already committed.
func (d *Dispatcher) Enqueue(event Event) {
	d.mu.Lock()
	ctx := d.ctx
	started := d.started
	d.mu.Unlock()

	if !started {
		d.logger.Sugar().Warnw("delivery dispatcher not started, dropping event", "session_id", event.SessionID)
		return
	}
	if event.Enqueued.IsZero() {
		event.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		d.logger.Sugar().Warnw("delivery dispatcher stopped, dropping event", "session_id", event.SessionID)
	case d.events <- event:
	}
}

// Depth reports the number of buffered events.
func (d *Dispatcher) Depth() int {
	return len(d.events)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case event := <-d.events:
			if err := d.deliverer.Deliver(d.ctx, event); err != nil {
				d.handleFailure(event, err)
			}
		}
	}
}

func (d *Dispatcher) handleFailure(event Event, err error) {
	event.Attempt++
	if event.Attempt > d.maxRetries {
		d.logger.Sugar().Errorw("delivery exceeded retries", "session_id", event.SessionID, "kind", event.Kind, "error", err)
		return
	}
	d.logger.Sugar().Warnw("delivery failed, retrying", "session_id", event.SessionID, "kind", event.Kind, "attempt", event.Attempt, "error", err)

	go func(e Event) {
		timer := time.NewTimer(d.retryDelay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
			return
		case <-timer.C:
			d.Enqueue(e)
		}
	}(event)
}

// LogDeliverer is the default deliverer: it records the recipient list so
// an operator can verify fan-out without a push or mail backend attached.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer builds the logging deliverer.
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

// Deliver logs the event and its audience.
func (l *LogDeliverer) Deliver(_ context.Context, event Event) error {
	l.logger.Sugar().Infow("delivering schedule notification",
		"kind", event.Kind,
		"session_id", event.SessionID,
		"title", event.Title,
		"recipients", len(event.Recipients),
	)
	return nil
}
