package eventqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// popTimeout bounds each blocking pop attempt in the main loop
// (spec.md §4.6 step 2: "bounded wait ≈ 200 ms").
const popTimeout = 200 * time.Millisecond

// drainTimeout bounds the shutdown drain phase.
const drainTimeout = 5 * time.Second

// flushDivisor divides the configured flush delay to get the
// overwritable-buffer flush cadence (spec.md §4.6 step 1: "delay
// divided by 10").
const flushDivisor = 10

// Logger is the minimal structured-logging surface the dispatcher
// needs; internal/obs's zerolog-backed logger satisfies it.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Errorf(string, ...any) {}

// Stats is a cumulative snapshot of the dispatcher's activity,
// restoring the original's get_total_send_time/get_total_sent_events
// counters (SPEC_FULL.md §10.4).
type Stats struct {
	Sent          int64
	Dropped       int64
	Requeued      int64
	TotalSendTime time.Duration
}

// EventDroppedFunc is called for every message the dispatcher gives
// up on permanently (an unrecoverable publish error).
type EventDroppedFunc func(Message)

// Dispatcher owns one outbound queue, one broker session, and one
// background goroutine draining it. One Dispatcher corresponds to one
// queue in the original design; nothing is shared across Dispatchers.
type Dispatcher struct {
	broker Broker
	topic  string

	queue        *queue
	overwritable *overwritableBuffer

	flushDelay time.Duration

	eventDropped EventDroppedFunc
	logger       Logger

	running atomic.Bool
	healthy atomic.Bool

	sent          atomic.Int64
	dropped       atomic.Int64
	requeued      atomic.Int64
	totalSendTime atomic.Int64 // nanoseconds

	session Session

	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithFlushDelay sets the overwritable-buffer flush period; the
// actual flush cadence is this value divided by 10.
func WithFlushDelay(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.flushDelay = d }
}

// WithEventDropped registers a callback invoked once per permanently
// dropped message.
func WithEventDropped(fn EventDroppedFunc) Option {
	return func(dp *Dispatcher) { dp.eventDropped = fn }
}

// WithLogger installs a structured logger, replacing the default no-op.
func WithLogger(l Logger) Option {
	return func(dp *Dispatcher) { dp.logger = l }
}

// New constructs a Dispatcher bound to broker and topic. Call Start
// to create the broker session and begin draining.
func New(broker Broker, topic string, opts ...Option) *Dispatcher {
	dp := &Dispatcher{
		broker:       broker,
		topic:        topic,
		queue:        newQueue(),
		overwritable: newOverwritableBuffer(topic),
		flushDelay:   10 * time.Second,
		logger:       noopLogger{},
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(dp)
	}
	return dp
}

// Send enqueues payload for publication under topic.
func (dp *Dispatcher) Send(payload []byte) {
	dp.queue.pushBack(Message{Topic: dp.topic, Payload: payload})
}

// SendOverwritable buffers payload under key, replacing any
// not-yet-flushed payload previously buffered for the same key
// (SPEC_FULL.md §10.5).
func (dp *Dispatcher) SendOverwritable(key string, payload []byte) {
	dp.overwritable.put(key, payload)
}

// Healthy reports whether the dispatch loop is running, restoring the
// original's self->healthy field (SPEC_FULL.md §10.3).
func (dp *Dispatcher) Healthy() bool {
	return dp.healthy.Load()
}

// Stats returns a snapshot of cumulative send activity.
func (dp *Dispatcher) Stats() Stats {
	return Stats{
		Sent:          dp.sent.Load(),
		Dropped:       dp.dropped.Load(),
		Requeued:      dp.requeued.Load(),
		TotalSendTime: time.Duration(dp.totalSendTime.Load()),
	}
}

// Start creates the broker session and spawns the dispatch loop.
func (dp *Dispatcher) Start(ctx context.Context, endpoint string) error {
	session, err := dp.broker.Create(ctx, endpoint, dp.topic)
	if err != nil {
		return err
	}
	dp.session = session
	dp.running.Store(true)
	dp.healthy.Store(true)

	go dp.run(ctx)
	return nil
}

// Stop flips running to false and blocks until the drain phase
// (bounded by drainTimeout) completes and the broker session is
// destroyed.
func (dp *Dispatcher) Stop() {
	dp.running.Store(false)
	<-dp.done
}

func (dp *Dispatcher) run(ctx context.Context) {
	defer close(dp.done)

	backoffPolicy := newBackoff()
	lastFlush := time.Now()
	flushEvery := dp.flushDelay / flushDivisor

	for dp.running.Load() {
		if time.Since(lastFlush) >= flushEvery {
			dp.flushOverwritable(ctx, false)
			lastFlush = time.Now()
		}

		msg, ok := dp.queue.popTimeout(popTimeout)
		if !ok {
			continue
		}

		if !dp.publishOnce(ctx, msg, backoffPolicy) {
			continue
		}
	}

	dp.healthy.Store(false)
	dp.drain(ctx)
	dp.broker.Destroy(dp.session)
}

// publishOnce publishes one message and applies §4.6 step 5's outcome
// classification. Returns true if the loop should proceed immediately
// to the next pop, false if it just slept off a backoff and should
// re-check the running flag first.
func (dp *Dispatcher) publishOnce(ctx context.Context, msg Message, bo *cappedExponentialBackoff) bool {
	start := time.Now()
	err := dp.broker.Publish(ctx, dp.session, msg.Topic, msg.Payload)
	elapsed := time.Since(start)
	dp.totalSendTime.Add(int64(elapsed))

	switch {
	case err == nil:
		bo.Reset()
		dp.sent.Add(1)
		return true

	case IsRetry(err) || IsNetworkError(err):
		dp.queue.pushFront(msg)
		dp.requeued.Add(1)
		delay := bo.NextBackOff()
		dp.logger.Warnf("publish retry topic=%s delay=%s err=%v", msg.Topic, delay, err)
		time.Sleep(delay)
		return false

	default:
		dp.dropped.Add(1)
		dp.logger.Errorf("publish dropped topic=%s err=%v", msg.Topic, err)
		if dp.eventDropped != nil {
			dp.eventDropped(msg)
		}
		bo.Reset()
		return true
	}
}

// drain implements the shutdown phase of §4.6: bounded retry loop,
// forced overwritable flush on every pass, 100ms sleep between
// recoverable retries during drain.
func (dp *Dispatcher) drain(ctx context.Context) {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) && dp.queue.len() > 0 {
		dp.flushOverwritable(ctx, true)

		msg, ok := dp.queue.popTimeout(50 * time.Millisecond)
		if !ok {
			break
		}
		err := dp.broker.Publish(ctx, dp.session, msg.Topic, msg.Payload)
		if err != nil && (IsRetry(err) || IsNetworkError(err)) {
			dp.queue.pushFront(msg)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			dp.dropped.Add(1)
			if dp.eventDropped != nil {
				dp.eventDropped(msg)
			}
		} else {
			dp.sent.Add(1)
		}
	}
	dp.flushOverwritable(ctx, true)
}

func (dp *Dispatcher) flushOverwritable(ctx context.Context, force bool) {
	msgs := dp.overwritable.drain()
	for _, m := range msgs {
		if err := dp.broker.Publish(ctx, dp.session, m.Topic, m.Payload); err != nil {
			if force || IsRetry(err) || IsNetworkError(err) {
				// best-effort: requeue through the normal queue so the
				// main loop (or the drain loop, if force) retries it
				// with the usual classification.
				dp.queue.pushFront(m)
				continue
			}
			dp.dropped.Add(1)
			if dp.eventDropped != nil {
				dp.eventDropped(m)
			}
			continue
		}
		dp.sent.Add(1)
	}
}
