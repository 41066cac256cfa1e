package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"

	"shule_transit/internal/metrics"
)

// State of the tracking channel as seen by the viewer.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateSubscribed   State = "subscribed"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrConsumerClosed is returned by operations on a closed consumer.
var ErrConsumerClosed = errors.New("stream consumer closed")

// TrackedLocation is one sample of the tracked bus position.
type TrackedLocation struct {
	SequenceID uint64    `json:"sequence_id"`
	TripID     string    `json:"trip_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
}

// Snapshot is the one-shot pull baseline for a tracking token: the trip's
// last known location plus recent history and the tracked student's statuses.
type Snapshot struct {
	TripID        string
	StudentName   string
	Current       *TrackedLocation
	History       []TrackedLocation
	PickupStatus  string
	DropoffStatus string
}

// SubscribeAck arrives with a successful subscription and carries the
// authoritative pickup/dropoff status, which overwrites any stale local copy.
type SubscribeAck struct {
	PickupStatus  string
	DropoffStatus string
}

// Handlers receive push-channel callbacks. The consumer installs its own and
// guarantees none fire after Close.
type Handlers struct {
	OnSample     func(TrackedLocation)
	OnSubscribed func(SubscribeAck)
	OnError      func(error)
}

// PushSource is the live channel keyed by tracking token. Subscribe returns
// an unsubscribe function that stops all channel activity.
type PushSource interface {
	Subscribe(ctx context.Context, token string, h Handlers) (func(), error)
}

// SnapshotSource is the one-shot pull fetch used before the stream connects
// and as a fallback when push is unavailable.
type SnapshotSource interface {
	FetchTripSnapshot(ctx context.Context, token string) (Snapshot, error)
}

// Options tune the consumer's update policy. Zero values take defaults.
type Options struct {
	// MinInterval is the minimum time between accepted samples; faster
	// arrivals are dropped. Default 1s.
	MinInterval time.Duration
	// HistoryCap bounds the retained history; the oldest samples are
	// evicted past it. Default 500.
	HistoryCap int
	// HistoryBatch is how many accepted samples accumulate before the
	// externally visible history refreshes. Default 5.
	HistoryBatch int
	// OnUpdate, when set, is invoked after every externally visible change
	// (state, current location, or history refresh).
	OnUpdate func()
}

const (
	defaultMinInterval  = time.Second
	defaultHistoryCap   = 500
	defaultHistoryBatch = 5
)

// Consumer merges a live push feed with a pull snapshot into one "current
// location + bounded history" view. Push wins once subscribed; the snapshot
// is the cold-start baseline. Reconnection is an explicit caller action.
type Consumer struct {
	push    PushSource
	pull    SnapshotSource
	opts    Options
	metrics *metrics.Collector
	now     func() time.Time

	mu            sync.Mutex
	state         State
	token         string
	current       *TrackedLocation
	history       []TrackedLocation
	visible       []TrackedLocation
	pending       int
	lastAccepted  time.Time
	lastErr       error
	pickupStatus  string
	dropoffStatus string
	studentName   string
	unsubscribe   func()
	closed        bool
}

func NewConsumer(push PushSource, pull SnapshotSource, m *metrics.Collector, opts Options) *Consumer {
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = defaultHistoryCap
	}
	if opts.HistoryBatch <= 0 {
		opts.HistoryBatch = defaultHistoryBatch
	}
	return &Consumer{
		push:    push,
		pull:    pull,
		opts:    opts,
		metrics: m,
		state:   StateIdle,
		now:     time.Now,
	}
}

// Start fetches the snapshot baseline and subscribes to the push channel. A
// snapshot failure is fatal (there is nothing to display); a subscription
// failure is not — the consumer stays on the baseline in the disconnected
// state until the caller retries.
func (c *Consumer) Start(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.token = token
	c.state = StateConnecting
	c.mu.Unlock()
	c.notify()

	snap, err := c.pull.FetchTripSnapshot(ctx, token)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.lastErr = err
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("fetching trip snapshot: %w", err)
	}

	c.mu.Lock()
	c.current = snap.Current
	c.history = append([]TrackedLocation(nil), snap.History...)
	c.trimHistoryLocked()
	c.visible = append([]TrackedLocation(nil), c.history...)
	c.pickupStatus = snap.PickupStatus
	c.dropoffStatus = snap.DropoffStatus
	c.studentName = snap.StudentName
	c.state = StateConnected
	c.mu.Unlock()
	c.notify()

	return c.subscribe(ctx)
}

// Reconnect retries the push subscription after an observed failure. It is
// the only retry path; the consumer never loops on its own.
func (c *Consumer) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("reconnect only valid when disconnected, state is %s", c.state)
	}
	c.state = StateReconnecting
	c.mu.Unlock()
	c.notify()

	return c.subscribe(ctx)
}

func (c *Consumer) subscribe(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	unsub, err := c.push.Subscribe(ctx, token, Handlers{
		OnSample:     c.onSample,
		OnSubscribed: c.onSubscribed,
		OnError:      c.onChannelError,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.lastErr = err
		c.mu.Unlock()
		c.notify()
		logrus.WithError(err).Warn("Push channel unavailable, staying on snapshot baseline.")
		return nil
	}

	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()
	return nil
}

func (c *Consumer) onSubscribed(ack SubscribeAck) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateSubscribed
	// The ack's statuses are authoritative over the snapshot's.
	c.pickupStatus = ack.PickupStatus
	c.dropoffStatus = ack.DropoffStatus
	c.mu.Unlock()
	c.notify()
}

// onSample applies the throttle, de-duplication and history-bounding policy
// to one pushed sample.
func (c *Consumer) onSample(loc TrackedLocation) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	now := c.now()
	if !c.lastAccepted.IsZero() && now.Sub(c.lastAccepted) < c.opts.MinInterval {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.SamplesDropped.Inc()
		}
		return
	}
	if c.current != nil && c.current.Latitude == loc.Latitude && c.current.Longitude == loc.Longitude {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.SamplesDropped.Inc()
		}
		return
	}

	c.lastAccepted = now
	c.current = &loc
	c.history = append(c.history, loc)
	c.trimHistoryLocked()

	c.pending++
	if c.pending >= c.opts.HistoryBatch {
		c.visible = append([]TrackedLocation(nil), c.history...)
		c.pending = 0
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SamplesAccepted.Inc()
	}
	c.notify()
}

func (c *Consumer) onChannelError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.lastErr = err
	c.mu.Unlock()
	c.notify()
	logrus.WithError(err).Warn("Tracking channel error; last good location retained.")
}

// Close unsubscribes and permanently stops the consumer. No callback fires
// after Close returns.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Current returns the latest emitted location, which may come from the
// snapshot baseline before the stream subscribes.
func (c *Consumer) Current() *TrackedLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	loc := *c.current
	return &loc
}

// History returns the externally visible history, refreshed every
// HistoryBatch accepted samples.
func (c *Consumer) History() []TrackedLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TrackedLocation(nil), c.visible...)
}

func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Statuses returns the tracked student's pickup and dropoff status.
func (c *Consumer) Statuses() (pickup, dropoff string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pickupStatus, c.dropoffStatus
}

// LastError returns the most recent channel error, if any.
func (c *Consumer) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Consumer) trimHistoryLocked() {
	if over := len(c.history) - c.opts.HistoryCap; over > 0 {
		c.history = append([]TrackedLocation(nil), c.history[over:]...)
	}
}

func (c *Consumer) notify() {
	c.mu.Lock()
	closed := c.closed
	cb := c.opts.OnUpdate
	c.mu.Unlock()
	if cb != nil && !closed {
		cb()
	}
}
