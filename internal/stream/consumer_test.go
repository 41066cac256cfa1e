package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePush struct {
	handlers   Handlers
	err        error
	subscribed int
	unsubbed   int
}

func (f *fakePush) Subscribe(ctx context.Context, token string, h Handlers) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subscribed++
	f.handlers = h
	return func() { f.unsubbed++ }, nil
}

type fakePull struct {
	snap Snapshot
	err  error
}

func (f *fakePull) FetchTripSnapshot(ctx context.Context, token string) (Snapshot, error) {
	if f.err != nil {
		return Snapshot{}, f.err
	}
	return f.snap, nil
}

func baselineSnapshot() Snapshot {
	return Snapshot{
		TripID:       "TRIP-1",
		StudentName:  "Amina Yusuf",
		Current:      &TrackedLocation{TripID: "TRIP-1", Latitude: -1.30, Longitude: 36.80, Timestamp: time.Now()},
		History:      []TrackedLocation{{TripID: "TRIP-1", Latitude: -1.31, Longitude: 36.79}},
		PickupStatus: "pending",
	}
}

// manualClock lets tests control throttle timing.
type manualClock struct{ t time.Time }

func (m *manualClock) now() time.Time          { return m.t }
func (m *manualClock) advance(d time.Duration) { m.t = m.t.Add(d) }

func newStartedConsumer(t *testing.T, push *fakePush, opts Options) (*Consumer, *manualClock) {
	t.Helper()
	c := NewConsumer(push, &fakePull{snap: baselineSnapshot()}, nil, opts)
	clock := &manualClock{t: time.Unix(1700000000, 0)}
	c.now = clock.now
	if err := c.Start(context.Background(), "token-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, clock
}

func TestStartUsesSnapshotBaseline(t *testing.T) {
	push := &fakePush{}
	c, _ := newStartedConsumer(t, push, Options{})
	defer c.Close()

	cur := c.Current()
	if cur == nil || cur.Latitude != -1.30 {
		t.Fatalf("baseline current = %+v, want snapshot value", cur)
	}
	if got := len(c.History()); got != 1 {
		t.Errorf("baseline history length = %d, want 1", got)
	}
	if pickup, _ := c.Statuses(); pickup != "pending" {
		t.Errorf("pickup status = %q, want pending", pickup)
	}
	if push.subscribed != 1 {
		t.Errorf("subscribed %d times, want 1", push.subscribed)
	}
}

func TestSubscribedAckOverwritesStatus(t *testing.T) {
	push := &fakePush{}
	c, _ := newStartedConsumer(t, push, Options{})
	defer c.Close()

	push.handlers.OnSubscribed(SubscribeAck{PickupStatus: "picked-up"})

	if c.State() != StateSubscribed {
		t.Errorf("state = %v, want subscribed", c.State())
	}
	if pickup, _ := c.Statuses(); pickup != "picked-up" {
		t.Errorf("stale status survived the ack: %q", pickup)
	}
}

func TestDeduplicateIdenticalCoordinates(t *testing.T) {
	push := &fakePush{}
	updates := 0
	c, clock := newStartedConsumer(t, push, Options{OnUpdate: func() { updates++ }})
	defer c.Close()

	clock.advance(2 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: -1.28, Longitude: 36.81})
	after := updates

	clock.advance(2 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: -1.28, Longitude: 36.81})

	if updates != after {
		t.Error("identical (lat, lon) sample emitted a second update")
	}
	if cur := c.Current(); cur.Latitude != -1.28 {
		t.Errorf("current = %+v, want the first accepted sample", cur)
	}
}

func TestThrottleDropsFastSamples(t *testing.T) {
	push := &fakePush{}
	c, clock := newStartedConsumer(t, push, Options{MinInterval: time.Second})
	defer c.Close()

	clock.advance(2 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: 1, Longitude: 1})
	// 200ms later: under the interval, dropped.
	clock.advance(200 * time.Millisecond)
	push.handlers.OnSample(TrackedLocation{Latitude: 2, Longitude: 2})

	if cur := c.Current(); cur.Latitude != 1 {
		t.Errorf("throttled sample was emitted: current = %+v", cur)
	}

	clock.advance(time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: 3, Longitude: 3})
	if cur := c.Current(); cur.Latitude != 3 {
		t.Errorf("sample after interval not emitted: current = %+v", cur)
	}
}

func TestHistoryBounded(t *testing.T) {
	push := &fakePush{}
	c, clock := newStartedConsumer(t, push, Options{HistoryCap: 5, HistoryBatch: 1})
	defer c.Close()

	for i := 0; i < 20; i++ {
		clock.advance(2 * time.Second)
		push.handlers.OnSample(TrackedLocation{Latitude: float64(i), Longitude: float64(i)})
	}

	hist := c.History()
	if len(hist) != 5 {
		t.Fatalf("history length = %d, want cap 5", len(hist))
	}
	if hist[len(hist)-1].Latitude != 19 {
		t.Errorf("newest sample missing from bounded history: %+v", hist[len(hist)-1])
	}
	if hist[0].Latitude != 15 {
		t.Errorf("oldest retained = %v, want 15 (oldest dropped first)", hist[0].Latitude)
	}
}

func TestHistoryBatchCadence(t *testing.T) {
	push := &fakePush{}
	c, clock := newStartedConsumer(t, push, Options{HistoryBatch: 3})
	defer c.Close()

	baseline := len(c.History())
	for i := 0; i < 2; i++ {
		clock.advance(2 * time.Second)
		push.handlers.OnSample(TrackedLocation{Latitude: float64(i + 10), Longitude: 1})
	}
	if got := len(c.History()); got != baseline {
		t.Errorf("visible history refreshed before the batch filled: %d != %d", got, baseline)
	}

	clock.advance(2 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: 30, Longitude: 1})
	if got := len(c.History()); got != baseline+3 {
		t.Errorf("visible history after batch = %d, want %d", got, baseline+3)
	}
}

func TestChannelErrorKeepsLastLocation(t *testing.T) {
	push := &fakePush{}
	c, clock := newStartedConsumer(t, push, Options{})
	defer c.Close()

	clock.advance(2 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: 5, Longitude: 5})
	push.handlers.OnError(errors.New("connection reset"))

	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
	if cur := c.Current(); cur == nil || cur.Latitude != 5 {
		t.Errorf("last good location lost on channel error: %+v", cur)
	}
	if c.LastError() == nil {
		t.Error("channel error not surfaced")
	}
}

func TestReconnectOnlyWhenDisconnected(t *testing.T) {
	push := &fakePush{}
	c, _ := newStartedConsumer(t, push, Options{})
	defer c.Close()

	if err := c.Reconnect(context.Background()); err == nil {
		t.Error("reconnect while connected should be rejected")
	}

	push.handlers.OnError(errors.New("gone"))
	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if push.subscribed != 2 {
		t.Errorf("subscribed %d times after reconnect, want 2", push.subscribed)
	}
}

func TestSubscribeFailureFallsBackToSnapshot(t *testing.T) {
	push := &fakePush{err: errors.New("push service down")}
	c := NewConsumer(push, &fakePull{snap: baselineSnapshot()}, nil, Options{})
	defer c.Close()

	if err := c.Start(context.Background(), "token-1"); err != nil {
		t.Fatalf("Start must not fail on push unavailability: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
	if cur := c.Current(); cur == nil {
		t.Error("snapshot baseline missing after push failure")
	}
}

func TestSnapshotFailureIsFatal(t *testing.T) {
	c := NewConsumer(&fakePush{}, &fakePull{err: errors.New("404")}, nil, Options{})
	defer c.Close()

	if err := c.Start(context.Background(), "token-1"); err == nil {
		t.Error("Start should fail when the snapshot fetch fails")
	}
}

func TestCloseStopsCallbacks(t *testing.T) {
	push := &fakePush{}
	updates := 0
	c, clock := newStartedConsumer(t, push, Options{OnUpdate: func() { updates++ }})

	c.Close()
	if push.unsubbed != 1 {
		t.Errorf("unsubscribed %d times on Close, want 1", push.unsubbed)
	}

	before := updates
	clock.advance(5 * time.Second)
	push.handlers.OnSample(TrackedLocation{Latitude: 9, Longitude: 9})
	push.handlers.OnError(errors.New("late error"))
	push.handlers.OnSubscribed(SubscribeAck{})

	if updates != before {
		t.Error("callback fired after Close")
	}
	if c.State() != StateClosed {
		t.Errorf("state = %v, want closed", c.State())
	}
	if err := c.Start(context.Background(), "again"); !errors.Is(err, ErrConsumerClosed) {
		t.Errorf("Start after Close: err = %v, want ErrConsumerClosed", err)
	}
}
