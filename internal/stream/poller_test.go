package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/oddsline/scorefeed/internal/feed"
)

type scriptedSource struct {
	responses [][]feed.Event
	errs      []error
	calls     int
}

func (s *scriptedSource) LiveEvents(ctx context.Context, sport string) ([]feed.Event, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return nil, nil
}

type recordingAlerter struct {
	failures  []int
	recovered []time.Duration
}

func (r *recordingAlerter) PollFailed(ctx context.Context, streak int, err error) {
	r.failures = append(r.failures, streak)
}

func (r *recordingAlerter) Recovered(ctx context.Context, downFor time.Duration) {
	r.recovered = append(r.recovered, downFor)
}

type recordingBroadcaster struct {
	dispatched [][]feed.Event
}

func (r *recordingBroadcaster) Dispatch(changed []feed.Event) {
	r.dispatched = append(r.dispatched, changed)
}

func newTestPoller(source Source, cache *Cache, alerter Alerter, clock clockwork.Clock) (*Poller, *recordingBroadcaster) {
	logger, _ := zap.NewDevelopment()
	broadcaster := &recordingBroadcaster{}
	return NewPoller(source, cache, broadcaster, alerter, 5*time.Second, evictionWindow, clock, logger), broadcaster
}

func TestTick_DispatchesChangedSet(t *testing.T) {
	source := &scriptedSource{
		responses: [][]feed.Event{
			{{ID: "e1", SportID: 1, Score: "0-0", Status: "live"}},
		},
	}
	cache := NewCache(clockwork.NewFakeClock())
	poller, broadcaster := newTestPoller(source, cache, nil, clockwork.NewFakeClock())

	poller.Tick(context.Background())

	if cache.Len() != 1 {
		t.Errorf("expected one cached snapshot, got %d", cache.Len())
	}
	if len(broadcaster.dispatched) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(broadcaster.dispatched))
	}
	if set := broadcaster.dispatched[0]; len(set) != 1 || set[0].ID != "e1" {
		t.Errorf("unexpected changed set: %v", set)
	}
}

func TestTick_UnchangedSetSkipsDispatch(t *testing.T) {
	events := []feed.Event{{ID: "e1", SportID: 1, Score: "0-0", Status: "live"}}
	source := &scriptedSource{responses: [][]feed.Event{events, events}}
	cache := NewCache(clockwork.NewFakeClock())
	poller, broadcaster := newTestPoller(source, cache, nil, clockwork.NewFakeClock())

	poller.Tick(context.Background())
	poller.Tick(context.Background())

	if len(broadcaster.dispatched) != 1 {
		t.Errorf("expected no dispatch for an unchanged tick, got %d", len(broadcaster.dispatched))
	}
}

func TestTick_FeedFailureSkipsTick(t *testing.T) {
	events := []feed.Event{{ID: "e1", SportID: 1, Score: "0-0", Status: "live"}}
	source := &scriptedSource{
		responses: [][]feed.Event{events, nil, events},
		errs:      []error{nil, errors.New("upstream down"), nil},
	}
	cache := NewCache(clockwork.NewFakeClock())
	alerter := &recordingAlerter{}
	poller, _ := newTestPoller(source, cache, alerter, clockwork.NewFakeClock())

	poller.Tick(context.Background())
	if cache.Len() != 1 {
		t.Fatalf("expected one snapshot after first tick, got %d", cache.Len())
	}

	// The failed tick mutates nothing and does not stop future ticks.
	poller.Tick(context.Background())
	if cache.Len() != 1 {
		t.Errorf("failed tick must not mutate the cache, got %d snapshots", cache.Len())
	}
	if len(alerter.failures) != 1 || alerter.failures[0] != 1 {
		t.Errorf("expected one failure report with streak 1, got %v", alerter.failures)
	}

	// The next successful tick runs normally and reports recovery. The event
	// is unchanged, so it is not in the changed set.
	poller.Tick(context.Background())
	if len(alerter.recovered) != 1 {
		t.Errorf("expected one recovery report, got %d", len(alerter.recovered))
	}
	if source.calls != 3 {
		t.Errorf("expected 3 source calls, got %d", source.calls)
	}
}

func TestTick_ConsecutiveFailureStreak(t *testing.T) {
	boom := errors.New("boom")
	source := &scriptedSource{
		responses: make([][]feed.Event, 3),
		errs:      []error{boom, boom, boom},
	}
	alerter := &recordingAlerter{}
	poller, _ := newTestPoller(source, NewCache(clockwork.NewFakeClock()), alerter, clockwork.NewFakeClock())

	for i := 0; i < 3; i++ {
		poller.Tick(context.Background())
	}

	want := []int{1, 2, 3}
	if len(alerter.failures) != 3 {
		t.Fatalf("expected 3 failure reports, got %v", alerter.failures)
	}
	for i, streak := range want {
		if alerter.failures[i] != streak {
			t.Errorf("expected streak %d at tick %d, got %d", streak, i, alerter.failures[i])
		}
	}
}

func TestTick_RecoveryDurationUsesClock(t *testing.T) {
	boom := errors.New("boom")
	source := &scriptedSource{
		responses: make([][]feed.Event, 3),
		errs:      []error{boom, boom, nil},
	}
	alerter := &recordingAlerter{}
	clock := clockwork.NewFakeClock()
	poller, _ := newTestPoller(source, NewCache(clock), alerter, clock)

	poller.Tick(context.Background())
	clock.Advance(5 * time.Second)
	poller.Tick(context.Background())
	clock.Advance(5 * time.Second)
	poller.Tick(context.Background())

	if len(alerter.recovered) != 1 {
		t.Fatalf("expected one recovery report, got %d", len(alerter.recovered))
	}
	// The outage clock starts at the first failure, not the threshold.
	if alerter.recovered[0] != 10*time.Second {
		t.Errorf("expected a 10s outage, got %s", alerter.recovered[0])
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	source := &scriptedSource{}
	poller, _ := newTestPoller(source, NewCache(clockwork.NewFakeClock()), nil, clockwork.NewRealClock())
	poller.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancellation")
	}

	if source.calls == 0 {
		t.Error("expected at least one poll tick before cancellation")
	}
}
