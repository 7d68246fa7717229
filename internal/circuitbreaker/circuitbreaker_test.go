package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var (
	errDown    = &statusError{503}
	errLimited = &statusError{429}
	errBadReq  = &statusError{400}
)

// newTestBreaker returns a breaker on a manual clock.
func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := NewBreaker(cfg)
	b.now = func() time.Time { return now }
	return b, &now
}

func testConfig() Config {
	return Config{
		ErrorThreshold: 0.30,
		MinSamples:     10,
		WindowSeconds:  60,
		OpenTimeout:    30 * time.Second,
	}
}

func TestSlidingWindow_RecordAndErrorRate(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(60)
	now := time.Now()

	for range 7 {
		w.record(0, now)
	}
	for range 3 {
		w.record(1.0, now)
	}

	rate, samples := w.errorRate(now)
	if samples != 10 {
		t.Fatalf("samples = %d, want 10", samples)
	}
	if rate < 0.29 || rate > 0.31 {
		t.Fatalf("rate = %f, want ~0.30", rate)
	}
}

func TestSlidingWindow_Expiry(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(5)
	base := time.Now()
	w.record(1.0, base)

	rate, samples := w.errorRate(base.Add(6 * time.Second))
	if samples != 0 || rate != 0 {
		t.Fatalf("after expiry: samples=%d rate=%f, want 0/0", samples, rate)
	}
}

func TestSlidingWindow_InvalidSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, 100} {
		if w := newSlidingWindow(n); w.size != 60 {
			t.Errorf("newSlidingWindow(%d).size = %d, want 60", n, w.size)
		}
	}
}

func TestBreaker_ClosedAllows(t *testing.T) {
	t.Parallel()

	b := NewBreaker(DefaultConfig())
	if !b.Allow() {
		t.Fatal("closed breaker should allow")
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensOnThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(testConfig())
	for range 7 {
		b.Record(nil)
	}
	for range 3 {
		b.Record(errDown)
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Fatal("open breaker should reject")
	}
}

func TestBreaker_MinSamplesRequired(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(testConfig())
	for range 9 {
		b.Record(errDown)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed (below min samples)", b.State())
	}
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(testConfig())
	for range 20 {
		b.Record(errBadReq)
		b.Record(context.Canceled)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_WeightedErrors(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(testConfig())

	// 4 x 0.5 over 10 calls = 20%.
	for range 6 {
		b.Record(nil)
	}
	for range 4 {
		b.Record(errLimited)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed (20%% < 30%%)", b.State())
	}

	// A timeout weighs 1.5: (2.0 + 1.5) / 11 = 31.8%.
	b.Record(context.DeadlineExceeded)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		probe error
		want  State
	}{
		{"success closes", nil, StateClosed},
		{"failure reopens", errDown, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, now := newTestBreaker(testConfig())
			for range 10 {
				b.Record(errDown)
			}
			if b.Allow() {
				t.Fatal("should reject before open timeout")
			}

			*now = now.Add(30 * time.Second)
			if !b.Allow() {
				t.Fatal("should allow probe after open timeout")
			}
			if b.State() != StateHalfOpen {
				t.Fatalf("state = %v, want half_open", b.State())
			}
			if b.Allow() {
				t.Fatal("should reject while probe in flight")
			}

			b.Record(tt.probe)
			if b.State() != tt.want {
				t.Fatalf("state = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestBreaker_Do(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{ErrorThreshold: 0.5, MinSamples: 2, WindowSeconds: 60, OpenTimeout: time.Minute})
	var changes []State
	b.OnStateChange = func(s State) { changes = append(changes, s) }

	calls := 0
	fail := func() error { calls++; return errDown }
	for range 2 {
		if err := b.Do(fail); !errors.Is(err, errDown) {
			t.Fatalf("err = %v, want backend error", err)
		}
	}
	if err := b.Do(fail); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (rejected call must not run)", calls)
	}
	if len(changes) != 1 || changes[0] != StateOpen {
		t.Errorf("state changes = %v, want [open]", changes)
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	b := NewBreaker(Config{
		ErrorThreshold: 0.50,
		MinSamples:     100,
		WindowSeconds:  60,
		OpenTimeout:    time.Millisecond,
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 100 {
				_ = b.Do(func() error { return nil })
				b.Record(errLimited)
				_ = b.State()
			}
		})
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
