package throttle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTryAcquireFirstAlwaysSucceeds(t *testing.T) {
	g := NewGate(map[Category]time.Duration{Volume: time.Second})
	if !g.TryAcquire(Volume, t0) {
		t.Fatal("first acquisition should succeed")
	}
}

func TestTryAcquireWithinWindowDenied(t *testing.T) {
	g := NewGate(map[Category]time.Duration{Doorbell: 2 * time.Second})

	if !g.TryAcquire(Doorbell, t0) {
		t.Fatal("first acquisition should succeed")
	}
	if g.TryAcquire(Doorbell, t0.Add(100*time.Millisecond)) {
		t.Error("acquisition 100ms later should be denied")
	}
	if g.TryAcquire(Doorbell, t0.Add(1999*time.Millisecond)) {
		t.Error("acquisition at 1999ms should be denied")
	}
	if !g.TryAcquire(Doorbell, t0.Add(2*time.Second)) {
		t.Error("acquisition at exactly the interval should succeed")
	}
}

func TestDenialDoesNotExtendWindow(t *testing.T) {
	g := NewGate(map[Category]time.Duration{Toggle: time.Second})

	g.TryAcquire(Toggle, t0)
	// Denied attempts must not move lastFiredAt.
	for i := 1; i < 10; i++ {
		g.TryAcquire(Toggle, t0.Add(time.Duration(i)*100*time.Millisecond))
	}
	if !g.TryAcquire(Toggle, t0.Add(time.Second)) {
		t.Error("window should be measured from the last successful acquisition")
	}
}

func TestCategoriesIndependent(t *testing.T) {
	g := NewGate(map[Category]time.Duration{
		Volume: time.Second,
		Toggle: time.Second,
	})

	if !g.TryAcquire(Volume, t0) {
		t.Fatal("volume should succeed")
	}
	if !g.TryAcquire(Toggle, t0) {
		t.Error("toggle should not be blocked by volume")
	}
}

func TestUnknownCategoryUsesDefault(t *testing.T) {
	g := NewGate(map[Category]time.Duration{Default: 500 * time.Millisecond})

	if got := g.Interval("other"); got != 500*time.Millisecond {
		t.Errorf("Interval(other): got %v, want 500ms", got)
	}
	g.TryAcquire("other", t0)
	if g.TryAcquire("other", t0.Add(499*time.Millisecond)) {
		t.Error("unknown category should be throttled by the default interval")
	}
}

func TestZeroIntervalAlwaysPermits(t *testing.T) {
	g := NewGate(nil)
	for i := 0; i < 5; i++ {
		if !g.TryAcquire(Volume, t0) {
			t.Fatalf("attempt %d: zero interval should always permit", i)
		}
	}
}

func TestAtMostOneOfTwoCloseAttempts(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		gap      time.Duration
		wantBoth bool
	}{
		{"well inside", time.Second, 10 * time.Millisecond, false},
		{"just inside", time.Second, 999 * time.Millisecond, false},
		{"at boundary", time.Second, time.Second, true},
		{"outside", time.Second, 3 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(map[Category]time.Duration{Volume: tt.interval})
			a := g.TryAcquire(Volume, t0)
			b := g.TryAcquire(Volume, t0.Add(tt.gap))
			if (a && b) != tt.wantBoth {
				t.Errorf("both succeeded=%v, want %v", a && b, tt.wantBoth)
			}
			if !a {
				t.Error("first attempt should succeed")
			}
		})
	}
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	g := NewGate(map[Category]time.Duration{Doorbell: time.Hour})

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire(Doorbell, t0) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("expected exactly 1 winner, got %d", got)
	}
}
