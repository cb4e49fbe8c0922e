package netstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubProber struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *stubProber) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *stubProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestObserverStartsOffline(t *testing.T) {
	observer := NewObserver(ObserverConfig{})
	if !observer.IsOffline() {
		t.Fatalf("expected observer to start offline")
	}
}

func TestCheckFiresCallbacksOnlyOnTransition(t *testing.T) {
	prober := &stubProber{}
	observer := NewObserver(ObserverConfig{Prober: prober, Interval: time.Second})

	var order []int
	observer.OnBecomingOnline(func() { order = append(order, 1) })
	observer.OnBecomingOnline(func() { order = append(order, 2) })

	ctx := context.Background()
	observer.Check(ctx)
	observer.Check(ctx)
	if observer.IsOffline() {
		t.Fatalf("expected online after successful probe")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected callbacks once in registration order, got %v", order)
	}

	prober.setErr(errors.New("unreachable"))
	observer.Check(ctx)
	if !observer.IsOffline() {
		t.Fatalf("expected offline after failed probe")
	}

	prober.setErr(nil)
	observer.Check(ctx)
	if len(order) != 4 {
		t.Fatalf("expected callbacks to fire again after reconnecting, got %v", order)
	}
}

func TestSetOfflineOverridesProbes(t *testing.T) {
	prober := &stubProber{}
	observer := NewObserver(ObserverConfig{Prober: prober})

	observer.SetOffline(true)
	observer.Check(context.Background())
	if !observer.IsOffline() {
		t.Fatalf("expected forced offline to hold")
	}
	if prober.calls != 0 {
		t.Fatalf("expected no probes while forced offline")
	}

	fired := 0
	observer.OnBecomingOnline(func() { fired++ })
	observer.SetOffline(false)
	if observer.IsOffline() || fired != 1 {
		t.Fatalf("expected forced online transition to notify once, fired=%d", fired)
	}
}

func TestRunProbesUntilCancelled(t *testing.T) {
	prober := &stubProber{}
	observer := NewObserver(ObserverConfig{Prober: prober, Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		observer.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		prober.mu.Lock()
		calls := prober.calls
		prober.mu.Unlock()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated probes, got %d", calls)
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}
