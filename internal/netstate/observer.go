package netstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultProbeInterval = 15 * time.Second

// Prober checks whether the persistence service is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// ObserverConfig configures an Observer.
type ObserverConfig struct {
	Prober   Prober
	Interval time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Observer tracks connectivity by probing on an interval. It starts offline and
// invokes the registered callbacks on every offline to online transition.
type Observer struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	offline   bool
	forced    bool
	callbacks []func()
}

// NewObserver constructs an offline Observer.
func NewObserver(cfg ObserverConfig) *Observer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		prober:   cfg.Prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		offline:  true,
	}
}

// IsOffline reports the current connectivity state.
func (o *Observer) IsOffline() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.offline
}

// OnBecomingOnline registers a callback for offline to online transitions.
func (o *Observer) OnBecomingOnline(callback func()) {
	if callback == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, callback)
}

// SetOffline forces the state and stops probes from overriding it while forced offline.
func (o *Observer) SetOffline(offline bool) {
	o.mu.Lock()
	o.forced = offline
	o.mu.Unlock()
	o.transition(offline)
}

// Check probes once and records the outcome.
func (o *Observer) Check(ctx context.Context) {
	if o.prober == nil {
		return
	}
	o.mu.Lock()
	forced := o.forced
	o.mu.Unlock()
	if forced {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	err := o.prober.Ping(probeCtx)
	if err != nil {
		o.logger.Debug("connectivity probe failed", zap.Error(err))
	}
	o.transition(err != nil)
}

// Run probes immediately and then on every interval until ctx is done.
func (o *Observer) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Check(ctx)
		}
	}
}

func (o *Observer) transition(offline bool) {
	o.mu.Lock()
	wasOffline := o.offline
	o.offline = offline
	var callbacks []func()
	if wasOffline && !offline {
		callbacks = append(callbacks, o.callbacks...)
	}
	o.mu.Unlock()

	if wasOffline != offline {
		o.logger.Info("connectivity changed", zap.Bool("offline", offline))
	}
	for _, callback := range callbacks {
		callback()
	}
}
