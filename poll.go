package hdi

import (
	"context"
	"sync"
	"time"
)

// PollFunc does one round of work. A non-nil error counts as a failed poll.
type PollFunc func(ctx context.Context) error

// PollStatus is a snapshot of a poller's counters.
type PollStatus struct {
	IsRunning           bool      `json:"is_running"`
	Healthy             bool      `json:"healthy"`
	LastPollTime        time.Time `json:"last_poll_time,omitempty"`
	LastSuccessTime     time.Time `json:"last_success_time,omitempty"`
	LastErrorTime       time.Time `json:"last_error_time,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalPolls          int64     `json:"total_polls"`
	TotalFailures       int64     `json:"total_failures"`
}

// PollerOptions contains configuration for the poller
type PollerOptions struct {
	Logger Logger
	// Clock stamps poll times (default: system clock)
	Clock Clock

	// MaxFailures consecutive failures make the poller unhealthy; 0 means never.
	MaxFailures int
	// OnUnhealthy runs once when the failure streak reaches MaxFailures.
	OnUnhealthy func(failures int, err error)
	// OnRecovered runs on the first success after OnUnhealthy.
	OnRecovered func()
}

// Poller calls a PollFunc on an interval and tracks how it is doing.
type Poller struct {
	fn   PollFunc
	opts PollerOptions

	mu       sync.Mutex
	interval time.Duration
	status   PollStatus
	stop     chan struct{} // nil while stopped

	wg sync.WaitGroup
}

// NewPoller creates a stopped poller. A non-positive interval means 5s.
func NewPoller(interval time.Duration, fn PollFunc, opts PollerOptions) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = NewSystemClock()
	}
	return &Poller{fn: fn, opts: opts, interval: interval}
}

// Start polls once immediately and then on every interval until Stop is
// called or ctx is done. Starting a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.loop(ctx, p.stop)
}

// Stop ends the loop and waits for an in-flight poll to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	p.wg.Wait()
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Healthy reports whether the current failure streak is below MaxFailures.
func (p *Poller) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthyLocked()
}

func (p *Poller) healthyLocked() bool {
	return p.opts.MaxFailures <= 0 || p.status.ConsecutiveFailures < p.opts.MaxFailures
}

// Status returns a snapshot of the counters.
func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.IsRunning = p.stop != nil
	st.Healthy = p.healthyLocked()
	return st
}

// PollNow runs one poll synchronously, bounded by the current interval.
func (p *Poller) PollNow(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.Interval())
	defer cancel()
	p.poll(ctx)
}

// SetInterval changes the interval; a running loop picks it up after its
// next poll.
func (p *Poller) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
}

func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	p.poll(ctx)
	interval := p.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
			if next := p.Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	started := p.opts.Clock.Now()
	err := p.fn(ctx)
	finished := p.opts.Clock.Now()

	p.mu.Lock()
	wasHealthy := p.healthyLocked()
	p.status.LastPollTime = started
	p.status.TotalPolls++
	if err != nil {
		p.status.LastErrorTime = finished
		p.status.LastError = err.Error()
		p.status.ConsecutiveFailures++
		p.status.TotalFailures++
	} else {
		p.status.LastSuccessTime = finished
		p.status.LastError = ""
		p.status.ConsecutiveFailures = 0
	}
	failures := p.status.ConsecutiveFailures
	healthy := p.healthyLocked()
	p.mu.Unlock()

	switch {
	case err != nil && wasHealthy && !healthy:
		p.opts.Logger.Warn("poller unhealthy", "consecutive_failures", failures, "error", err)
		if p.opts.OnUnhealthy != nil {
			p.opts.OnUnhealthy(failures, err)
		}
	case err != nil:
		p.opts.Logger.Debug("poll failed", "consecutive_failures", failures, "error", err)
	case !wasHealthy:
		p.opts.Logger.Info("poller recovered")
		if p.opts.OnRecovered != nil {
			p.opts.OnRecovered()
		}
	}
}
