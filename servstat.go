package hdi

import (
	"context"
	"sync"
	"time"
)

// ServiceLister is the subset of RemoteServiceManager used to watch services.
type ServiceLister interface {
	ListAllService(ctx context.Context) ([]ServiceInfo, error)
}

// StatusListener receives service start/stop notifications.
type StatusListener func(ServiceStatus)

// StatusWatcher polls the service manager and reports services that appear
// or disappear. It stands in for push-style status listeners.
type StatusWatcher struct {
	lister   ServiceLister
	devClass uint16
	logger   Logger
	poller   *Poller

	mu        sync.Mutex
	known     map[string]ServiceInfo
	listeners []registeredListener
	nextID    uint64
}

type registeredListener struct {
	id uint64
	fn StatusListener
}

// StatusWatcherConfig holds configuration for the status watcher.
type StatusWatcherConfig struct {
	Lister   ServiceLister
	Interval time.Duration
	// DevClass limits notifications to one device class; DevClassAll for every class.
	DevClass uint16
	Logger   Logger
	Clock    Clock

	// MaxFailures consecutive listing failures make the watcher unhealthy;
	// 0 means never.
	MaxFailures int
	// OnHealth is called when the watcher turns unhealthy (with the last
	// error) and when it recovers (with nil).
	OnHealth func(healthy bool, err error)
}

// NewStatusWatcher creates a watcher; call Start to begin polling.
func NewStatusWatcher(cfg StatusWatcherConfig) *StatusWatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	w := &StatusWatcher{
		lister:   cfg.Lister,
		devClass: cfg.DevClass,
		logger:   logger,
		known:    make(map[string]ServiceInfo),
	}
	opts := PollerOptions{
		Logger:      logger,
		Clock:       cfg.Clock,
		MaxFailures: cfg.MaxFailures,
	}
	if cfg.OnHealth != nil {
		opts.OnUnhealthy = func(_ int, err error) { cfg.OnHealth(false, err) }
		opts.OnRecovered = func() { cfg.OnHealth(true, nil) }
	}
	w.poller = NewPoller(cfg.Interval, w.Poll, opts)
	return w
}

// Register adds a listener and returns the function that removes it.
// Already known services are replayed to it as started.
func (w *StatusWatcher) Register(l StatusListener) (unregister func()) {
	if l == nil {
		return func() {}
	}
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, registeredListener{id: id, fn: l})
	replay := make([]ServiceInfo, 0, len(w.known))
	for _, info := range w.known {
		replay = append(replay, info)
	}
	w.mu.Unlock()

	for _, info := range replay {
		l(ServiceStatus{Name: info.Name, DevClass: info.DevClass, State: ServiceStart, Info: info})
	}
	return func() { w.unregister(id) }
}

func (w *StatusWatcher) unregister(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, rl := range w.listeners {
		if rl.id == id {
			w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of registered listeners.
func (w *StatusWatcher) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

func (w *StatusWatcher) Start(ctx context.Context) { w.poller.Start(ctx) }

func (w *StatusWatcher) Stop() { w.poller.Stop() }

// Status returns the polling counters; Healthy turns false after
// MaxFailures failed listings in a row.
func (w *StatusWatcher) Status() PollStatus { return w.poller.Status() }

// PollNow lists services once, outside the polling schedule, and counts the
// result in Status.
func (w *StatusWatcher) PollNow(ctx context.Context) { w.poller.PollNow(ctx) }

// Poll lists services once and notifies listeners about the differences
// with the previous poll.
func (w *StatusWatcher) Poll(ctx context.Context) error {
	services, err := w.lister.ListAllService(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]ServiceInfo, len(services))
	for _, info := range services {
		if w.devClass != DevClassAll && info.DevClass != w.devClass {
			continue
		}
		current[info.Name] = info
	}

	var events []ServiceStatus
	w.mu.Lock()
	for name, info := range current {
		if _, ok := w.known[name]; !ok {
			events = append(events, ServiceStatus{Name: name, DevClass: info.DevClass, State: ServiceStart, Info: info})
		}
	}
	for name, info := range w.known {
		if _, ok := current[name]; !ok {
			events = append(events, ServiceStatus{Name: name, DevClass: info.DevClass, State: ServiceStop, Info: info})
		}
	}
	w.known = current
	listeners := append([]registeredListener(nil), w.listeners...)
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Debug("service status changed", "service", ev.Name, "state", string(ev.State))
		for _, l := range listeners {
			l.fn(ev)
		}
	}
	return nil
}
