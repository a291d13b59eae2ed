package client

import (
	"context"
	"net/http"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// NetStatus mirrors the platform connectivity snapshot: a device can be
// link-connected without internet egress, so both flags are required
// for the device to count as online.
type NetStatus struct {
	Connected         bool
	InternetReachable bool
	Type              string
}

// Online reports whether the device has usable connectivity.
func (s NetStatus) Online() bool { return s.Connected && s.InternetReachable }

// Prober is the platform connectivity primitive: one-shot fetch plus a
// change-event subscription.
type Prober interface {
	Probe(ctx context.Context) (NetStatus, error)
	Subscribe(fn func(NetStatus)) (unsubscribe func())
}

// NetworkMonitor is the single source of truth for "is the device
// online". Offline-to-online transitions trigger the registered
// callbacks (queue drain, channel reconnect); the reverse transition
// only updates shared state — the realtime channel has its own failure
// detection.
type NetworkMonitor struct {
	prober Prober
	log    *slog.Logger

	mu           gosync.RWMutex
	offline      bool
	onTransition []func(online bool)

	queueLen     func() int
	lastQueueLen int

	unsubscribe func()
	stop        chan struct{}
	stopOnce    gosync.Once
}

func NewNetworkMonitor(prober Prober, log *slog.Logger) *NetworkMonitor {
	return &NetworkMonitor{
		prober: prober,
		log:    log,
		stop:   make(chan struct{}),
	}
}

// OnTransition registers a callback invoked on every connectivity
// transition. Register before Start.
func (m *NetworkMonitor) OnTransition(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = append(m.onTransition, fn)
}

// SetQueueLength provides the pending-action counter refreshed every 5s
// for status display.
func (m *NetworkMonitor) SetQueueLength(fn func() int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueLen = fn
}

// Start probes once for the initial state and subscribes to change
// events.
func (m *NetworkMonitor) Start(ctx context.Context) {
	status, err := m.prober.Probe(ctx)
	if err != nil {
		m.log.Warn("initial connectivity probe failed, assuming offline", "error", err)
		status = NetStatus{}
	}
	m.mu.Lock()
	m.offline = !status.Online()
	m.mu.Unlock()
	m.log.Info("network monitor started", "online", status.Online(), "type", status.Type)

	m.unsubscribe = m.prober.Subscribe(m.apply)
	go m.refreshLoop()
}

// apply folds a connectivity snapshot into shared state and fires
// transition callbacks on change.
func (m *NetworkMonitor) apply(status NetStatus) {
	online := status.Online()

	m.mu.Lock()
	changed := m.offline == online
	m.offline = !online
	callbacks := make([]func(bool), len(m.onTransition))
	copy(callbacks, m.onTransition)
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Info("connectivity changed", "online", online, "type", status.Type)
	for _, fn := range callbacks {
		fn(online)
	}
}

func (m *NetworkMonitor) refreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.queueLen != nil {
				m.lastQueueLen = m.queueLen()
			}
			m.mu.Unlock()
		}
	}
}

// Offline reports the current derived connectivity state.
func (m *NetworkMonitor) Offline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offline
}

// Online is the complement of Offline.
func (m *NetworkMonitor) Online() bool { return !m.Offline() }

// QueueLength returns the last refreshed pending-action count.
func (m *NetworkMonitor) QueueLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQueueLen
}

// Close stops the refresh loop and the prober subscription.
func (m *NetworkMonitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}

// HTTPProber derives connectivity from the reachability of the backend
// health endpoint, polling for change events.
type HTTPProber struct {
	url      string
	client   *http.Client
	interval time.Duration

	mu   gosync.Mutex
	last NetStatus
}

func NewHTTPProber(url string, interval time.Duration) *HTTPProber {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HTTPProber{
		url:      url,
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: interval,
	}
}

func (p *HTTPProber) Probe(ctx context.Context) (NetStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return NetStatus{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return NetStatus{Type: "none"}, nil
	}
	resp.Body.Close()
	return NetStatus{Connected: true, InternetReachable: true, Type: "wifi"}, nil
}

func (p *HTTPProber) Subscribe(fn func(NetStatus)) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				status, err := p.Probe(context.Background())
				if err != nil {
					continue
				}
				p.mu.Lock()
				changed := status != p.last
				p.last = status
				p.mu.Unlock()
				if changed {
					fn(status)
				}
			}
		}
	}()
	return func() { close(stop) }
}
