package reachability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Reachability       = (*Monitor)(nil)
	_ driven.ReachabilityStatus = (*Monitor)(nil)
)

const (
	defaultInterval       = 5 * time.Second
	defaultDebounceWindow = 2 * time.Second
	defaultProbeTimeout   = 3 * time.Second
)

// Monitor polls a Prober and reports debounced connectivity.
//
// The monitor starts disconnected. A new state is adopted only after every
// probe for DebounceWindow agrees with it, so a flapping link produces no
// transitions. Subscribers receive each adopted state exactly once.
type Monitor struct {
	prober   driven.Prober
	logger   *slog.Logger
	interval time.Duration
	debounce time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu             sync.RWMutex
	status         domain.ConnectivityStatus
	candidate      *bool
	candidateSince time.Time
	subscribers    map[chan bool]struct{}

	// Lifecycle
	lifecycleMu sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// Config holds configuration for the monitor.
type Config struct {
	Prober         driven.Prober
	Logger         *slog.Logger
	Interval       time.Duration    // How often to probe (default: 5s)
	DebounceWindow time.Duration    // How long a new state must hold (default: 2s, negative: none)
	ProbeTimeout   time.Duration    // Deadline for a single probe (default: 3s)
	Clock          func() time.Time // Defaults to time.Now
}

// NewMonitor creates a new reachability monitor.
func NewMonitor(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	debounce := cfg.DebounceWindow
	if debounce == 0 {
		debounce = defaultDebounceWindow
	}
	if debounce < 0 {
		debounce = 0
	}

	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		prober:      cfg.Prober,
		logger:      logger,
		interval:    interval,
		debounce:    debounce,
		timeout:     timeout,
		now:         now,
		subscribers: make(map[chan bool]struct{}),
	}
}

// IsConnected returns the debounced connectivity.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Connected
}

// Status returns probe diagnostics.
func (m *Monitor) Status() domain.ConnectivityStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe registers for connectivity transitions. Slow subscribers miss
// transitions rather than stall the monitor; IsConnected stays authoritative.
func (m *Monitor) Subscribe(buffer int) (<-chan bool, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan bool, buffer)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Start begins probing. It runs until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	m.logger.Info("reachability monitor starting",
		"interval", m.interval,
		"debounce_window", m.debounce,
	)

	go m.run(ctx)
	return nil
}

// Stop halts probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.running = false

	m.logger.Info("reachability monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one probe and folds the outcome into the debounced state.
// It reports the connectivity after the probe.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	return m.observe(err == nil, err)
}

func (m *Monitor) observe(ok bool, probeErr error) bool {
	now := m.now()

	m.mu.Lock()
	m.status.LastCheckedAt = &now
	if ok {
		m.status.ConsecutiveFailures = 0
		m.status.LastError = ""
	} else {
		m.status.ConsecutiveFailures++
		if probeErr != nil {
			m.status.LastError = probeErr.Error()
		}
	}

	if ok == m.status.Connected {
		m.candidate = nil
		m.mu.Unlock()
		return ok
	}

	if m.candidate == nil || *m.candidate != ok {
		m.candidate = &ok
		m.candidateSince = now
	}
	if now.Sub(m.candidateSince) < m.debounce {
		connected := m.status.Connected
		m.mu.Unlock()
		return connected
	}

	m.status.Connected = ok
	m.status.LastChangedAt = &now
	m.candidate = nil
	for ch := range m.subscribers {
		select {
		case ch <- ok:
		default:
		}
	}
	m.mu.Unlock()

	if ok {
		m.logger.Info("backend reachable")
	} else {
		m.logger.Warn("backend unreachable", "error", probeErr)
	}
	return ok
}
