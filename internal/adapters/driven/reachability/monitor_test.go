package reachability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork is a controllable prober and clock.
type fakeNetwork struct {
	mu  sync.Mutex
	up  bool
	now time.Time
}

func (n *fakeNetwork) Probe(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.up {
		return errors.New("network is unreachable")
	}
	return nil
}

func (n *fakeNetwork) set(up bool) {
	n.mu.Lock()
	n.up = up
	n.mu.Unlock()
}

func (n *fakeNetwork) advance(d time.Duration) {
	n.mu.Lock()
	n.now = n.now.Add(d)
	n.mu.Unlock()
}

func (n *fakeNetwork) clock() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.now
}

func newTestMonitor(debounce time.Duration) (*Monitor, *fakeNetwork) {
	network := &fakeNetwork{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMonitor(Config{
		Prober:         network,
		DebounceWindow: debounce,
		Clock:          network.clock,
	})
	return m, network
}

func TestMonitor_StartsDisconnected(t *testing.T) {
	m, _ := newTestMonitor(2 * time.Second)
	assert.False(t, m.IsConnected())
	assert.Nil(t, m.Status().LastCheckedAt)
}

func TestMonitor_Debounce(t *testing.T) {
	m, network := newTestMonitor(2 * time.Second)
	ctx := context.Background()
	updates, cancel := m.Subscribe(4)
	defer cancel()

	network.set(true)
	assert.False(t, m.Check(ctx), "first success must not flip state")

	network.advance(time.Second)
	assert.False(t, m.Check(ctx))

	network.advance(time.Second)
	assert.True(t, m.Check(ctx), "state held for the debounce window")
	assert.True(t, m.IsConnected())
	assert.Equal(t, true, <-updates)

	// A blip shorter than the window is ignored
	network.set(false)
	network.advance(time.Second)
	m.Check(ctx)
	network.set(true)
	network.advance(time.Second)
	m.Check(ctx)
	network.set(false)
	network.advance(1500 * time.Millisecond)
	m.Check(ctx)
	assert.True(t, m.IsConnected(), "flapping must restart the window")

	select {
	case v := <-updates:
		t.Fatalf("unexpected transition %v", v)
	default:
	}

	network.advance(2 * time.Second)
	assert.False(t, m.Check(ctx))
	assert.Equal(t, false, <-updates)
}

func TestMonitor_NoDebounce(t *testing.T) {
	m, network := newTestMonitor(-1)
	network.set(true)
	assert.True(t, m.Check(context.Background()))
}

func TestMonitor_Status(t *testing.T) {
	m, network := newTestMonitor(-1)
	ctx := context.Background()

	m.Check(ctx)
	m.Check(ctx)
	status := m.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Equal(t, "network is unreachable", status.LastError)
	require.NotNil(t, status.LastCheckedAt)
	assert.Nil(t, status.LastChangedAt)

	network.set(true)
	m.Check(ctx)
	status = m.Status()
	assert.True(t, status.Connected)
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
	assert.NotNil(t, status.LastChangedAt)
}

func TestMonitor_ProbeTimeoutCountsAsDisconnected(t *testing.T) {
	m := NewMonitor(Config{
		Prober: ProberFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		DebounceWindow: -1,
		ProbeTimeout:   10 * time.Millisecond,
	})
	assert.False(t, m.Check(context.Background()))
	assert.Contains(t, m.Status().LastError, "deadline")
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m, network := newTestMonitor(-1)
	updates, cancel := m.Subscribe(1)
	cancel()
	cancel()

	_, open := <-updates
	assert.False(t, open)

	network.set(true)
	assert.NotPanics(t, func() { m.Check(context.Background()) })
}

func TestMonitor_StartStop(t *testing.T) {
	var probes sync.WaitGroup
	probes.Add(1)
	var once sync.Once

	m := NewMonitor(Config{
		Prober: ProberFunc(func(ctx context.Context) error {
			once.Do(probes.Done)
			return nil
		}),
		Interval:       10 * time.Millisecond,
		DebounceWindow: -1,
	})

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()), "second start is a no-op")
	probes.Wait()

	assert.Eventually(t, m.IsConnected, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestHTTPProber(t *testing.T) {
	status := http.StatusOK
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL + "/health")
	require.NoError(t, p.Probe(context.Background()))

	mu.Lock()
	status = http.StatusServiceUnavailable
	mu.Unlock()
	assert.Error(t, p.Probe(context.Background()))

	assert.Error(t, (&HTTPProber{}).Probe(context.Background()))
}

func TestTCPProber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	require.NoError(t, NewTCPProber(addr).Probe(context.Background()))

	ln.Close()
	assert.Error(t, NewTCPProber(addr).Probe(context.Background()))
}
