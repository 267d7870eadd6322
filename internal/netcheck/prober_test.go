package netcheck

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

type scriptedDialer struct {
	mu      sync.Mutex
	results []bool
	calls   int
}

func (d *scriptedDialer) dial(context.Context, string, string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ok := false
	if d.calls < len(d.results) {
		ok = d.results[d.calls]
	}
	d.calls++
	if !ok {
		return nil, errors.New("unreachable")
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

func newTestProber(results ...bool) *Prober {
	d := &scriptedDialer{results: results}
	return New("", logger.New(logger.LevelOff, nil), WithDialer(d.dial), WithFailures(3))
}

func TestProberTransitions(t *testing.T) {
	p := newTestProber(false, false, true, false, false, false, false)
	ctx := t.Context()

	assert.Equal(t, domain.ConnectivityConnecting, p.Status())

	want := []domain.ConnectivityStatus{
		domain.ConnectivityConnecting,
		domain.ConnectivityConnecting,
		domain.ConnectivityConnected,
		// Losing the link drops back to connecting before failing.
		domain.ConnectivityConnecting,
		domain.ConnectivityConnecting,
		domain.ConnectivityFailed,
		domain.ConnectivityFailed,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Probe(ctx), "probe %d", i)
	}
}

func TestProberFailsAfterThreshold(t *testing.T) {
	p := newTestProber()
	for range 2 {
		p.Probe(t.Context())
	}
	assert.Equal(t, domain.ConnectivityConnecting, p.Status())
	p.Probe(t.Context())
	assert.Equal(t, domain.ConnectivityFailed, p.Status())
}

func TestProberLoop(t *testing.T) {
	d := &scriptedDialer{results: []bool{true}}
	p := New("example:1", logger.New(logger.LevelOff, nil), WithDialer(d.dial), WithInterval(time.Millisecond))

	p.Start(t.Context())
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.calls >= 3
	}, time.Second, time.Millisecond)
	p.Stop()

	d.mu.Lock()
	calls := d.calls
	d.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, calls, d.calls, "no probes after Stop")
}
