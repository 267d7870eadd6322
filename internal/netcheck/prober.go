// Package netcheck reports network connectivity by probing a TCP endpoint.
package netcheck

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

const (
	DefaultTarget   = "1.1.1.1:53"
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = time.Second
	// DefaultFailures is how many consecutive failed probes before a device
	// that never connected reports Failed.
	DefaultFailures = 5
)

// Option configures a Prober.
type Option func(*Prober)

func WithInterval(d time.Duration) Option { return func(p *Prober) { p.interval = d } }
func WithTimeout(d time.Duration) Option  { return func(p *Prober) { p.timeout = d } }
func WithFailures(n int) Option           { return func(p *Prober) { p.failures = n } }

// WithDialer replaces the TCP dial, for tests.
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(p *Prober) { p.dial = dial }
}

// Prober implements domain.ConnectivityProvider.
type Prober struct {
	target   string
	interval time.Duration
	timeout  time.Duration
	failures int
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	log      *logger.Logger

	mu     sync.Mutex
	status domain.ConnectivityStatus
	misses int
	cancel context.CancelFunc
	done   chan struct{}
}

var _ domain.ConnectivityProvider = (*Prober)(nil)

// New creates a Prober for target (host:port). It reports Connecting until
// the first probe completes.
func New(target string, log *logger.Logger, opts ...Option) *Prober {
	if target == "" {
		target = DefaultTarget
	}
	var d net.Dialer
	p := &Prober{
		target:   target,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		failures: DefaultFailures,
		dial:     d.DialContext,
		log:      log,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Status returns the latest tri-state.
func (p *Prober) Status() domain.ConnectivityStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start probes once immediately, then every interval until Stop.
func (p *Prober) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Probe(ctx)
			}
		}
	}()
}

// Stop ends the probe loop and waits for it.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Probe runs one dial and updates the status.
func (p *Prober) Probe(ctx context.Context) domain.ConnectivityStatus {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.target)
	if err == nil {
		_ = conn.Close()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.status
	switch {
	case err == nil:
		p.misses = 0
		p.status = domain.ConnectivityConnected
	case p.status == domain.ConnectivityConnected:
		p.misses = 1
		p.status = domain.ConnectivityConnecting
	default:
		p.misses++
		if p.misses >= p.failures {
			p.status = domain.ConnectivityFailed
		}
	}
	if p.status != prev {
		p.log.Info("netcheck: %s -> %s (%s)", prev, p.status, p.target)
	} else if err != nil {
		p.log.Debug("netcheck: probe %s failed (%d/%d): %v", p.target, p.misses, p.failures, err)
	}
	return p.status
}
