package display

import (
	"context"
	"sync/atomic"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

// KeyWake is a WakeSource driven by a key press on the surface.
type KeyWake struct {
	presses chan struct{}
	paused  atomic.Bool
}

var _ domain.WakeSource = (*KeyWake)(nil)

// NewKeyWake returns a KeyWake. Bind its Press method to a key.
func NewKeyWake() *KeyWake {
	return &KeyWake{presses: make(chan struct{}, 1)}
}

// Press records a wake request. Presses while paused or while one is
// already queued are dropped.
func (k *KeyWake) Press() {
	if k.paused.Load() {
		return
	}
	select {
	case k.presses <- struct{}{}:
	default:
	}
}

func (k *KeyWake) Pause()  { k.paused.Store(true) }
func (k *KeyWake) Resume() { k.paused.Store(false) }

// Run calls onWake for every press until ctx is cancelled.
func (k *KeyWake) Run(ctx context.Context, onWake func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.presses:
			onWake()
		}
	}
}
