package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// Runner runs one turn over captured audio.
type Runner interface {
	Run(ctx context.Context, audio []byte) error
}

// Trigger turns wake events into voice turns: LISTEN, record one utterance,
// run it. Wake events that arrive while a turn is in flight are dropped.
type Trigger struct {
	wake   domain.WakeSource
	rec    domain.Recorder
	panels Panels
	runner Runner
	log    *logger.Logger

	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewTrigger wires a wake source and recorder to runner.
func NewTrigger(wake domain.WakeSource, rec domain.Recorder, panels Panels, runner Runner, log *logger.Logger) *Trigger {
	return &Trigger{
		wake:   wake,
		rec:    rec,
		panels: panels,
		runner: runner,
		log:    log,
	}
}

// Run listens for wake events until ctx is cancelled, then waits for the
// turn in flight to return.
func (t *Trigger) Run(ctx context.Context) error {
	err := t.wake.Run(ctx, func() { t.Wake(ctx) })
	t.wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Wake starts a turn unless one is already running. It reports whether a
// turn was started.
func (t *Trigger) Wake(ctx context.Context) bool {
	if !t.busy.CompareAndSwap(false, true) {
		t.log.Debug("wake ignored, turn in flight")
		return false
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.busy.Store(false)
		t.turn(ctx)
	}()
	return true
}

// InFlight reports whether a turn is running.
func (t *Trigger) InFlight() bool {
	return t.busy.Load()
}

func (t *Trigger) turn(ctx context.Context) {
	t.panels.ShowPanel(domain.PanelListen, 0)

	audio, err := t.rec.Record(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSpeech) {
			t.log.Info("no speech captured")
		} else {
			t.log.Error("recording: %v", err)
		}
		t.panels.ShowPanel(domain.PanelSleep, 0)
		return
	}

	// Failures are already shown and logged by the runner.
	_ = t.runner.Run(ctx, audio)
}
