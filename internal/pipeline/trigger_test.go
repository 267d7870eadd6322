package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// chanWake fires onWake for every value sent on wakes.
type chanWake struct {
	wakes chan struct{}
}

func (w *chanWake) Run(ctx context.Context, onWake func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.wakes:
			onWake()
		}
	}
}

func (w *chanWake) Pause()  {}
func (w *chanWake) Resume() {}

type stubRecorder struct {
	audio []byte
	err   error
}

func (r *stubRecorder) Record(context.Context) ([]byte, error) {
	return r.audio, r.err
}

type blockingRunner struct {
	mu      sync.Mutex
	runs    [][]byte
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(_ context.Context, audio []byte) error {
	r.mu.Lock()
	r.runs = append(r.runs, audio)
	r.mu.Unlock()
	r.entered <- struct{}{}
	<-r.release
	return nil
}

func TestTriggerRunsOneTurnAtATime(t *testing.T) {
	panels := &recordingPanels{}
	runner := &blockingRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	trig := NewTrigger(&chanWake{}, &stubRecorder{audio: []byte("wav")}, panels, runner, logger.New(logger.LevelOff, nil))

	ctx := context.Background()
	require.True(t, trig.Wake(ctx))
	<-runner.entered

	assert.True(t, trig.InFlight())
	assert.False(t, trig.Wake(ctx), "second wake while busy")

	close(runner.release)
	require.Eventually(t, func() bool { return !trig.InFlight() }, time.Second, time.Millisecond)

	assert.Equal(t, []string{"show LISTEN 0s"}, panels.list())
	assert.Equal(t, [][]byte{[]byte("wav")}, runner.runs)
}

func TestTriggerRecordingFailureSleeps(t *testing.T) {
	panels := &recordingPanels{}
	runner := &blockingRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	trig := NewTrigger(&chanWake{}, &stubRecorder{err: domain.ErrNoSpeech}, panels, runner, logger.New(logger.LevelOff, nil))

	require.True(t, trig.Wake(context.Background()))
	require.Eventually(t, func() bool { return !trig.InFlight() }, time.Second, time.Millisecond)

	assert.Equal(t, []string{"show LISTEN 0s", "show SLEEP 0s"}, panels.list())
	assert.Empty(t, runner.runs)
}

func TestTriggerRunStopsOnCancel(t *testing.T) {
	wake := &chanWake{wakes: make(chan struct{})}
	runner := &blockingRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	close(runner.release)
	trig := NewTrigger(wake, &stubRecorder{audio: []byte("wav")}, &recordingPanels{}, runner, logger.New(logger.LevelOff, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trig.Run(ctx) }()

	wake.wakes <- struct{}{}
	<-runner.entered
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not stop")
	}
}
