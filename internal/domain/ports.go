package domain

import (
	"context"
	"time"
)

// Surface is the single-threaded UI object tree. Nothing but Lock and
// Unlock may be called without holding the lock, and the lock is not
// reentrant.
type Surface interface {
	Lock()
	Unlock()

	SetHidden(obj Object, hidden bool)
	Hidden(obj Object) bool
	SetText(obj Object, text string)
	Text(obj Object) string

	// ContentHeight is the measured height of a label's text.
	ContentHeight(obj Object) int
	// Height is the visible height of a container.
	Height(obj Object) int
	// LineHeight is the font line height used by obj.
	LineHeight(obj Object) int
	ScrollY(obj Object) int
	ScrollToY(obj Object, y int)

	StartAnimation(target Object, pose Pose)
	StopAnimations()
	// Refresh flushes pending renders so stopped animations leave no frame behind.
	Refresh()

	ActiveScreen() Screen
	Focus(obj Object)
	// Activate clicks a button.
	Activate(obj Object)
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	Pause()
	Resume()
	Delete()
}

// Scheduler is the timer facility. Callbacks run one at a time while the
// display lock is held, so they must not take it again.
type Scheduler interface {
	// Create schedules fn every interval. repeat <= 0 means forever.
	Create(interval time.Duration, repeat int, fn func()) Timer
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Answerer answers a transcribed question, typically from a knowledge base.
type Answerer interface {
	Ask(ctx context.Context, text string) (string, error)
}

// Synthesizer converts answer text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// AudioPlayer starts playback and reports progress through callbacks.
// Play returns once playback has been handed off, not when it ends.
type AudioPlayer interface {
	Play(audio []byte) error
	OnPlaybackStarted(fn func())
	OnPlaybackFinished(fn func())
}

// ConnectivityProvider reports the network state.
type ConnectivityProvider interface {
	Status() ConnectivityStatus
}

// WakeSource fires onWake when the user asks for attention. Run blocks
// until ctx is cancelled.
type WakeSource interface {
	Run(ctx context.Context, onWake func()) error
	Pause()
	Resume()
}

// Recorder captures one utterance and returns it as WAV bytes.
type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
}
