// Package panel implements the session's panel state machine: which of the
// SLEEP, LISTEN, GET and REPLY panels is visible, the playback progress of
// the current reply, the reply scroll synchronizer and the subtitle buffer.
//
// Every exported method takes the display lock. Timer callbacks already
// hold it and use the unexported *Locked variants.
package panel

import (
	"strings"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

const (
	labelListening = "Listening ..."
	labelThinking  = "Thinking ..."
	labelAsleep    = " "

	// ReplyCoolDown is how long REPLY lingers after audio and scroll finish.
	ReplyCoolDown = 300 * time.Millisecond
)

// Observer is notified of every panel switch.
type Observer interface {
	PanelSwitched(p domain.Panel, scheduled bool)
}

// Option configures the controller.
type Option func(*Controller)

// WithObserver registers an observer for panel switches.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithSupersedeStale makes every new transition invalidate transitions
// still pending, which then fire as no-ops.
func WithSupersedeStale(enabled bool) Option {
	return func(c *Controller) {
		c.supersede = enabled
	}
}

// WithSubtitleMode sets the subtitle typing mode. Defaults to TypingDisabled.
func WithSubtitleMode(m SubtitleMode) Option {
	return func(c *Controller) {
		c.subtitle.mode = m
	}
}

// Controller owns the session state shown on the display surface.
type Controller struct {
	surface   domain.Surface
	sched     domain.Scheduler
	log       *logger.Logger
	observer  Observer
	supersede bool

	current    domain.Panel
	progress   domain.PlaybackProgress
	subtitle   subtitle
	scroll     domain.Timer
	generation uint64
	pending    int
}

// New initialises the session on surface: creates the paused scroll and
// subtitle timers and enters SLEEP.
func New(surface domain.Surface, sched domain.Scheduler, log *logger.Logger, opts ...Option) (*Controller, error) {
	if surface == nil {
		return nil, domain.ErrNoSurface
	}
	c := &Controller{
		surface: surface,
		sched:   sched,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}

	surface.Lock()
	defer surface.Unlock()

	c.scroll = sched.Create(scrollInterval, 0, c.scrollTickLocked)
	c.scroll.Pause()

	c.subtitle.timer = sched.Create(subtitleInterval, 0, c.subtitle.tick)
	c.subtitle.timer.Pause()
	c.subtitle.reveal = func(text string) {
		c.surface.SetText(domain.ObjLabelListenSpeak, text)
	}
	c.subtitle.stop()

	c.switchLocked(domain.PanelSleep, false)
	c.log.Info("panel controller ready (subtitles %s, supersede=%t)", c.subtitle.mode, c.supersede)
	return c, nil
}

// ── Panels ──────────────────────────────────────────────────────

// ShowPanel switches to target now when delay is zero, otherwise schedules
// the switch on the timer facility.
func (c *Controller) ShowPanel(target domain.Panel, delay time.Duration) {
	c.surface.Lock()
	defer c.surface.Unlock()
	c.showPanelLocked(target, delay)
}

func (c *Controller) showPanelLocked(target domain.Panel, delay time.Duration) {
	c.generation++
	gen := c.generation

	if delay <= 0 {
		c.switchLocked(target, false)
		return
	}

	if c.pending > 0 && !c.supersede {
		c.log.Warn("panel %s scheduled while %d earlier transition(s) still pending", target, c.pending)
	}
	c.pending++
	c.log.Warn("switch panel to %s in %s", target, delay)

	c.sched.Create(delay, 1, func() {
		c.pending--
		if c.supersede && gen != c.generation {
			c.log.Debug("dropping stale transition to %s", target)
			return
		}
		c.switchLocked(target, true)
	})
}

func (c *Controller) switchLocked(target domain.Panel, scheduled bool) {
	c.subtitle.stop()
	c.surface.StopAnimations()

	// Hide first so two panels are never visible at once.
	for _, p := range domain.Panels {
		if p != target {
			c.surface.SetHidden(p.Object(), true)
		}
	}
	c.surface.SetHidden(target.Object(), false)
	c.current = target

	switch target {
	case domain.PanelSleep:
		c.surface.SetText(domain.ObjLabelListenSpeak, labelAsleep)
		c.progress = domain.PlaybackProgress{}
		c.scroll.Pause()
		c.surface.StartAnimation(target.Avatar(), domain.PoseSleeping)

	case domain.PanelListen:
		c.surface.SetHidden(domain.ObjLabelListenSpeak, false)
		c.surface.SetText(domain.ObjLabelListenSpeak, labelListening)
		c.progress.Reset()
		c.scroll.Pause()
		c.surface.StartAnimation(target.Avatar(), domain.PoseListening)

	case domain.PanelGet:
		c.surface.SetHidden(domain.ObjLabelListenSpeak, false)
		c.surface.SetText(domain.ObjLabelListenSpeak, labelThinking)
		c.surface.StartAnimation(target.Avatar(), domain.PoseListening)

	case domain.PanelReply:
		c.surface.SetHidden(domain.ObjLabelListenSpeak, false)
		c.surface.ScrollToY(domain.ObjContainerReplyContent, 0)
		c.surface.Refresh()
		pose := domain.PoseListening
		if c.progress.AudioStarted {
			pose = domain.PoseSpeaking
		}
		c.surface.StartAnimation(target.Avatar(), pose)
	}

	c.log.Info("switch to panel %s", target)
	if c.observer != nil {
		c.observer.PanelSwitched(target, scheduled)
	}
}

// Current returns the visible panel.
func (c *Controller) Current() domain.Panel {
	c.surface.Lock()
	defer c.surface.Unlock()
	return c.current
}

// PendingTransitions returns how many scheduled switches have not fired.
func (c *Controller) PendingTransitions() int {
	c.surface.Lock()
	defer c.surface.Unlock()
	return c.pending
}

// ── Labels ──────────────────────────────────────────────────────

// SetLabel writes text to one of the session labels. Empty text is ignored
// for the reply labels; an empty status text clears the status line.
func (c *Controller) SetLabel(label domain.Label, text string) {
	c.surface.Lock()
	defer c.surface.Unlock()

	switch label {
	case domain.LabelListenSpeak:
		c.subtitle.stop()
		c.surface.SetHidden(domain.ObjLabelListenSpeak, false)
		c.surface.SetText(domain.ObjLabelListenSpeak, text)

	case domain.LabelReplyQuestion:
		if text == "" {
			return
		}
		c.surface.SetText(domain.ObjLabelReplyQuestion, text)

	case domain.LabelReplyContent:
		if text == "" {
			return
		}
		c.surface.SetText(domain.ObjLabelReplyContent, decodeEscapes(text))
		c.progress.ContentHeight = c.surface.ContentHeight(domain.ObjLabelReplyContent)
		c.surface.ScrollToY(domain.ObjContainerReplyContent, 0)
		c.progress.Captured = true
		c.scroll.Resume()
		c.log.Debug("reply content captured (height=%d)", c.progress.ContentHeight)
	}
}

// decodeEscapes turns literal backslash-n pairs into newlines.
func decodeEscapes(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}

// ── Playback progress ───────────────────────────────────────────

// SetAudioStarted records whether reply audio is playing. A true value is
// ignored until reply content has been captured.
func (c *Controller) SetAudioStarted(started bool) {
	c.surface.Lock()
	defer c.surface.Unlock()
	c.setAudioStartedLocked(started)
}

func (c *Controller) setAudioStartedLocked(started bool) {
	if started && !c.progress.Captured {
		c.log.Debug("audio started before reply content, ignoring")
		return
	}
	c.progress.AudioStarted = started
	if !started {
		c.progress.AudioEnded = false
		return
	}

	c.surface.SetText(domain.ObjLabelListenSpeak, "")
	c.surface.StopAnimations()
	c.surface.Refresh()
	if !c.surface.Hidden(domain.ObjPanelReply) {
		c.surface.StartAnimation(domain.ObjAvatarReply, domain.PoseSpeaking)
	}
}

// SetAudioEnded records that reply audio finished. Ignored unless audio
// started for the current reply.
func (c *Controller) SetAudioEnded(ended bool) {
	c.surface.Lock()
	defer c.surface.Unlock()
	c.setAudioEndedLocked(ended)
}

func (c *Controller) setAudioEndedLocked(ended bool) {
	if !c.progress.AudioStarted {
		c.log.Debug("audio ended without start, ignoring")
		return
	}
	c.progress.AudioEnded = ended
	if !ended {
		return
	}

	c.subtitle.stop()
	c.surface.StopAnimations()
	c.surface.Refresh()
	for _, p := range []domain.Panel{domain.PanelReply, domain.PanelListen, domain.PanelGet} {
		if !c.surface.Hidden(p.Object()) {
			c.surface.StartAnimation(p.Avatar(), domain.PoseListening)
			break
		}
	}
}

// AudioStarted reports whether the current reply's audio has started.
func (c *Controller) AudioStarted() bool {
	c.surface.Lock()
	defer c.surface.Unlock()
	return c.progress.AudioStarted
}

// Progress returns a snapshot of the playback progress.
func (c *Controller) Progress() domain.PlaybackProgress {
	c.surface.Lock()
	defer c.surface.Unlock()
	return c.progress
}

// PlaybackStarted is the audio player's start callback.
func (c *Controller) PlaybackStarted() {
	c.SetAudioStarted(true)
}

// PlaybackFinished is the audio player's completion callback. It only flips
// the flag; the next scroll tick moves the session to SLEEP.
func (c *Controller) PlaybackFinished() {
	c.SetAudioEnded(true)
}

// ── Subtitles ───────────────────────────────────────────────────

// StartSubtitle hands text to the subtitle buffer, which becomes its owner.
func (c *Controller) StartSubtitle(text string) {
	c.surface.Lock()
	defer c.surface.Unlock()
	c.subtitle.start(text)
}

// StopSubtitle blocks the subtitle tick and drops its buffer.
func (c *Controller) StopSubtitle() {
	c.surface.Lock()
	defer c.surface.Unlock()
	c.subtitle.stop()
}

// Subtitle returns a snapshot of the subtitle buffer.
func (c *Controller) Subtitle() SubtitleState {
	c.surface.Lock()
	defer c.surface.Unlock()
	return c.subtitle.state()
}
