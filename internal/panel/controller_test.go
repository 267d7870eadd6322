package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
	"github.com/hammamikhairi/smartlearn/internal/timer"
)

type recordingObserver struct {
	switches []domain.Panel
	kinds    []bool
}

func (o *recordingObserver) PanelSwitched(p domain.Panel, scheduled bool) {
	o.switches = append(o.switches, p)
	o.kinds = append(o.kinds, scheduled)
}

func TestNewRejectsNilSurface(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	_, err := New(nil, timer.New(newFakeSurface(), log), log)
	assert.ErrorIs(t, err, domain.ErrNoSurface)
}

func TestInitialStateIsSleep(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, domain.PanelSleep, h.ctrl.Current())
	assert.Equal(t, []domain.Panel{domain.PanelSleep}, h.surface.visiblePanels())
	assert.Equal(t, labelAsleep, h.surface.label(domain.ObjLabelListenSpeak))
	assert.Equal(t, []animation{{domain.ObjAvatarSleep, domain.PoseSleeping}}, h.surface.animations())
	assert.Equal(t, domain.PlaybackProgress{}, h.ctrl.Progress())
	assert.True(t, h.ctrl.Subtitle().Blocked)
	h.requireNoViolations()
}

func TestEntryActions(t *testing.T) {
	tests := []struct {
		target domain.Panel
		label  string
		anim   animation
	}{
		{domain.PanelListen, labelListening, animation{domain.ObjAvatarListen, domain.PoseListening}},
		{domain.PanelGet, labelThinking, animation{domain.ObjAvatarGet, domain.PoseListening}},
		{domain.PanelSleep, labelAsleep, animation{domain.ObjAvatarSleep, domain.PoseSleeping}},
	}
	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			h := newHarness(t)
			h.ctrl.StartSubtitle("old reply")

			h.ctrl.ShowPanel(tt.target, 0)

			assert.Equal(t, tt.target, h.ctrl.Current())
			assert.Equal(t, []domain.Panel{tt.target}, h.surface.visiblePanels())
			assert.Equal(t, tt.label, h.surface.label(domain.ObjLabelListenSpeak))
			assert.Equal(t, []animation{tt.anim}, h.surface.animations())
			assert.False(t, h.ctrl.Subtitle().Owned)
			h.requireNoViolations()
		})
	}
}

func TestReplyEntryPose(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetLabel(domain.LabelReplyContent, "answer")

	h.ctrl.ShowPanel(domain.PanelReply, 0)
	assert.Equal(t, []animation{{domain.ObjAvatarReply, domain.PoseListening}}, h.surface.animations())

	h.ctrl.PlaybackStarted()
	assert.Equal(t, []animation{{domain.ObjAvatarReply, domain.PoseSpeaking}}, h.surface.animations())
	assert.Equal(t, "", h.surface.label(domain.ObjLabelListenSpeak))

	// Re-entering REPLY with audio running keeps the speaking pose.
	h.ctrl.ShowPanel(domain.PanelReply, 0)
	assert.Equal(t, []animation{{domain.ObjAvatarReply, domain.PoseSpeaking}}, h.surface.animations())
}

func TestAtMostOnePanelVisible(t *testing.T) {
	h := newHarness(t)
	steps := []struct {
		target domain.Panel
		delay  time.Duration
	}{
		{domain.PanelListen, 0},
		{domain.PanelGet, 0},
		{domain.PanelSleep, 2 * time.Second},
		{domain.PanelReply, 0},
		{domain.PanelSleep, 300 * time.Millisecond},
		{domain.PanelListen, time.Second},
		{domain.PanelGet, 0},
	}

	for _, st := range steps {
		h.ctrl.ShowPanel(st.target, st.delay)
		assert.Len(t, h.surface.visiblePanels(), 1)
		for i := 0; i < 50; i++ {
			h.advance(50 * time.Millisecond)
			assert.Len(t, h.surface.visiblePanels(), 1)
		}
	}
	h.requireNoViolations()
}

func TestSubtitleReleasedBeforeLabelSet(t *testing.T) {
	h := newHarness(t)

	var stale []string
	h.surface.onSetText = func(obj domain.Object, text string) {
		if obj == domain.ObjLabelListenSpeak && h.ctrl.subtitle.buf != nil {
			stale = append(stale, text)
		}
	}

	for _, p := range []domain.Panel{domain.PanelListen, domain.PanelGet, domain.PanelReply, domain.PanelSleep} {
		h.ctrl.StartSubtitle("previous answer")
		h.ctrl.ShowPanel(p, 0)
	}
	h.ctrl.StartSubtitle("previous answer")
	h.ctrl.SetLabel(domain.LabelListenSpeak, "turn on the light")

	assert.Empty(t, stale)
}

func TestScheduledTransitionsAllFireByDefault(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(t, WithObserver(obs))

	h.ctrl.ShowPanel(domain.PanelGet, 2*time.Second)
	h.ctrl.ShowPanel(domain.PanelSleep, time.Second)
	assert.Equal(t, 2, h.ctrl.PendingTransitions())

	h.advance(time.Second)
	assert.Equal(t, domain.PanelSleep, h.ctrl.Current())
	h.advance(time.Second)
	assert.Equal(t, domain.PanelGet, h.ctrl.Current(), "earlier scheduled transition overwrites")
	assert.Equal(t, 0, h.ctrl.PendingTransitions())

	assert.Equal(t, []domain.Panel{domain.PanelSleep, domain.PanelSleep, domain.PanelGet}, obs.switches)
	assert.Equal(t, []bool{false, true, true}, obs.kinds)
}

func TestSupersedeStaleTransitions(t *testing.T) {
	h := newHarness(t, WithSupersedeStale(true))

	h.ctrl.ShowPanel(domain.PanelSleep, 2*time.Second)
	h.ctrl.ShowPanel(domain.PanelListen, 0)

	h.advance(3 * time.Second)
	assert.Equal(t, domain.PanelListen, h.ctrl.Current())
	assert.Equal(t, 0, h.ctrl.PendingTransitions())

	h.ctrl.ShowPanel(domain.PanelGet, 2*time.Second)
	h.ctrl.ShowPanel(domain.PanelSleep, time.Second)
	h.advance(3 * time.Second)
	assert.Equal(t, domain.PanelSleep, h.ctrl.Current())
}

func TestSetLabelReplies(t *testing.T) {
	h := newHarness(t)

	h.ctrl.SetLabel(domain.LabelReplyQuestion, "")
	h.ctrl.SetLabel(domain.LabelReplyContent, "")
	assert.False(t, h.ctrl.Progress().Captured)

	h.surface.Lock()
	h.surface.scrollY[domain.ObjContainerReplyContent] = 7
	h.surface.Unlock()

	h.ctrl.SetLabel(domain.LabelReplyQuestion, "what time is it")
	h.ctrl.SetLabel(domain.LabelReplyContent, `line one\nline two\nline three`)

	assert.Equal(t, "what time is it", h.surface.label(domain.ObjLabelReplyQuestion))
	assert.Equal(t, "line one\nline two\nline three", h.surface.label(domain.ObjLabelReplyContent))
	assert.Equal(t, 0, h.surface.offset())

	p := h.ctrl.Progress()
	assert.True(t, p.Captured)
	assert.Equal(t, 3*h.surface.line, p.ContentHeight)
}

func TestSetLabelStatusClears(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetLabel(domain.LabelListenSpeak, "")
	assert.Equal(t, "", h.surface.label(domain.ObjLabelListenSpeak))
}

func TestAudioFlagInvariant(t *testing.T) {
	h := newHarness(t)

	h.ctrl.PlaybackFinished()
	assert.False(t, h.ctrl.Progress().AudioEnded, "end without start is ignored")

	h.ctrl.PlaybackStarted()
	assert.False(t, h.ctrl.AudioStarted(), "start without content is ignored")

	h.ctrl.SetLabel(domain.LabelReplyContent, "answer")
	h.ctrl.ShowPanel(domain.PanelReply, 0)
	h.ctrl.PlaybackStarted()
	require.True(t, h.ctrl.AudioStarted())

	h.ctrl.PlaybackFinished()
	p := h.ctrl.Progress()
	assert.True(t, p.AudioEnded)
	assert.True(t, p.Valid())
	assert.Equal(t, []animation{{domain.ObjAvatarReply, domain.PoseListening}}, h.surface.animations())

	h.ctrl.SetAudioStarted(false)
	p = h.ctrl.Progress()
	assert.False(t, p.AudioEnded)
	assert.True(t, p.Valid())
}

func TestTransitionAwayResetsProgress(t *testing.T) {
	for _, target := range []domain.Panel{domain.PanelSleep, domain.PanelListen} {
		t.Run(target.String(), func(t *testing.T) {
			h := newHarness(t)
			h.ctrl.SetLabel(domain.LabelReplyContent, "answer")
			h.ctrl.ShowPanel(domain.PanelReply, 0)
			h.ctrl.PlaybackStarted()
			h.ctrl.PlaybackFinished()

			h.ctrl.ShowPanel(target, 0)
			p := h.ctrl.Progress()
			assert.False(t, p.Captured)
			assert.False(t, p.AudioStarted)
			assert.False(t, p.AudioEnded)
		})
	}
}
