package panel

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

type stubConnectivity struct {
	mu     sync.Mutex
	status domain.ConnectivityStatus
}

func (s *stubConnectivity) Status() domain.ConnectivityStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *stubConnectivity) set(st domain.ConnectivityStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func newSetupHarness(t *testing.T) (*harness, *SetupFlow, *stubConnectivity) {
	t.Helper()
	h := newHarness(t)
	h.surface.Lock()
	h.surface.screen = domain.ScreenSetup
	h.surface.Unlock()

	conn := &stubConnectivity{}
	flow, err := NewSetupFlow(h.surface, h.timers, conn, logger.New(logger.LevelOff, nil))
	require.NoError(t, err)
	return h, flow, conn
}

func TestSetupConnectingDots(t *testing.T) {
	h, _, _ := newSetupHarness(t)
	assert.Equal(t, labelConnecting, h.surface.label(domain.ObjLabelSetupWifi))

	for i := 1; i <= connectingDotsMax; i++ {
		h.advance(time.Second)
		assert.Equal(t, labelConnecting+strings.Repeat(".", i), h.surface.label(domain.ObjLabelSetupWifi))
	}

	h.advance(time.Second)
	assert.Equal(t, labelConnecting, h.surface.label(domain.ObjLabelSetupWifi))
}

func TestSetupFailedThenConnected(t *testing.T) {
	h, flow, conn := newSetupHarness(t)
	live := h.timers.Len()

	conn.set(domain.ConnectivityFailed)
	h.advance(time.Second)
	assert.Equal(t, labelNotConnected, h.surface.label(domain.ObjLabelSetupWifi))

	conn.set(domain.ConnectivityConnecting)
	h.advance(time.Second)
	assert.Equal(t, labelConnecting, h.surface.label(domain.ObjLabelSetupWifi))

	conn.set(domain.ConnectivityConnected)
	h.advance(time.Second)
	assert.True(t, flow.Connected())
	assert.Equal(t, live-1, h.timers.Len(), "poll timer deleted")

	h.surface.Lock()
	assert.False(t, h.surface.hidden[domain.ObjPanelSetupSteps])
	assert.True(t, h.surface.hidden[domain.ObjPanelSetupWifi])
	assert.Equal(t, domain.ObjButtonSetup, h.surface.focused)
	h.surface.Unlock()
	h.requireNoViolations()
}

func TestGuideJump(t *testing.T) {
	h, flow, _ := newSetupHarness(t)

	flow.GuideJump()
	flow.GuideJump()

	h.surface.Lock()
	defer h.surface.Unlock()
	assert.Equal(t, []domain.Object{domain.ObjButtonSetup}, h.surface.activated, "second jump is off the setup screen")
}

func TestNewSetupFlowRejectsNilSurface(t *testing.T) {
	h := newHarness(t)
	_, err := NewSetupFlow(nil, h.timers, &stubConnectivity{}, logger.New(logger.LevelOff, nil))
	assert.ErrorIs(t, err, domain.ErrNoSurface)
}
