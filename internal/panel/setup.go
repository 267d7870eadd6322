package panel

import (
	"strings"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

const (
	labelConnecting   = "Connecting to Wi-Fi\n"
	labelNotConnected = "Not Connected to Wi-Fi\n"
	connectingDotsMax = 10
	connectivityPoll  = 1 * time.Second
)

// SetupFlow polls connectivity while the setup screen is shown and reveals
// the setup steps once the device is online.
type SetupFlow struct {
	surface  domain.Surface
	provider domain.ConnectivityProvider
	log      *logger.Logger

	timer     domain.Timer
	connected bool
	last      domain.ConnectivityStatus
}

// NewSetupFlow starts the connectivity poll on sched.
func NewSetupFlow(surface domain.Surface, sched domain.Scheduler, provider domain.ConnectivityProvider, log *logger.Logger) (*SetupFlow, error) {
	if surface == nil {
		return nil, domain.ErrNoSurface
	}
	s := &SetupFlow{
		surface:  surface,
		provider: provider,
		log:      log,
		last:     domain.ConnectivityConnecting,
	}

	surface.Lock()
	defer surface.Unlock()

	surface.SetText(domain.ObjLabelSetupWifi, labelConnecting)
	s.timer = sched.Create(connectivityPoll, 0, s.pollLocked)
	return s, nil
}

func (s *SetupFlow) pollLocked() {
	status := s.provider.Status()
	if status != s.last {
		s.log.Info("connectivity %s", status)
		s.last = status
	}

	switch status {
	case domain.ConnectivityConnected:
		s.surface.SetHidden(domain.ObjPanelSetupSteps, false)
		s.surface.SetHidden(domain.ObjPanelSetupWifi, true)
		s.timer.Delete()
		s.surface.Focus(domain.ObjButtonSetup)
		s.connected = true

	case domain.ConnectivityFailed:
		s.surface.SetText(domain.ObjLabelSetupWifi, labelNotConnected)

	default:
		text := s.surface.Text(domain.ObjLabelSetupWifi)
		if !strings.HasPrefix(text, labelConnecting) || len(text) >= len(labelConnecting)+connectingDotsMax {
			s.surface.SetText(domain.ObjLabelSetupWifi, labelConnecting)
			return
		}
		s.surface.SetText(domain.ObjLabelSetupWifi, text+".")
	}
}

// Connected reports whether the poll has seen the device come online.
func (s *SetupFlow) Connected() bool {
	s.surface.Lock()
	defer s.surface.Unlock()
	return s.connected
}

// GuideJump advances past the setup screen when it is active.
func (s *SetupFlow) GuideJump() {
	s.surface.Lock()
	defer s.surface.Unlock()

	if s.surface.ActiveScreen() != domain.ScreenSetup {
		return
	}
	s.log.Info("guide jump")
	s.surface.Activate(domain.ObjButtonSetup)
}
