package panel

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
	"github.com/hammamikhairi/smartlearn/internal/timer"
)

type animation struct {
	target domain.Object
	pose   domain.Pose
}

// fakeSurface is an in-memory object tree that records lock violations.
type fakeSurface struct {
	mu   sync.Mutex
	held bool

	hidden   map[domain.Object]bool
	text     map[domain.Object]string
	scrollY  map[domain.Object]int
	viewport int
	line     int
	// wrap is how many rows each text line occupies; clamp makes ScrollToY
	// stop at the live content height like a real surface, frozen makes it
	// ignore every request.
	wrap   int
	clamp  bool
	frozen bool

	anims      []animation
	refreshes  int
	screen     domain.Screen
	focused    domain.Object
	activated  []domain.Object
	violations []string

	onSetText func(obj domain.Object, text string)
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		hidden:   map[domain.Object]bool{},
		text:     map[domain.Object]string{},
		scrollY:  map[domain.Object]int{},
		viewport: 8,
		line:     4,
		wrap:     1,
		screen:   domain.ScreenMain,
	}
}

func (s *fakeSurface) Lock() {
	s.mu.Lock()
	s.held = true
}

func (s *fakeSurface) Unlock() {
	s.held = false
	s.mu.Unlock()
}

func (s *fakeSurface) check(op string) {
	if !s.held {
		s.violations = append(s.violations, op)
	}
}

func (s *fakeSurface) SetHidden(obj domain.Object, hidden bool) {
	s.check("SetHidden")
	s.hidden[obj] = hidden
}

func (s *fakeSurface) Hidden(obj domain.Object) bool {
	s.check("Hidden")
	return s.hidden[obj]
}

func (s *fakeSurface) SetText(obj domain.Object, text string) {
	s.check("SetText")
	if s.onSetText != nil {
		s.onSetText(obj, text)
	}
	s.text[obj] = text
}

func (s *fakeSurface) Text(obj domain.Object) string {
	s.check("Text")
	return s.text[obj]
}

func (s *fakeSurface) ContentHeight(obj domain.Object) int {
	s.check("ContentHeight")
	return s.contentHeight(obj)
}

func (s *fakeSurface) contentHeight(obj domain.Object) int {
	return (strings.Count(s.text[obj], "\n") + 1) * s.line * s.wrap
}

func (s *fakeSurface) Height(domain.Object) int {
	s.check("Height")
	return s.viewport
}

func (s *fakeSurface) LineHeight(domain.Object) int {
	s.check("LineHeight")
	return s.line
}

func (s *fakeSurface) ScrollY(obj domain.Object) int {
	s.check("ScrollY")
	return s.scrollY[obj]
}

func (s *fakeSurface) ScrollToY(obj domain.Object, y int) {
	s.check("ScrollToY")
	if s.frozen {
		return
	}
	if s.clamp {
		y = min(max(y, 0), max(0, s.contentHeight(domain.ObjLabelReplyContent)-s.viewport))
	}
	s.scrollY[obj] = y
}

// rewrap simulates a terminal resize: text re-wraps and the scroll offset
// is re-clamped.
func (s *fakeSurface) rewrap(wrap int) {
	s.Lock()
	defer s.Unlock()
	s.wrap = wrap
	s.ScrollToY(domain.ObjContainerReplyContent, s.scrollY[domain.ObjContainerReplyContent])
}

func (s *fakeSurface) StartAnimation(target domain.Object, pose domain.Pose) {
	s.check("StartAnimation")
	s.anims = append(s.anims, animation{target, pose})
}

func (s *fakeSurface) StopAnimations() {
	s.check("StopAnimations")
	s.anims = nil
}

func (s *fakeSurface) Refresh() {
	s.check("Refresh")
	s.refreshes++
}

func (s *fakeSurface) ActiveScreen() domain.Screen {
	s.check("ActiveScreen")
	return s.screen
}

func (s *fakeSurface) Focus(obj domain.Object) {
	s.check("Focus")
	s.focused = obj
}

func (s *fakeSurface) Activate(obj domain.Object) {
	s.check("Activate")
	s.activated = append(s.activated, obj)
	if obj == domain.ObjButtonSetup {
		s.screen = domain.ScreenMain
	}
}

// Accessors for assertions; they take the lock like any other caller.

func (s *fakeSurface) visiblePanels() []domain.Panel {
	s.Lock()
	defer s.Unlock()
	var out []domain.Panel
	for _, p := range domain.Panels {
		if !s.hidden[p.Object()] {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeSurface) label(obj domain.Object) string {
	s.Lock()
	defer s.Unlock()
	return s.text[obj]
}

func (s *fakeSurface) offset() int {
	s.Lock()
	defer s.Unlock()
	return s.scrollY[domain.ObjContainerReplyContent]
}

func (s *fakeSurface) animations() []animation {
	s.Lock()
	defer s.Unlock()
	return append([]animation(nil), s.anims...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) add(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	t       *testing.T
	surface *fakeSurface
	clock   *fakeClock
	timers  *timer.Facility
	ctrl    *Controller
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		surface: newFakeSurface(),
		clock:   &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	log := logger.New(logger.LevelOff, nil)
	h.timers = timer.New(h.surface, log, timer.WithClock(h.clock.Now))

	ctrl, err := New(h.surface, h.timers, log, opts...)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

// advance steps the timer facility through d in 10ms increments.
func (h *harness) advance(d time.Duration) {
	const step = 10 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.timers.Step(h.clock.add(step))
	}
}

func (h *harness) requireNoViolations() {
	h.t.Helper()
	h.surface.Lock()
	defer h.surface.Unlock()
	require.Empty(h.t, h.surface.violations, "surface touched without the display lock")
}
