// Package display is the terminal rendition of the device screen, built
// on Bubble Tea.
//
// [Surface] holds the object tree (panels, labels, reply container,
// avatars, setup widgets) behind one mutex and is what the panel
// controller drives. The Bubble Tea model only reads it while rendering,
// so callers never talk to the program directly.
package display

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// lineUnits is the height of one terminal row in surface units. Two units
// per row lets the scroll synchronizer advance half a line per tick; the
// viewport rounds down to whole rows.
const lineUnits = 2

const (
	defaultWidth       = 60
	defaultContentRows = 6
)

type node struct {
	hidden bool
	text   string
	scroll int
}

// Option configures a Surface.
type Option func(*Surface)

// WithTheme selects the palette.
func WithTheme(t Theme) Option {
	return func(s *Surface) { s.styles = newPalette(t) }
}

// WithSize sets the initial content width and reply viewport rows.
func WithSize(width, rows int) Option {
	return func(s *Surface) {
		if width > 0 {
			s.width = width
		}
		if rows > 0 {
			s.rows = rows
		}
	}
}

// Surface implements domain.Surface for the terminal.
type Surface struct {
	mu     sync.Mutex
	log    *logger.Logger
	styles palette

	nodes   map[domain.Object]*node
	anims   map[domain.Object]domain.Pose
	screen  domain.Screen
	focused domain.Object
	width   int
	rows    int

	refresh chan struct{}
	keys    bindings
}

var _ domain.Surface = (*Surface)(nil)

// NewSurface lays out the object tree. The setup screen is active and
// every main panel starts hidden.
func NewSurface(log *logger.Logger, opts ...Option) *Surface {
	s := &Surface{
		log:     log,
		styles:  newPalette(ThemeDark),
		nodes:   make(map[domain.Object]*node),
		anims:   make(map[domain.Object]domain.Pose),
		screen:  domain.ScreenSetup,
		focused: -1,
		width:   defaultWidth,
		rows:    defaultContentRows,
		refresh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	for _, p := range domain.Panels {
		s.node(p.Object()).hidden = true
	}
	s.node(domain.ObjPanelSetupSteps).hidden = true
	return s
}

func (s *Surface) Lock()   { s.mu.Lock() }
func (s *Surface) Unlock() { s.mu.Unlock() }

func (s *Surface) node(obj domain.Object) *node {
	n, ok := s.nodes[obj]
	if !ok {
		n = &node{}
		s.nodes[obj] = n
	}
	return n
}

func (s *Surface) SetHidden(obj domain.Object, hidden bool) { s.node(obj).hidden = hidden }
func (s *Surface) Hidden(obj domain.Object) bool            { return s.node(obj).hidden }
func (s *Surface) SetText(obj domain.Object, text string)   { s.node(obj).text = text }
func (s *Surface) Text(obj domain.Object) string            { return s.node(obj).text }

// ContentHeight measures obj's text wrapped to the content width.
func (s *Surface) ContentHeight(obj domain.Object) int {
	text := s.node(obj).text
	if text == "" {
		return 0
	}
	return wrappedLines(text, s.width) * lineUnits
}

// Height is the visible height of the reply container; other objects
// are one row.
func (s *Surface) Height(obj domain.Object) int {
	if obj == domain.ObjContainerReplyContent {
		return s.rows * lineUnits
	}
	return lineUnits
}

func (s *Surface) LineHeight(domain.Object) int  { return lineUnits }
func (s *Surface) ScrollY(obj domain.Object) int { return s.node(obj).scroll }

// ScrollToY clamps y to the scrollable range of the reply content.
func (s *Surface) ScrollToY(obj domain.Object, y int) {
	limit := 0
	if obj == domain.ObjContainerReplyContent {
		limit = max(0, s.ContentHeight(domain.ObjLabelReplyContent)-s.Height(obj))
	}
	s.node(obj).scroll = min(max(y, 0), limit)
}

func (s *Surface) StartAnimation(target domain.Object, pose domain.Pose) {
	s.anims[target] = pose
}

func (s *Surface) StopAnimations() { clear(s.anims) }

// Refresh asks the program for a redraw. It never blocks, because the
// caller holds the lock the renderer needs.
func (s *Surface) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Surface) ActiveScreen() domain.Screen { return s.screen }
func (s *Surface) Focus(obj domain.Object)     { s.focused = obj }

// Activate clicks a button. The setup button leaves the setup screen.
func (s *Surface) Activate(obj domain.Object) {
	if obj == domain.ObjButtonSetup && s.screen == domain.ScreenSetup {
		s.screen = domain.ScreenMain
		s.log.Info("display: setup complete, entering main screen")
		s.Refresh()
	}
}

// resize applies a terminal size. It takes the lock.
func (s *Surface) resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Frame border, padding, avatar, status, question and hint rows.
	s.width = max(20, width-4)
	s.rows = max(2, height-12)
	s.ScrollToY(domain.ObjContainerReplyContent, s.node(domain.ObjContainerReplyContent).scroll)
}

// frame is a render snapshot taken under the lock.
type frame struct {
	screen   domain.Screen
	panel    domain.Panel
	awake    bool
	status   string
	showStat bool
	question string
	content  string
	offset   int
	pose     domain.Pose
	animated bool

	wifiText  string
	showWifi  bool
	showSteps bool
	focused   bool
	width     int
	rows      int
}

func (s *Surface) snapshot() frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := frame{
		screen:    s.screen,
		status:    s.node(domain.ObjLabelListenSpeak).text,
		showStat:  !s.node(domain.ObjLabelListenSpeak).hidden,
		question:  s.node(domain.ObjLabelReplyQuestion).text,
		content:   s.node(domain.ObjLabelReplyContent).text,
		offset:    s.node(domain.ObjContainerReplyContent).scroll,
		wifiText:  s.node(domain.ObjLabelSetupWifi).text,
		showWifi:  !s.node(domain.ObjPanelSetupWifi).hidden,
		showSteps: !s.node(domain.ObjPanelSetupSteps).hidden,
		focused:   s.focused == domain.ObjButtonSetup,
		width:     s.width,
		rows:      s.rows,
	}
	for _, p := range domain.Panels {
		if !s.node(p.Object()).hidden {
			f.panel, f.awake = p, true
			break
		}
	}
	if f.awake {
		f.pose, f.animated = s.anims[f.panel.Avatar()]
	}
	return f
}

func wrappedLines(text string, width int) int {
	return lipgloss.Height(lipgloss.NewStyle().Width(width).Render(strings.TrimRight(text, "\n")))
}
