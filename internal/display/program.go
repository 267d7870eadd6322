package display

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

// ── Key bindings ─────────────────────────────────────────────────

type bindings struct {
	mu sync.Mutex
	fn map[string]func()
}

// Bind runs fn when key is pressed, named as tea.KeyMsg reports it (" ",
// "enter"). fn runs on its
// own goroutine and may take the surface lock.
func (s *Surface) Bind(key string, fn func()) {
	s.keys.mu.Lock()
	defer s.keys.mu.Unlock()
	if s.keys.fn == nil {
		s.keys.fn = make(map[string]func())
	}
	s.keys.fn[key] = fn
}

func (b *bindings) lookup(key string) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fn[key]
}

// ── Program ──────────────────────────────────────────────────────

type refreshMsg struct{}

// Run starts the Bubble Tea event loop and blocks until ctx is cancelled
// or the user quits with ctrl+c.
func (s *Surface) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(newModel(s), append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-s.refresh:
				p.Send(refreshMsg{})
			}
		}
	}()

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// ── Model ────────────────────────────────────────────────────────

type model struct {
	s        *Surface
	spinners map[domain.Pose]spinner.Model
	content  viewport.Model
}

func newModel(s *Surface) *model {
	m := &model{
		s: s,
		spinners: map[domain.Pose]spinner.Model{
			domain.PoseSleeping:  spinner.New(spinner.WithSpinner(sleepingSpinner)),
			domain.PoseListening: spinner.New(spinner.WithSpinner(spinner.Points)),
			domain.PoseSpeaking:  spinner.New(spinner.WithSpinner(spinner.Meter)),
		},
		content: viewport.New(defaultWidth, defaultContentRows),
	}
	for pose, sp := range m.spinners {
		sp.Style = s.styles.avatar
		m.spinners[pose] = sp
	}
	return m
}

var sleepingSpinner = spinner.Spinner{
	Frames: []string{"(-_-)    ", "(-_-) z  ", "(-_-) zZ ", "(-_-) zZz"},
	FPS:    spinner.Dot.FPS * 5,
}

func (m *model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.spinners))
	for _, sp := range m.spinners {
		cmds = append(cmds, sp.Tick)
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if fn := m.s.keys.lookup(msg.String()); fn != nil {
			return m, func() tea.Msg {
				fn()
				return nil
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.s.resize(msg.Width, msg.Height)
		return m, nil

	case refreshMsg:
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for pose, sp := range m.spinners {
			var cmd tea.Cmd
			sp, cmd = sp.Update(msg)
			m.spinners[pose] = sp
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *model) View() string {
	f := m.s.snapshot()
	st := m.s.styles

	var b strings.Builder
	if f.screen == domain.ScreenSetup {
		b.WriteString(renderBanner(f.width, st.banner))
		b.WriteString("\n\n")
		if f.showWifi {
			b.WriteString(st.status.Render(strings.TrimRight(f.wifiText, "\n")))
			b.WriteByte('\n')
		}
		if f.showSteps {
			b.WriteString(st.hint.Render("Connected. Press Enter to start."))
			b.WriteByte('\n')
			button := st.button
			if f.focused {
				button = st.focused
			}
			b.WriteString(button.Render("Start"))
		}
		return st.frame.Width(f.width + 2).Render(b.String())
	}

	if !f.awake {
		return st.frame.Width(f.width + 2).Render(st.hint.Render("..."))
	}

	b.WriteString(st.title.Render(f.panel.String()))
	b.WriteString("  ")
	b.WriteString(m.avatar(f))
	b.WriteByte('\n')

	if f.panel == domain.PanelReply {
		if f.question != "" {
			b.WriteString(st.question.Render(f.question))
			b.WriteByte('\n')
		}
		m.content.Width = f.width
		m.content.Height = f.rows
		m.content.SetContent(st.content.Width(f.width).Render(f.content))
		m.content.SetYOffset(f.offset / lineUnits)
		b.WriteString(m.content.View())
		b.WriteByte('\n')
	}
	if f.showStat && f.status != "" {
		b.WriteString(st.status.Render(f.status))
		b.WriteByte('\n')
	}
	if f.panel == domain.PanelSleep {
		b.WriteString(st.hint.Render("press space to talk"))
	}
	return st.frame.Width(f.width + 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *model) avatar(f frame) string {
	if !f.animated {
		return m.s.styles.avatar.Render("(o_o)")
	}
	return m.spinners[f.pose].View()
}
