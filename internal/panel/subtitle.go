package panel

import (
	"strings"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

// SubtitleMode selects whether the subtitle tick reveals text.
type SubtitleMode int

const (
	// TypingDisabled stores the subtitle text but never reveals it.
	TypingDisabled SubtitleMode = iota
	// TypingEnabled reveals the stored text into the status label at a
	// fixed rate while audio plays.
	TypingEnabled
)

// String returns a human-readable mode name.
func (m SubtitleMode) String() string {
	if m == TypingEnabled {
		return "typing-enabled"
	}
	return "typing-disabled"
}

const (
	subtitleInterval = 50 * time.Millisecond
	subtitleRate     = 20 // characters per second
)

// SubtitleState is a snapshot of the subtitle buffer.
type SubtitleState struct {
	Text    string
	Owned   bool
	Active  bool
	Blocked bool
	Cursor  int
}

// subtitle owns at most one text buffer. All methods run under the display lock.
type subtitle struct {
	mode   SubtitleMode
	timer  domain.Timer
	reveal func(text string)

	buf     *string
	active  bool
	blocked bool
	ticks   int // ticks since start
	cursor  int // runes revealed
}

// start takes a copy of text, dropping any buffer already owned.
func (s *subtitle) start(text string) {
	s.release()
	owned := strings.Clone(text)
	s.buf = &owned

	if s.mode != TypingEnabled {
		return
	}
	s.blocked = false
	s.active = true
	if s.timer != nil {
		s.timer.Resume()
	}
}

// stop blocks the tick and drops the buffer. Idempotent.
func (s *subtitle) stop() {
	s.blocked = true
	s.active = false
	s.release()
	s.ticks = 0
	s.cursor = 0
	if s.timer != nil {
		s.timer.Pause()
	}
}

func (s *subtitle) release() {
	s.buf = nil
}

func (s *subtitle) tick() {
	if s.mode == TypingDisabled {
		s.typingDisabledTick()
		return
	}
	if s.blocked || !s.active || s.buf == nil {
		return
	}

	s.ticks++
	runes := []rune(*s.buf)
	want := s.ticks * subtitleRate * int(subtitleInterval) / int(time.Second)
	if want > len(runes) {
		want = len(runes)
	}
	if want == s.cursor {
		return
	}
	s.cursor = want
	if s.reveal != nil {
		s.reveal(string(runes[:want]))
	}
	if want == len(runes) {
		s.active = false
		if s.timer != nil {
			s.timer.Pause()
		}
	}
}

// typingDisabledTick is the tick handler while typing is disabled: it
// reveals nothing.
func (s *subtitle) typingDisabledTick() {}

func (s *subtitle) state() SubtitleState {
	st := SubtitleState{
		Active:  s.active,
		Blocked: s.blocked,
		Cursor:  s.cursor,
	}
	if s.buf != nil {
		st.Text = *s.buf
		st.Owned = true
	}
	return st
}
