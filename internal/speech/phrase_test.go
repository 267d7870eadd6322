package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hey   smart\nlearn ", "hey smart learn"},
		{"[BLANK_AUDIO]", ""},
		{"(music) hi smart learn", "hi smart learn"},
		{"[00:00:00.000 --> 00:00:03.000]  what is photosynthesis", "what is photosynthesis"},
		{"Thank you.", ""},
		{"you", ""},
		{"you know what", "you know what"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanTranscript(tt.in), tt.in)
	}
}

func TestPhraseSpotterFiresOnMatch(t *testing.T) {
	probes := []string{"(silence)", "what time is it", "Hey, Smart Learn!", "[BLANK_AUDIO]"}
	i := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPhraseSpotter("whisper-cli", "model.bin", quietLog(), WithProbe(func(context.Context, time.Duration) string {
		if i >= len(probes) {
			cancel()
			return ""
		}
		s := probes[i]
		i++
		return s
	}))

	wakes := 0
	err := p.Run(ctx, func() { wakes++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, wakes)
}

func TestPhraseSpotterPausedIgnoresProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var p *PhraseSpotter
	p = NewPhraseSpotter("whisper-cli", "model.bin", quietLog(), WithProbe(func(context.Context, time.Duration) string {
		// Playback started while this probe was recording.
		p.Pause()
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		return "smart learn"
	}))

	wakes := 0
	_ = p.Run(ctx, func() { wakes++ })
	assert.Zero(t, wakes)
}
