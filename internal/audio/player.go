package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// voice is one playing stream. *oto.Player satisfies it.
type voice interface {
	Play()
	IsPlaying() bool
	Pause()
	Close() error
}

// mixer creates voices. It is the seam between Player and oto.
type mixer interface {
	NewVoice(r io.Reader) voice
}

type otoMixer struct {
	ctx *oto.Context
}

func (m otoMixer) NewVoice(r io.Reader) voice { return m.ctx.NewPlayer(r) }

// Player plays WAV replies through oto without blocking the caller and
// reports playback start and finish through callbacks.
type Player struct {
	mix    mixer
	format Format
	log    *logger.Logger
	poll   time.Duration

	mu         sync.Mutex
	active     voice
	onStarted  func()
	onFinished func()
}

var _ domain.AudioPlayer = (*Player)(nil)

// NewPlayer opens the system audio output in PlaybackFormat.
func NewPlayer(log *logger.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   PlaybackFormat.SampleRate,
		ChannelCount: PlaybackFormat.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open output: %w", err)
	}
	<-ready

	log.Debug("audio player initialized (rate=%d, channels=%d)", PlaybackFormat.SampleRate, PlaybackFormat.Channels)
	return newPlayer(otoMixer{ctx: ctx}, PlaybackFormat, log), nil
}

func newPlayer(m mixer, f Format, log *logger.Logger) *Player {
	return &Player{mix: m, format: f, log: log, poll: 10 * time.Millisecond}
}

// OnPlaybackStarted registers the start callback.
func (p *Player) OnPlaybackStarted(fn func()) {
	p.mu.Lock()
	p.onStarted = fn
	p.mu.Unlock()
}

// OnPlaybackFinished registers the completion callback. It also fires when
// playback is interrupted by Stop or a newer Play.
func (p *Player) OnPlaybackFinished(fn func()) {
	p.mu.Lock()
	p.onFinished = fn
	p.mu.Unlock()
}

// Play starts wav and returns once playback is underway. Any clip still
// playing is stopped first.
func (p *Player) Play(wav []byte) error {
	f, pcm, err := DecodeWAV(wav)
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if f != p.format {
		return fmt.Errorf("audio: unsupported format %d Hz/%d ch/%d bit, want %d Hz/%d ch/%d bit",
			f.SampleRate, f.Channels, f.BitsPerSample, p.format.SampleRate, p.format.Channels, p.format.BitsPerSample)
	}

	v := p.mix.NewVoice(bytes.NewReader(pcm))

	p.mu.Lock()
	prev := p.active
	p.active = v
	started, finished := p.onStarted, p.onFinished
	p.mu.Unlock()

	if prev != nil {
		prev.Pause()
	}

	v.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))
	if started != nil {
		started()
	}

	go p.watch(v, finished)
	return nil
}

func (p *Player) watch(v voice, finished func()) {
	for v.IsPlaying() {
		time.Sleep(p.poll)
	}
	if err := v.Close(); err != nil {
		p.log.Warn("audio player: close: %v", err)
	}

	p.mu.Lock()
	if p.active == v {
		p.active = nil
	}
	p.mu.Unlock()

	if finished != nil {
		finished()
	}
}

// Playing reports whether a clip is playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Stop interrupts the current clip, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}
