// Package wakeword detects the wake phrase with the openWakeWord ONNX
// pipeline: melspectrogram, then embedding, then the wake-word classifier.
//
// The detector does not own a microphone. It subscribes to a shared
// audio.Source so the recorder can capture the question from the same
// device right after detection.
package wakeword

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/audio"
	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

const (
	chunkSamples  = 1280 // 80 ms @ 16 kHz
	audioQueueCap = 32
	melWindowSize = 76
	melStepSize   = 8
	embeddingDim  = 96
	nEmbedFrames  = 16
	melBins       = 32
	nMelFrames    = 5

	// A detection fires on the max score over the last five frames
	// (about 400 ms), so a peak one frame early or late still counts.
	scoreWindowSize = 5

	// Only the newest embeddings reach the classifier; older slots are
	// zeroed so accumulated silence cannot suppress a detection.
	recentWindow = 5
)

// Config holds model paths and tuning for a Detector.
type Config struct {
	WakewordModel  string // e.g. "models/hey_smartlearn.onnx"
	MelspecModel   string // e.g. "bin/melspectrogram.onnx"
	EmbeddingModel string // e.g. "bin/embedding_model.onnx"
	OnnxLib        string // e.g. "bin/libonnxruntime.so"

	Threshold float64       // default 0.3
	Cooldown  time.Duration // default 1.5s
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 1500 * time.Millisecond
	}
}

// Validate reports missing model paths.
func (c Config) Validate() error {
	for name, path := range map[string]string{
		"wakeword model":  c.WakewordModel,
		"melspec model":   c.MelspecModel,
		"embedding model": c.EmbeddingModel,
		"onnx runtime":    c.OnnxLib,
	} {
		if path == "" {
			return fmt.Errorf("wakeword: %s path is required", name)
		}
	}
	return nil
}

// inference runs one stage of the model chain. *models implements it on
// ONNX Runtime; tests substitute a scripted one.
type inference interface {
	// Melspec converts one chunk of samples into nMelFrames*melBins values.
	Melspec(chunk []int16) ([]float32, error)
	// Embed turns melWindowSize mel frames into one embedding.
	Embed(mel []float32) ([]float32, error)
	// Score classifies nEmbedFrames embeddings.
	Score(embeddings []float32) (float32, error)
	Close()
}

// Detector listens on a Source and calls onWake when the wake word is heard.
type Detector struct {
	cfg  Config
	src  audio.Source
	log  *logger.Logger
	open func(Config) (inference, error)
	now  func() time.Time

	mu         sync.Mutex
	paused     bool
	needsReset bool
}

var _ domain.WakeSource = (*Detector)(nil)

// New creates a Detector reading from src. Call Run to start listening.
func New(cfg Config, src audio.Source, log *logger.Logger) *Detector {
	cfg.defaults()
	return &Detector{
		cfg:  cfg,
		src:  src,
		log:  log,
		open: func(c Config) (inference, error) { return openModels(c, log) },
		now:  time.Now,
	}
}

// Pause stops scoring, e.g. while the reply plays so the speaker output
// cannot wake the device.
func (d *Detector) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

// Resume re-enables scoring and flushes pipeline state from before the pause.
func (d *Detector) Resume() {
	d.mu.Lock()
	d.paused = false
	d.needsReset = true
	d.mu.Unlock()
}

func (d *Detector) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// takeReset returns true once after each Resume.
func (d *Detector) takeReset() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.needsReset {
		d.needsReset = false
		return true
	}
	return false
}

// Run loads the models and scores audio until ctx is cancelled.
func (d *Detector) Run(ctx context.Context, onWake func()) error {
	inf, err := d.open(d.cfg)
	if err != nil {
		d.log.Error("wakeword: load models: %v", err)
		return err
	}
	defer inf.Close()

	frames := make(chan []int16, audioQueueCap)
	var drops atomic.Int64
	cancel := d.src.Subscribe(func(pcm []byte) {
		select {
		case frames <- samples(pcm):
		default:
			drops.Add(1)
		}
	})
	defer cancel()
	d.log.Debug("wakeword: listening (chunk=%d, threshold=%.2f)", chunkSamples, d.cfg.Threshold)

	p := newPipeline(inf, newScorer(d.cfg.Threshold, d.cfg.Cooldown))
	for {
		select {
		case <-ctx.Done():
			if n := drops.Load(); n > 0 {
				d.log.Debug("wakeword: dropped %d frames", n)
			}
			return ctx.Err()

		case frame := <-frames:
			if d.isPaused() {
				continue
			}
			if d.takeReset() {
				p.reset()
				d.log.Debug("wakeword: pipeline reset after resume")
			}
			if p.feed(frame, d.now(), d.log) {
				d.log.Info("wakeword: detected")
				if onWake != nil {
					onWake()
				}
			}
		}
	}
}

// samples decodes little-endian 16-bit PCM.
func samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// pipeline buffers audio into chunks, mel frames and embeddings.
type pipeline struct {
	inf    inference
	score  *scorer
	rem    []int16
	mel    []float32
	embeds []float32
	input  []float32
}

func newPipeline(inf inference, s *scorer) *pipeline {
	return &pipeline{
		inf:    inf,
		score:  s,
		rem:    make([]int16, 0, chunkSamples*2),
		mel:    make([]float32, 0, 300*melBins),
		embeds: make([]float32, nEmbedFrames*embeddingDim),
		input:  make([]float32, nEmbedFrames*embeddingDim),
	}
}

func (p *pipeline) reset() {
	p.rem = p.rem[:0]
	p.mel = p.mel[:0]
	clear(p.embeds)
	p.score.reset()
}

// feed consumes frame and reports whether a detection fired.
func (p *pipeline) feed(frame []int16, now time.Time, log *logger.Logger) bool {
	p.rem = append(p.rem, frame...)
	detected := false

	for len(p.rem) >= chunkSamples {
		mel, err := p.inf.Melspec(p.rem[:chunkSamples])
		n := copy(p.rem, p.rem[chunkSamples:])
		p.rem = p.rem[:n]
		if err != nil {
			log.Error("wakeword: melspec: %v", err)
			continue
		}
		for _, v := range mel {
			p.mel = append(p.mel, v/10.0+2.0)
		}

		if !p.embed(log) {
			continue
		}

		padSlots := nEmbedFrames - recentWindow
		clear(p.input[:padSlots*embeddingDim])
		copy(p.input[padSlots*embeddingDim:], p.embeds[padSlots*embeddingDim:])
		s, err := p.inf.Score(p.input)
		if err != nil {
			log.Error("wakeword: score: %v", err)
			continue
		}
		if p.score.add(s, now) {
			detected = true
		}
	}
	return detected
}

// embed slides the embedding window over the buffered mel frames and
// reports whether at least one new embedding was produced.
func (p *pipeline) embed(log *logger.Logger) bool {
	fresh := false
	for len(p.mel)/melBins >= melWindowSize {
		e, err := p.inf.Embed(p.mel[:melWindowSize*melBins])
		if err != nil {
			log.Error("wakeword: embed: %v", err)
			break
		}
		copy(p.embeds, p.embeds[embeddingDim:])
		copy(p.embeds[(nEmbedFrames-1)*embeddingDim:], e[:embeddingDim])
		fresh = true

		n := copy(p.mel, p.mel[melStepSize*melBins:])
		p.mel = p.mel[:n]
	}
	if total := len(p.mel) / melBins; total > melWindowSize {
		excess := (total - melWindowSize) * melBins
		n := copy(p.mel, p.mel[excess:])
		p.mel = p.mel[:n]
	}
	return fresh
}

// scorer applies the trailing-window threshold and the cooldown.
type scorer struct {
	threshold float64
	cooldown  time.Duration
	window    [scoreWindowSize]float32
	next      int
	last      time.Time
}

func newScorer(threshold float64, cooldown time.Duration) *scorer {
	return &scorer{threshold: threshold, cooldown: cooldown}
}

func (s *scorer) reset() {
	s.window = [scoreWindowSize]float32{}
	s.next = 0
}

// add records score and reports a detection.
func (s *scorer) add(score float32, now time.Time) bool {
	s.window[s.next%scoreWindowSize] = score
	s.next++

	var peak float32
	for _, v := range s.window {
		peak = max(peak, v)
	}
	if float64(peak) < s.threshold || now.Sub(s.last) <= s.cooldown {
		return false
	}
	s.last = now
	s.reset()
	return true
}
