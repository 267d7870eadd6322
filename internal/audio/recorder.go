package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// RecorderOption configures the recorder.
type RecorderOption func(*Recorder)

// WithMaxDuration caps one utterance.
func WithMaxDuration(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.maxDuration = d }
}

// WithTrailingSilence sets how much silence after speech ends the utterance.
func WithTrailingSilence(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.trailingSilence = d }
}

// WithSilenceThreshold sets the RMS level (0..1) below which audio is silence.
func WithSilenceThreshold(level float64) RecorderOption {
	return func(r *Recorder) { r.threshold = level }
}

// WithSpeechTimeout sets how long to wait for speech to begin.
func WithSpeechTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.speechTimeout = d }
}

// Recorder captures one utterance from a Source and returns it as WAV.
// Elapsed time is measured in captured samples, not wall time.
type Recorder struct {
	src    Source
	format Format
	log    *logger.Logger

	maxDuration     time.Duration
	trailingSilence time.Duration
	speechTimeout   time.Duration
	threshold       float64
}

var _ domain.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder reading src in format f.
func NewRecorder(src Source, f Format, log *logger.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		src:             src,
		format:          f,
		log:             log,
		maxDuration:     15 * time.Second,
		trailingSilence: 1200 * time.Millisecond,
		speechTimeout:   5 * time.Second,
		threshold:       0.02,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record blocks until the utterance ends, the maximum duration is reached
// or ctx is cancelled. It returns domain.ErrNoSpeech when nothing above
// the silence threshold was heard.
func (r *Recorder) Record(ctx context.Context) ([]byte, error) {
	chunks := make(chan []byte, 64)
	cancel := r.src.Subscribe(func(pcm []byte) {
		buf := make([]byte, len(pcm))
		copy(buf, pcm)
		select {
		case chunks <- buf:
		default:
		}
	})
	defer cancel()

	bytesPerSecond := r.format.SampleRate * r.format.Channels * r.format.BitsPerSample / 8
	toBytes := func(d time.Duration) int {
		return int(int64(bytesPerSecond) * int64(d) / int64(time.Second))
	}
	maxBytes := toBytes(r.maxDuration)
	silenceBytes := toBytes(r.trailingSilence)
	timeoutBytes := toBytes(r.speechTimeout)

	var pcm []byte
	heard := false
	quiet := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk := <-chunks:
			pcm = append(pcm, chunk...)
			if rms(chunk) >= r.threshold {
				heard = true
				quiet = 0
			} else {
				quiet += len(chunk)
			}
		}

		switch {
		case !heard && len(pcm) >= timeoutBytes:
			return nil, domain.ErrNoSpeech
		case heard && quiet >= silenceBytes:
			return r.finish(pcm, "trailing silence")
		case len(pcm) >= maxBytes:
			if !heard {
				return nil, domain.ErrNoSpeech
			}
			return r.finish(pcm, "max duration")
		}
	}
}

func (r *Recorder) finish(pcm []byte, why string) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: %w", domain.ErrNoSpeech)
	}
	r.log.Debug("recorder: %d bytes captured, stopped on %s", len(pcm), why)
	return EncodeWAV(pcm, r.format), nil
}

// rms returns the normalised root-mean-square level of 16-bit LE samples.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / math.MaxInt16
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
