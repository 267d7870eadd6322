// Package pipeline runs one voice turn: transcribe the captured audio,
// answer it from the knowledge base, show the reply, synthesize it and
// hand it to the player. Any stage failure shows a short label and sends
// the session back to SLEEP after a fixed delay. Nothing is retried.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

const (
	// StatusFailureDelay is how long a failure label stays up before SLEEP.
	StatusFailureDelay = 2 * time.Second
	// SynthesisFailureDelay leaves the reply on screen while the fallback clip plays.
	SynthesisFailureDelay = 5 * StatusFailureDelay

	// SorryCannotUnderstand is shown when the question or answer is unusable.
	SorryCannotUnderstand = "Sorry, I can't understand."

	// OutcomeOK labels a turn that reached playback.
	OutcomeOK = "ok"
)

// Panels is the part of the panel controller the pipeline drives.
type Panels interface {
	ShowPanel(target domain.Panel, delay time.Duration)
	SetLabel(label domain.Label, text string)
	StartSubtitle(text string)
}

// Observer receives per-stage and per-turn results.
type Observer interface {
	StageCompleted(stage string, elapsed time.Duration, err error)
	TurnCompleted(outcome string)
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithVoice sets the synthesis voice.
func WithVoice(voice string) Option {
	return func(p *Pipeline) {
		p.voice = voice
	}
}

// WithFallbackAudio sets the clip played when synthesis fails. A missing
// file is skipped silently.
func WithFallbackAudio(path string) Option {
	return func(p *Pipeline) {
		p.fallback = path
	}
}

// WithObserver registers a stage/turn observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

// WithFileReader replaces os.ReadFile for the fallback clip.
func WithFileReader(read func(string) ([]byte, error)) Option {
	return func(p *Pipeline) {
		p.readFile = read
	}
}

// Pipeline orchestrates one voice turn at a time.
type Pipeline struct {
	panels Panels
	stt    domain.Transcriber
	kb     domain.Answerer
	tts    domain.Synthesizer
	player domain.AudioPlayer
	log    *logger.Logger

	voice    string
	fallback string
	observer Observer
	tracer   trace.Tracer
	readFile func(string) ([]byte, error)
}

// New creates a pipeline. kb may be nil, in which case every turn fails at
// the answer stage without a request.
func New(panels Panels, stt domain.Transcriber, kb domain.Answerer, tts domain.Synthesizer, player domain.AudioPlayer, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		panels:   panels,
		stt:      stt,
		kb:       kb,
		tts:      tts,
		player:   player,
		log:      log,
		voice:    "shimmer",
		tracer:   otel.Tracer("github.com/hammamikhairi/smartlearn/internal/pipeline"),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// turn is the pipeline's private view of one interaction. It owns the
// captured audio until transcription consumes it.
type turn struct {
	domain.InteractionResult
	audio []byte
}

func (t *turn) release() {
	t.audio = nil
	t.Release()
}

// Run executes one turn over already-captured WAV audio. It returns the
// failing stage's *domain.StageError, or nil once audio is handed to the
// player. Playback progress arrives later through the player callbacks.
func (p *Pipeline) Run(ctx context.Context, audio []byte) error {
	t := &turn{
		InteractionResult: domain.InteractionResult{TurnID: uuid.NewString()},
		audio:             audio,
	}
	defer t.release()

	ctx, span := p.tracer.Start(ctx, "turn", trace.WithAttributes(attribute.String("turn.id", t.TurnID)))
	defer span.End()

	p.log.Info("turn %s: started (%d bytes of audio)", t.TurnID, len(audio))
	p.panels.ShowPanel(domain.PanelGet, 0)

	err := p.runStages(ctx, t)

	outcome := OutcomeOK
	var serr *domain.StageError
	if errors.As(err, &serr) {
		outcome = serr.Kind.String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if p.observer != nil {
		p.observer.TurnCompleted(outcome)
	}
	p.log.Info("turn %s: finished (%s)", t.TurnID, outcome)
	return err
}

func (p *Pipeline) runStages(ctx context.Context, t *turn) error {
	for _, st := range p.stages() {
		stageCtx, span := p.tracer.Start(ctx, st.name)
		start := time.Now()
		err := st.run(stageCtx, t)
		elapsed := time.Since(start)

		if p.observer != nil {
			p.observer.StageCompleted(st.name, elapsed, err)
		}

		if err == nil {
			span.End()
			continue
		}

		serr := asStageError(st.kind, err)
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Kind.String())
		span.End()

		p.log.Error("turn %s: stage %s failed after %s: %v", t.TurnID, st.name, elapsed, serr)
		p.recoverFrom(ctx, st, serr)
		return serr
	}
	return nil
}

// recoverFrom performs the one recovery every stage shares: explanatory
// label, delayed SLEEP, then any stage-specific fallback.
func (p *Pipeline) recoverFrom(ctx context.Context, st stage, serr *domain.StageError) {
	if serr.Label != "" {
		p.panels.SetLabel(domain.LabelListenSpeak, serr.Label)
	}
	p.panels.ShowPanel(domain.PanelSleep, st.delay)
	if st.onFailure != nil {
		st.onFailure(ctx)
	}
}

func asStageError(kind domain.StageKind, err error) *domain.StageError {
	var serr *domain.StageError
	if errors.As(err, &serr) {
		serr.Kind = kind
		return serr
	}
	return &domain.StageError{Kind: kind, Err: err}
}
