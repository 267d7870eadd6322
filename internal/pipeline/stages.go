package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

// structuredMarker flags an error object returned as a transcription.
const structuredMarker = `"code": `

type stage struct {
	name  string
	kind  domain.StageKind
	delay time.Duration
	run   func(ctx context.Context, t *turn) error
	// onFailure runs after the SLEEP transition has been scheduled.
	onFailure func(ctx context.Context)
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{name: "transcribe", kind: domain.TranscriptionFailed, delay: StatusFailureDelay, run: p.transcribe},
		{name: "answer", kind: domain.AnswerUnavailable, delay: StatusFailureDelay, run: p.answer},
		{name: "display", kind: domain.AnswerUnavailable, delay: StatusFailureDelay, run: p.display},
		{name: "synthesize", kind: domain.SynthesisFailed, delay: SynthesisFailureDelay, run: p.synthesize, onFailure: p.playFallback},
		{name: "play", kind: domain.PlaybackFailed, delay: 0, run: p.play},
	}
}

func fail(label string, err error) error {
	return &domain.StageError{Label: label, Err: err}
}

// ── Transcribe ──────────────────────────────────────────────────

func (p *Pipeline) transcribe(ctx context.Context, t *turn) error {
	text, err := p.stt.Transcribe(ctx, t.audio)
	t.audio = nil
	if err != nil {
		var svc *domain.ServiceError
		if errors.As(err, &svc) && svc.Structured() {
			return fail(svc.Body, fmt.Errorf("%w: %w", domain.ErrStructuredError, err))
		}
		return fail(domain.SentinelInvalidRequest, err)
	}

	switch {
	case strings.Contains(text, structuredMarker):
		return fail(text, domain.ErrStructuredError)
	case strings.TrimSpace(text) == "":
		return fail(SorryCannotUnderstand, domain.ErrEmptyResult)
	case domain.IsSentinel(text):
		return fail(SorryCannotUnderstand, fmt.Errorf("%w: %s", domain.ErrSentinelResponse, text))
	}

	t.Transcript = text
	p.log.Info("turn %s: heard %q", t.TurnID, text)
	p.panels.SetLabel(domain.LabelReplyQuestion, text)
	p.panels.SetLabel(domain.LabelListenSpeak, text)
	return nil
}

// ── Answer ──────────────────────────────────────────────────────

// configurable is implemented by answerers that can be left unconfigured.
type configurable interface {
	Configured() bool
}

func (p *Pipeline) answerConfigured() bool {
	if p.kb == nil {
		return false
	}
	if c, ok := p.kb.(configurable); ok {
		return c.Configured()
	}
	return true
}

func (p *Pipeline) answer(ctx context.Context, t *turn) error {
	if !p.answerConfigured() {
		return fail(SorryCannotUnderstand, fmt.Errorf("knowledge base: %w", domain.ErrNotConfigured))
	}

	answer, err := p.kb.Ask(ctx, t.Transcript)
	switch {
	case err != nil:
		return fail(SorryCannotUnderstand, err)
	case strings.TrimSpace(answer) == "":
		return fail(SorryCannotUnderstand, domain.ErrEmptyResult)
	case domain.IsSentinel(answer):
		return fail(SorryCannotUnderstand, fmt.Errorf("%w: %s", domain.ErrSentinelResponse, answer))
	}

	t.Answer = answer
	return nil
}

// ── Display ─────────────────────────────────────────────────────

func (p *Pipeline) display(_ context.Context, t *turn) error {
	p.panels.SetLabel(domain.LabelReplyQuestion, t.Transcript)
	p.panels.SetLabel(domain.LabelReplyContent, t.Answer)
	p.panels.ShowPanel(domain.PanelReply, 0)
	return nil
}

// ── Synthesize ──────────────────────────────────────────────────

func (p *Pipeline) synthesize(ctx context.Context, t *turn) error {
	audio, err := p.tts.Synthesize(ctx, t.Answer, p.voice)
	if err != nil {
		return fail("", err)
	}
	if len(audio) == 0 {
		return fail("", domain.ErrEmptyResult)
	}
	t.SynthesizedAudio = audio
	return nil
}

func (p *Pipeline) playFallback(context.Context) {
	if p.fallback == "" {
		return
	}
	clip, err := p.readFile(p.fallback)
	if err != nil {
		p.log.Debug("fallback clip unavailable: %v", err)
		return
	}
	if err := p.player.Play(clip); err != nil {
		p.log.Error("playing fallback clip: %v", err)
	}
}

// ── Play ────────────────────────────────────────────────────────

func (p *Pipeline) play(_ context.Context, t *turn) error {
	// The subtitle buffer takes its own copy and owns it from here.
	p.panels.StartSubtitle(t.Answer)
	t.Answer = ""

	audio := t.SynthesizedAudio
	t.SynthesizedAudio = nil
	if err := p.player.Play(audio); err != nil {
		return fail("", err)
	}
	return nil
}
