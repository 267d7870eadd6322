package speech

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// DefaultWakePhrases are matched case-insensitively anywhere in a probe.
var DefaultWakePhrases = []string{
	"hi smart learn",
	"hey smart learn",
	"smart learn",
	"smartlearn",
	"hi, smart learn",
	"hey, smart learn",
}

// annotation matches whisper's environmental notes such as "(music)" or
// "[BLANK_AUDIO]".
var annotation = regexp.MustCompile(`[\(\[][a-zA-Z_][a-zA-Z_\s]*[\)\]]`)

// timestamp matches a leading "[00:00:00.000 --> 00:00:03.000]" prefix.
var timestamp = regexp.MustCompile(`^\[[0-9:.\s\->]+\]\s*`)

// hallucinations are what whisper tends to produce on silence.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}

// PhraseOption configures a PhraseSpotter.
type PhraseOption func(*PhraseSpotter)

// WithWakePhrases overrides the default wake phrases.
func WithWakePhrases(phrases ...string) PhraseOption {
	return func(p *PhraseSpotter) { p.phrases = phrases }
}

// WithProbeDuration sets the length of each recorded probe.
func WithProbeDuration(d time.Duration) PhraseOption {
	return func(p *PhraseSpotter) { p.probe = d }
}

// WithTempDir sets the directory whisper writes its WAV probes to.
func WithTempDir(dir string) PhraseOption {
	return func(p *PhraseSpotter) { p.tempDir = dir }
}

// WithProbe replaces the whisper recorder; used by tests.
func WithProbe(fn func(ctx context.Context, d time.Duration) string) PhraseOption {
	return func(p *PhraseSpotter) { p.listen = fn }
}

// PhraseSpotter is a wake source that records short probes with a local
// whisper.cpp model and fires when one contains a wake phrase.
type PhraseSpotter struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger

	phrases []string
	probe   time.Duration
	listen  func(ctx context.Context, d time.Duration) string

	mu     sync.Mutex
	paused bool
}

var _ domain.WakeSource = (*PhraseSpotter)(nil)

// NewPhraseSpotter creates a wake-phrase listener.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewPhraseSpotter(whisperBin, modelPath string, log *logger.Logger, opts ...PhraseOption) *PhraseSpotter {
	p := &PhraseSpotter{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".smartlearn-stt",
		log:        log,
		phrases:    DefaultWakePhrases,
		probe:      3 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.listen == nil {
		if _, err := exec.LookPath(p.whisperBin); err != nil {
			log.Error("phrase: whisper binary %q not found in PATH: %v", p.whisperBin, err)
		}
		p.listen = p.recordProbe
	}
	return p
}

// Pause stops probing, e.g. while the reply plays.
func (p *PhraseSpotter) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	p.log.Debug("phrase: paused")
}

// Resume re-enables probing.
func (p *PhraseSpotter) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.log.Debug("phrase: resumed")
}

func (p *PhraseSpotter) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Run probes until ctx is cancelled, calling onWake on every match.
func (p *PhraseSpotter) Run(ctx context.Context, onWake func()) error {
	p.log.Info("phrase: started (probe=%s, phrases=%v)", p.probe, p.phrases)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("phrase: stopped")
			return ctx.Err()
		default:
		}

		if p.isPaused() {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
			}
			continue
		}

		heard := cleanTranscript(p.listen(ctx, p.probe))
		if heard == "" || p.isPaused() {
			continue
		}
		p.log.Debug("phrase: heard %q", heard)

		if p.matches(heard) {
			p.log.Info("phrase: wake phrase in %q", heard)
			onWake()
		}
	}
}

func (p *PhraseSpotter) matches(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range p.phrases {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// recordProbe records one clip of length d and returns whisper's text.
func (p *PhraseSpotter) recordProbe(ctx context.Context, d time.Duration) string {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	verbose := p.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(p.whisperBin, p.modelPath, p.tempDir, "wav", func(text string) {
		result = text
		wg.Done()
	}, verbose)
	if err != nil {
		p.log.Error("phrase: transcriber init failed: %v", err)
		backoff(ctx, 2*time.Second)
		return ""
	}

	if err := t.Start(); err != nil {
		p.log.Error("phrase: recording start failed: %v", err)
		backoff(ctx, 2*time.Second)
		return ""
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if ctx.Err() != nil {
		return ""
	}
	return result
}

func backoff(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// cleanTranscript flattens whitespace and strips whisper artefacts:
// timestamps, bracketed annotations and the usual silence hallucinations.
func cleanTranscript(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestamp.ReplaceAllString(s, "")
	s = annotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if lower == h {
			return ""
		}
	}
	return s
}
