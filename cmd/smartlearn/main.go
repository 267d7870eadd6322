// SmartLearn is a voice question-answering assistant with a terminal face.
//
// Usage:
//
//	smartlearn [-config smartlearn.yaml] [-verbose] [-quiet] [-wake key|phrase|onnx] [-wav question.wav]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hammamikhairi/smartlearn/internal/audio"
	"github.com/hammamikhairi/smartlearn/internal/config"
	"github.com/hammamikhairi/smartlearn/internal/display"
	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/kb"
	"github.com/hammamikhairi/smartlearn/internal/logger"
	"github.com/hammamikhairi/smartlearn/internal/metrics"
	"github.com/hammamikhairi/smartlearn/internal/netcheck"
	"github.com/hammamikhairi/smartlearn/internal/panel"
	"github.com/hammamikhairi/smartlearn/internal/pipeline"
	"github.com/hammamikhairi/smartlearn/internal/speech"
	"github.com/hammamikhairi/smartlearn/internal/timer"
	"github.com/hammamikhairi/smartlearn/internal/wakeword"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "smartlearn: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "smartlearn.yaml", "YAML settings file (missing file uses defaults)")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading SMARTLEARN_* variables")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	wavPath := flag.String("wav", "", "run a single turn from this WAV file instead of listening")
	wakeMode := flag.String("wake", "", "wake source: key, phrase or onnx")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	settings, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *wakeMode != "" {
		settings.Wake.Mode = *wakeMode
	}
	if *metricsAddr != "" {
		settings.MetricsAddr = *metricsAddr
	}
	if *logFile != "" {
		settings.LogFile = *logFile
	}
	switch {
	case *quiet:
		settings.LogLevel = "off"
	case *verbose:
		settings.LogLevel = "verbose"
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	// Logs go to a file by default so the terminal face stays clean.
	logOut, closeLog := openLog(settings.LogFile)
	defer closeLog()

	// Third-party libraries such as the whisper transcriber log through
	// the standard library.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	level, _ := logger.ParseLevel(settings.LogLevel)
	log := logger.New(level, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	theme, _ := display.ParseTheme(settings.Theme)
	surface := display.NewSurface(log.Named("display"), display.WithTheme(theme))

	timers := timer.New(surface, log.Named("timer"))
	timers.Start(ctx)
	defer timers.Stop()

	collector := metrics.New(log.Named("metrics"))
	if settings.MetricsAddr != "" {
		go func() {
			if err := collector.Serve(ctx, settings.MetricsAddr); err != nil {
				log.Error("metrics: %v", err)
			}
		}()
	}

	panels, err := panel.New(surface, timers, log.Named("panel"), panel.WithObserver(collector))
	if err != nil {
		return err
	}

	prober := netcheck.New(settings.ConnectivityProbe, log.Named("netcheck"))
	prober.Start(ctx)
	defer prober.Stop()

	setup, err := panel.NewSetupFlow(surface, timers, prober, log.Named("setup"))
	if err != nil {
		return err
	}
	surface.Bind("enter", setup.GuideJump)

	player, err := audio.NewPlayer(log.Named("player"))
	if err != nil {
		return err
	}

	stt := speech.NewTranscriptionClient(settings.BaseURL, settings.APIKey, log.Named("stt"), nil,
		speech.WithLanguage(settings.STTLanguage),
		speech.WithTemperature(settings.STTTemperature),
	)
	tts := speech.NewSynthesisClient(settings.BaseURL, settings.APIKey, log.Named("tts"), nil,
		speech.WithSpeechModel(settings.TTSModel),
		speech.WithSpeed(settings.TTSSpeed),
	)
	cache := speech.NewAudioCache(settings.Cache.Dir, settings.Cache.DiskWrite, log.Named("cache"))
	answers := kb.New(settings.KBURL, log.Named("kb"))
	if !answers.Configured() {
		log.Warn("kb_url is empty: every question will be answered with an apology")
	}

	turns := pipeline.New(panels, stt, answers, speech.NewCachedSynthesizer(tts, cache), player, log.Named("pipeline"),
		pipeline.WithVoice(settings.TTSVoice),
		pipeline.WithFallbackAudio(settings.FallbackAudio),
		pipeline.WithObserver(collector),
	)

	if *wavPath != "" {
		wav, err := os.ReadFile(*wavPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", *wavPath, err)
		}
		player.OnPlaybackStarted(panels.PlaybackStarted)
		player.OnPlaybackFinished(panels.PlaybackFinished)
		go func() {
			if err := turns.Run(ctx, wav); err != nil {
				log.Warn("one-shot turn: %v", err)
			}
		}()
		return runSurface(ctx, surface, log)
	}

	capture, err := audio.OpenCapture(audio.CaptureFormat, log.Named("capture"))
	if err != nil {
		return err
	}
	defer capture.Close()

	wake, err := newWakeSource(settings, surface, capture, log.Named("wake"))
	if err != nil {
		return err
	}

	// The wake source is deaf while the reply plays so the speaker cannot
	// trigger a new turn.
	player.OnPlaybackStarted(func() {
		wake.Pause()
		panels.PlaybackStarted()
	})
	player.OnPlaybackFinished(func() {
		panels.PlaybackFinished()
		wake.Resume()
	})

	recorder := audio.NewRecorder(capture, audio.CaptureFormat, log.Named("recorder"),
		audio.WithMaxDuration(settings.Record.MaxDuration),
		audio.WithTrailingSilence(settings.Record.TrailingSilence),
		audio.WithSilenceThreshold(settings.Record.SilenceThreshold),
	)
	trigger := pipeline.NewTrigger(wake, recorder, panels, turns, log.Named("trigger"))
	go func() {
		if err := trigger.Run(ctx); err != nil {
			log.Error("wake source stopped: %v", err)
		}
	}()

	log.Info("smartlearn ready (wake=%s, voice=%s)", settings.Wake.Mode, settings.TTSVoice)
	return runSurface(ctx, surface, log)
}

func newWakeSource(s config.Settings, surface *display.Surface, capture *audio.Capture, log *logger.Logger) (domain.WakeSource, error) {
	switch s.Wake.Mode {
	case config.WakePhrase:
		if _, err := os.Stat(s.Wake.WhisperModel); err != nil {
			return nil, fmt.Errorf("whisper model: %w", err)
		}
		var opts []speech.PhraseOption
		if len(s.Wake.Phrases) > 0 {
			opts = append(opts, speech.WithWakePhrases(s.Wake.Phrases...))
		}
		return speech.NewPhraseSpotter(s.Wake.WhisperBin, s.Wake.WhisperModel, log, opts...), nil

	case config.WakeONNX:
		cfg := wakeword.Config{
			WakewordModel:  s.Wake.WakewordModel,
			MelspecModel:   s.Wake.MelspecModel,
			EmbeddingModel: s.Wake.EmbeddingModel,
			OnnxLib:        s.Wake.OnnxLib,
			Threshold:      s.Wake.Threshold,
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return wakeword.New(cfg, capture, log), nil

	default:
		k := display.NewKeyWake()
		surface.Bind(" ", k.Press)
		return k, nil
	}
}

// runSurface blocks on the terminal UI, then cancels everything else.
func runSurface(ctx context.Context, surface *display.Surface, log *logger.Logger) error {
	err := surface.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("shutting down")
	return err
}

func openLog(path string) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return os.Stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr, func() {}
	}
	return f, func() { _ = f.Close() }
}
