// Package config loads device settings.
//
// Precedence, later wins: built-in defaults, the YAML file, a .env file,
// then SMARTLEARN_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// Wake modes.
const (
	WakeKey    = "key"
	WakePhrase = "phrase"
	WakeONNX   = "onnx"
)

// Environment variables read by Load.
const (
	EnvAPIKey   = "SMARTLEARN_API_KEY"
	EnvBaseURL  = "SMARTLEARN_BASE_URL"
	EnvKBURL    = "SMARTLEARN_KB_URL"
	EnvTTSVoice = "SMARTLEARN_TTS_VOICE"
	EnvTheme    = "SMARTLEARN_THEME"
)

// Settings mirrors the parameters stored on the device plus host tuning.
type Settings struct {
	// Network credentials are informational; joining a network is up to the OS.
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`

	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	KBURL    string `yaml:"kb_url"`
	TTSVoice string `yaml:"tts_voice"`
	Theme    string `yaml:"theme"`

	STTLanguage    string  `yaml:"stt_language"`
	STTTemperature float64 `yaml:"stt_temperature"`
	TTSModel       string  `yaml:"tts_model"`
	TTSSpeed       float64 `yaml:"tts_speed"`

	FallbackAudio     string `yaml:"fallback_audio"`
	ConnectivityProbe string `yaml:"connectivity_probe"`
	MetricsAddr       string `yaml:"metrics_addr"`
	LogFile           string `yaml:"log_file"`
	LogLevel          string `yaml:"log_level"`

	Cache  CacheSettings  `yaml:"cache"`
	Wake   WakeSettings   `yaml:"wake"`
	Record RecordSettings `yaml:"record"`
}

// CacheSettings configures the synthesized audio cache.
type CacheSettings struct {
	Dir       string `yaml:"dir"`
	DiskWrite bool   `yaml:"disk_write"`
}

// WakeSettings selects and tunes the wake source.
type WakeSettings struct {
	Mode string `yaml:"mode"`

	WhisperBin   string   `yaml:"whisper_bin"`
	WhisperModel string   `yaml:"whisper_model"`
	Phrases      []string `yaml:"phrases"`

	OnnxLib        string  `yaml:"onnx_lib"`
	MelspecModel   string  `yaml:"melspec_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	WakewordModel  string  `yaml:"wakeword_model"`
	Threshold      float64 `yaml:"threshold"`
}

// RecordSettings tunes utterance capture.
type RecordSettings struct {
	MaxDuration      time.Duration `yaml:"max_duration"`
	TrailingSilence  time.Duration `yaml:"trailing_silence"`
	SilenceThreshold float64       `yaml:"silence_threshold"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		BaseURL:           "https://api.openai.com/v1",
		TTSVoice:          domain.DefaultVoice,
		Theme:             "dark",
		STTLanguage:       "en",
		STTTemperature:    0.2,
		TTSModel:          "tts-1",
		TTSSpeed:          1.0,
		FallbackAudio:     "assets/tts_failed.wav",
		ConnectivityProbe: "1.1.1.1:53",
		LogFile:           ".smartlearn-logs/smartlearn.log",
		LogLevel:          "normal",
		Cache:             CacheSettings{Dir: ".smartlearn-cache", DiskWrite: true},
		Wake: WakeSettings{
			Mode:         WakeKey,
			WhisperBin:   "whisper-cli",
			WhisperModel: "bin/ggml-small.bin",
			Threshold:    0.3,
		},
		Record: RecordSettings{
			MaxDuration:      15 * time.Second,
			TrailingSilence:  1200 * time.Millisecond,
			SilenceThreshold: 0.02,
		},
	}
}

// Load reads path over the defaults, then the .env file at envFile, then
// the environment. Missing files are not an error.
func Load(path, envFile string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return s, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return s, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	s.ApplyEnv(os.LookupEnv)
	return s, nil
}

// ApplyEnv overrides fields from SMARTLEARN_* variables.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		EnvAPIKey:   &s.APIKey,
		EnvBaseURL:  &s.BaseURL,
		EnvKBURL:    &s.KBURL,
		EnvTTSVoice: &s.TTSVoice,
		EnvTheme:    &s.Theme,
	} {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
}

// Validate rejects settings the device cannot run with. An empty kb_url is
// valid: the answer stage then fails without a request.
func (s Settings) Validate() error {
	var errs []error
	if !domain.ValidVoice(s.TTSVoice) {
		errs = append(errs, fmt.Errorf("unknown tts_voice %q (want one of %s)", s.TTSVoice, strings.Join(domain.Voices, ", ")))
	}
	if s.Theme != "dark" && s.Theme != "light" {
		errs = append(errs, fmt.Errorf("unknown theme %q", s.Theme))
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if s.TTSSpeed <= 0 {
		errs = append(errs, fmt.Errorf("tts_speed must be positive, got %v", s.TTSSpeed))
	}
	if s.Record.MaxDuration <= 0 || s.Record.TrailingSilence <= 0 {
		errs = append(errs, errors.New("record durations must be positive"))
	}

	switch s.Wake.Mode {
	case WakeKey:
	case WakePhrase:
		if s.Wake.WhisperModel == "" {
			errs = append(errs, errors.New("wake.whisper_model is required for phrase mode"))
		}
	case WakeONNX:
		if s.Wake.OnnxLib == "" || s.Wake.MelspecModel == "" || s.Wake.EmbeddingModel == "" || s.Wake.WakewordModel == "" {
			errs = append(errs, errors.New("wake: onnx mode needs onnx_lib, melspec_model, embedding_model and wakeword_model"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown wake mode %q", s.Wake.Mode))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
