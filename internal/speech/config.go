// Package speech talks to the OpenAI-compatible audio endpoints the device
// uses for speech-to-text and text-to-speech, caches synthesized replies,
// and spots a local wake phrase with whisper.cpp.
package speech

import (
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

// DefaultVoice is the synthesis voice used when none is configured.
const DefaultVoice = domain.DefaultVoice

// Request defaults.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultTranscribeModel   = "whisper-1"
	DefaultSpeechModel       = "tts-1"
	DefaultLanguage          = "en"
	DefaultTemperature       = 0.2
	DefaultSpeed             = 1.0
	DefaultSpeechFormat      = "wav"
	defaultRequestTimeout    = 30 * time.Second
	transcriptionServiceName = "transcription"
	speechServiceName        = "speech"
)
