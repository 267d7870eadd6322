package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// SynthesisOption configures the speech client.
type SynthesisOption func(*SynthesisClient)

// WithSpeechModel overrides the speech model.
func WithSpeechModel(model string) SynthesisOption {
	return func(c *SynthesisClient) { c.model = model }
}

// WithSpeed sets the playback speed multiplier requested from the service.
func WithSpeed(speed float64) SynthesisOption {
	return func(c *SynthesisClient) { c.speed = speed }
}

// SynthesisClient turns text into WAV audio via {base}/audio/speech.
type SynthesisClient struct {
	api
	model string
	speed float64
}

var _ domain.Synthesizer = (*SynthesisClient)(nil)

type speechPayload struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// NewSynthesisClient creates a text-to-speech client.
func NewSynthesisClient(baseURL, apiKey string, log *logger.Logger, opts []ClientOption, sopts ...SynthesisOption) *SynthesisClient {
	c := &SynthesisClient{
		api:   newAPI(baseURL, apiKey, log, opts),
		model: DefaultSpeechModel,
		speed: DefaultSpeed,
	}
	for _, o := range sopts {
		o(c)
	}
	return c
}

// Synthesize returns WAV audio for text spoken by voice.
func (c *SynthesisClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = DefaultVoice
	}
	jsonData, err := json.Marshal(speechPayload{
		Model:          c.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: DefaultSpeechFormat,
		Speed:          c.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal payload: %w", err)
	}

	c.log.Debug("speech: synthesizing %d chars with voice %s", len(text), voice)
	audio, err := c.post(ctx, speechServiceName, "audio/speech", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	c.log.Debug("speech: got %d bytes of audio", len(audio))
	return audio, nil
}
