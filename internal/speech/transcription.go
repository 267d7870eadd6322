package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// TranscriptionOption configures the transcription client.
type TranscriptionOption func(*TranscriptionClient)

// WithLanguage sets the spoken language hint.
func WithLanguage(lang string) TranscriptionOption {
	return func(c *TranscriptionClient) { c.language = lang }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) TranscriptionOption {
	return func(c *TranscriptionClient) { c.temperature = t }
}

// WithTranscribeModel overrides the transcription model.
func WithTranscribeModel(model string) TranscriptionOption {
	return func(c *TranscriptionClient) { c.model = model }
}

// TranscriptionClient sends WAV audio to {base}/audio/transcriptions.
type TranscriptionClient struct {
	api
	model       string
	language    string
	temperature float64
}

var _ domain.Transcriber = (*TranscriptionClient)(nil)

// NewTranscriptionClient creates a speech-to-text client.
func NewTranscriptionClient(baseURL, apiKey string, log *logger.Logger, opts []ClientOption, topts ...TranscriptionOption) *TranscriptionClient {
	c := &TranscriptionClient{
		api:         newAPI(baseURL, apiKey, log, opts),
		model:       DefaultTranscribeModel,
		language:    DefaultLanguage,
		temperature: DefaultTemperature,
	}
	for _, o := range topts {
		o(c)
	}
	return c
}

// Transcribe uploads one WAV utterance and returns its text.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("transcription: form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("transcription: form file: %w", err)
	}
	fields := map[string]string{
		"model":           c.model,
		"response_format": "json",
		"language":        c.language,
		"temperature":     strconv.FormatFloat(c.temperature, 'f', -1, 64),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("transcription: field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcription: close form: %w", err)
	}

	c.log.Debug("transcription: uploading %d bytes of audio", len(audio))
	respBody, err := c.post(ctx, transcriptionServiceName, "audio/transcriptions", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		// Some gateways answer with plain text.
		return string(respBody), nil
	}
	c.log.Debug("transcription: %q", truncateForLog(result.Text, 80))
	return result.Text, nil
}
