package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNoSurface        = errors.New("display surface is missing")
	ErrNotConfigured    = errors.New("service is not configured")
	ErrEmptyResult      = errors.New("service returned an empty result")
	ErrSentinelResponse = errors.New("service returned an error sentinel")
	ErrStructuredError  = errors.New("service returned a structured error payload")
	ErrNoSpeech         = errors.New("no speech captured")
)

// Service sentinel strings. Some backends answer with these verbatim
// instead of a proper error status.
const (
	SentinelServerError    = "server_error"
	SentinelInvalidRequest = "invalid_request_error"
)

// IsSentinel reports whether text is one of the known error sentinels.
func IsSentinel(text string) bool {
	return text == SentinelServerError || text == SentinelInvalidRequest
}

// StageKind classifies where a voice turn failed.
type StageKind int

const (
	TranscriptionFailed StageKind = iota
	AnswerUnavailable
	SynthesisFailed
	PlaybackFailed
)

// String returns the stage failure name.
func (k StageKind) String() string {
	switch k {
	case TranscriptionFailed:
		return "TranscriptionFailed"
	case AnswerUnavailable:
		return "AnswerUnavailable"
	case SynthesisFailed:
		return "SynthesisFailed"
	case PlaybackFailed:
		return "PlaybackFailed"
	default:
		return "Unknown"
	}
}

// StageError is a terminal failure of one pipeline stage. Label is the
// user-facing text shown before returning to sleep; empty keeps the
// current label.
type StageError struct {
	Kind  StageKind
	Label string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ServiceError is a non-2xx answer from a remote service. Body holds the
// raw payload, which for OpenAI-style APIs is a JSON error object.
type ServiceError struct {
	Service string
	Status  int
	Body    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}

// Structured reports whether the body carries an error object with a code
// key. A null code still counts.
func (e *ServiceError) Structured() bool {
	var payload struct {
		Error map[string]json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err != nil {
		return false
	}
	_, ok := payload.Error["code"]
	return ok
}

// Message returns error.message from a structured body, or the raw body.
func (e *ServiceError) Message() string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return e.Body
}
