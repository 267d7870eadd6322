package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidVoice(t *testing.T) {
	assert.True(t, ValidVoice(DefaultVoice))
	assert.True(t, ValidVoice("onyx"))
	assert.False(t, ValidVoice("en-US-AvaNeural"))
	assert.False(t, ValidVoice(""))
}

func TestServiceErrorStructured(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"error":{"message":"bad","type":"invalid_request_error","param":null,"code":null}}`, true},
		{`{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`, true},
		{`{"error":{"code":429}}`, true},
		{`{"error":{"message":"no code here"}}`, false},
		{`{"error":null}`, false},
		{`server_error`, false},
		{``, false},
	}
	for _, tt := range tests {
		e := &ServiceError{Service: "stt", Status: 400, Body: tt.body}
		assert.Equal(t, tt.want, e.Structured(), tt.body)
	}
}

func TestServiceErrorMessage(t *testing.T) {
	e := &ServiceError{Body: `{"error":{"message":"Invalid file format.","code":null}}`}
	assert.Equal(t, "Invalid file format.", e.Message())

	e = &ServiceError{Body: "server_error"}
	assert.Equal(t, "server_error", e.Message())
}
