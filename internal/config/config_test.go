package config

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, "shimmer", s.TTSVoice)
	assert.Equal(t, "assets/tts_failed.wav", s.FallbackAudio)
	assert.Empty(t, s.KBURL)
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().BaseURL, s.BaseURL)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "smartlearn.yaml", `
ssid: home
kb_url: http://kb.local/ask
tts_voice: nova
theme: light
record:
  max_duration: 8s
  silence_threshold: 0.05
wake:
  mode: phrase
  phrases: [hey smart, smartlearn]
`)
	s, err := Load(path, "")
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, "home", s.SSID)
	assert.Equal(t, "http://kb.local/ask", s.KBURL)
	assert.Equal(t, "nova", s.TTSVoice)
	assert.Equal(t, "light", s.Theme)
	assert.Equal(t, 8*time.Second, s.Record.MaxDuration)
	assert.Equal(t, 1200*time.Millisecond, s.Record.TrailingSilence, "unset keys keep defaults")
	assert.Equal(t, []string{"hey smart", "smartlearn"}, s.Wake.Phrases)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "theme: [unterminated"), "")
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "smartlearn.yaml", "api_key: from-file\ntts_voice: nova\n")
	env := writeFile(t, ".env", "SMARTLEARN_API_KEY=from-dotenv\n")
	t.Setenv(EnvTTSVoice, " echo ")
	// Registered for cleanup so the dotenv value does not leak.
	t.Setenv(EnvAPIKey, "")
	require.NoError(t, os.Unsetenv(EnvAPIKey))

	s, err := Load(path, env)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.APIKey)
	assert.Equal(t, "echo", s.TTSVoice)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"voice", func(s *Settings) { s.TTSVoice = "robot" }},
		{"theme", func(s *Settings) { s.Theme = "neon" }},
		{"log level", func(s *Settings) { s.LogLevel = "loud" }},
		{"wake mode", func(s *Settings) { s.Wake.Mode = "clap" }},
		{"onnx paths", func(s *Settings) { s.Wake.Mode = WakeONNX }},
		{"phrase model", func(s *Settings) { s.Wake.Mode = WakePhrase; s.Wake.WhisperModel = "" }},
		{"speed", func(s *Settings) { s.TTSSpeed = 0 }},
		{"record", func(s *Settings) { s.Record.MaxDuration = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

// Loading settings must not pull in the cgo audio and whisper stack.
func TestConfigDoesNotImportSpeech(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "config.go", nil, parser.ImportsOnly)
	require.NoError(t, err)
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		assert.NotEqual(t, "github.com/hammamikhairi/smartlearn/internal/speech", path)
	}
}
