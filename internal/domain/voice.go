package domain

import "slices"

// DefaultVoice is the synthesis voice used when none is configured.
const DefaultVoice = "shimmer"

// Voices lists the voices the speech endpoint accepts.
// Male: alloy, echo, onyx. Female: fable, nova, shimmer.
var Voices = []string{"alloy", "echo", "onyx", "fable", "nova", "shimmer"}

// ValidVoice reports whether v is a known voice.
func ValidVoice(v string) bool {
	return slices.Contains(Voices, v)
}
