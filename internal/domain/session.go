package domain

// PlaybackProgress tracks where the current reply is in its lifecycle:
// content received, audio began, audio ended.
//
// AudioEnded implies AudioStarted implies Captured, for the same reply.
type PlaybackProgress struct {
	Captured      bool
	AudioStarted  bool
	AudioEnded    bool
	ContentHeight int
}

// Reset clears all three lifecycle flags.
func (p *PlaybackProgress) Reset() {
	p.Captured = false
	p.AudioStarted = false
	p.AudioEnded = false
}

// Valid reports whether the flag ordering invariant holds.
func (p PlaybackProgress) Valid() bool {
	if p.AudioEnded && !p.AudioStarted {
		return false
	}
	if p.AudioStarted && !p.Captured {
		return false
	}
	return true
}

// InteractionResult is threaded through one voice turn. Each stage owns its
// output until the next stage consumes it; Release drops everything.
type InteractionResult struct {
	TurnID           string
	Transcript       string
	Answer           string
	SynthesizedAudio []byte
}

// Release drops all intermediate buffers. Safe to call more than once.
func (r *InteractionResult) Release() {
	r.Transcript = ""
	r.Answer = ""
	r.SynthesizedAudio = nil
}

// ConnectivityStatus is the tri-state reported by the network layer.
type ConnectivityStatus int

const (
	ConnectivityConnecting ConnectivityStatus = iota
	ConnectivityConnected
	ConnectivityFailed
)

// String returns a human-readable connectivity status.
func (s ConnectivityStatus) String() string {
	switch s {
	case ConnectivityConnecting:
		return "connecting"
	case ConnectivityConnected:
		return "connected"
	case ConnectivityFailed:
		return "failed"
	default:
		return "unknown"
	}
}
