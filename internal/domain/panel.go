// Package domain defines the core types and interfaces for the voice panel.
// All other packages depend on domain; domain depends on nothing.
package domain

// Panel is one of the four mutually exclusive visible states of the device.
type Panel int

const (
	// PanelSleep is the idle state. Initial state and the state every
	// failure converges to.
	PanelSleep Panel = iota
	// PanelListen is shown while the user is speaking.
	PanelListen
	// PanelGet is shown while the services are being queried.
	PanelGet
	// PanelReply shows the question, the answer and the speaking avatar.
	PanelReply
)

// Panels lists every panel in declaration order.
var Panels = []Panel{PanelSleep, PanelListen, PanelGet, PanelReply}

// String returns the panel name as it appears in logs.
func (p Panel) String() string {
	switch p {
	case PanelSleep:
		return "SLEEP"
	case PanelListen:
		return "LISTEN"
	case PanelGet:
		return "GET"
	case PanelReply:
		return "REPLY"
	default:
		return "UNKNOWN"
	}
}

// Object returns the surface object that holds the panel's content.
func (p Panel) Object() Object {
	switch p {
	case PanelListen:
		return ObjPanelListen
	case PanelGet:
		return ObjPanelGet
	case PanelReply:
		return ObjPanelReply
	default:
		return ObjPanelSleep
	}
}

// Avatar returns the avatar image object living on the panel.
func (p Panel) Avatar() Object {
	switch p {
	case PanelListen:
		return ObjAvatarListen
	case PanelGet:
		return ObjAvatarGet
	case PanelReply:
		return ObjAvatarReply
	default:
		return ObjAvatarSleep
	}
}

// Label identifies a text label the orchestrator writes to.
type Label int

const (
	// LabelListenSpeak is the status line ("Listening ...", transcript, errors).
	LabelListenSpeak Label = iota
	// LabelReplyQuestion echoes the transcribed question on the reply panel.
	LabelReplyQuestion
	// LabelReplyContent holds the scrollable answer text.
	LabelReplyContent
)

// String returns a human-readable label name.
func (l Label) String() string {
	switch l {
	case LabelListenSpeak:
		return "listen_speak"
	case LabelReplyQuestion:
		return "reply_question"
	case LabelReplyContent:
		return "reply_content"
	default:
		return "unknown"
	}
}

// Pose is an avatar animation sequence.
type Pose int

const (
	// PoseSleeping is the idle "breathing" animation with floating Z's.
	PoseSleeping Pose = iota
	// PoseListening is used while listening, thinking, and before audio starts.
	PoseListening
	// PoseSpeaking is used while the reply audio plays.
	PoseSpeaking
)

// String returns a human-readable pose name.
func (p Pose) String() string {
	switch p {
	case PoseSleeping:
		return "sleeping"
	case PoseListening:
		return "listening"
	case PoseSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Object names a node in the display surface's object tree.
type Object int

const (
	ObjPanelSleep Object = iota
	ObjPanelListen
	ObjPanelGet
	ObjPanelReply

	ObjLabelListenSpeak
	ObjLabelReplyQuestion
	ObjLabelReplyContent
	ObjContainerReplyContent

	ObjAvatarSleep
	ObjAvatarListen
	ObjAvatarGet
	ObjAvatarReply

	ObjPanelSetupWifi
	ObjPanelSetupSteps
	ObjLabelSetupWifi
	ObjButtonSetup
)

// Screen is a top-level screen of the surface.
type Screen int

const (
	// ScreenSetup walks the user through connecting the device.
	ScreenSetup Screen = iota
	// ScreenMain hosts the four panels.
	ScreenMain
)
