package haptics

import "time"

// ImpactStyle is a pre-tuned discrete bump strength
type ImpactStyle int

const (
	ImpactLight ImpactStyle = iota
	ImpactMedium
	ImpactHeavy
	ImpactSoft
	ImpactRigid
	// ImpactCustom uses the intensity passed alongside it
	ImpactCustom
)

func (s ImpactStyle) String() string {
	switch s {
	case ImpactLight:
		return "light"
	case ImpactMedium:
		return "medium"
	case ImpactHeavy:
		return "heavy"
	case ImpactSoft:
		return "soft"
	case ImpactRigid:
		return "rigid"
	case ImpactCustom:
		return "custom"
	}
	return "unknown"
}

// NotificationKind is the outcome signalled by a notification cue
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyWarning
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifySuccess:
		return "success"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "error"
	}
	return "unknown"
}

// EventKind distinguishes instantaneous pulses from sustained vibrations
type EventKind int

const (
	Transient EventKind = iota
	Continuous
)

// Event is one parameterized haptic event.
// Time is the offset from pattern start and is zero outside pattern playback.
// Duration is only meaningful for Continuous events.
type Event struct {
	Kind      EventKind
	Time      time.Duration
	Intensity float64
	Sharpness float64
	Duration  time.Duration
}

// End returns the offset at which the event stops producing output
func (e Event) End() time.Duration {
	if e.Kind == Continuous {
		return e.Time + e.Duration
	}
	return e.Time
}

// Capabilities is the snapshot of what the running device supports
type Capabilities struct {
	Basic bool // any haptic feedback at all
	Core  bool // parameterized events and patterns
}

// Platform is the native haptic subsystem of one target
type Platform interface {
	// Capabilities is called once per Haptics instance
	Capabilities() Capabilities
	// Generator returns the lightweight, engine-free feedback path
	Generator() Generator
	// NewEngine constructs an unstarted engine. onReset may be called from
	// any goroutine when the engine is interrupted and must not block.
	NewEngine(onReset func()) (Engine, error)
}

// Generator plays discrete pre-tuned feedback without an engine
type Generator interface {
	Impact(style ImpactStyle, intensity float64) error
	Notify(kind NotificationKind) error
	Select() error
}

// Timed is implemented by generators that know how long a discrete cue
// keeps the actuators busy, delayed pulses included.
type Timed interface {
	ImpactDuration(style ImpactStyle) time.Duration
	NotifyDuration(kind NotificationKind) time.Duration
	SelectDuration() time.Duration
}

// Engine is a handle on the parameterized haptic engine
type Engine interface {
	Start() error
	Stop() error
	SubmitEvent(ev Event) error
	// SubmitPattern schedules all events as one batch, honoring Event.Time
	SubmitPattern(events []Event) error
	// Halt silences in-flight playback without stopping the engine
	Halt() error
}
