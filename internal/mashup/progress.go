package mashup

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the level name.
func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent represents a run progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Phase is the step a run is in.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseDownload
	PhaseProcess
	PhaseFinalize
	PhaseCleanup
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseDownload:
		return "Downloading"
	case PhaseProcess:
		return "Processing"
	case PhaseFinalize:
		return "Writing"
	case PhaseCleanup:
		return "Cleaning up"
	case PhaseDone:
		return "Done"
	default:
		return "Idle"
	}
}
