package domain

// Step identifies one stage of a fetch task. The int codes are the wire
// contract for the observer endpoint and must not be renumbered.
type Step int

const (
	StepPreparing       Step = 1
	StepCrawling        Step = 2
	StepExtractingLinks Step = 3
	StepAnalyzing       Step = 4
	StepSaving          Step = 5
	StepComplete        Step = 6
	StepError           Step = 7
	StepSkipped         Step = 8
)

// String returns the human-readable name of the step.
func (s Step) String() string {
	switch s {
	case StepPreparing:
		return "preparing"
	case StepCrawling:
		return "crawling"
	case StepExtractingLinks:
		return "extracting_links"
	case StepAnalyzing:
		return "analyzing"
	case StepSaving:
		return "saving"
	case StepComplete:
		return "complete"
	case StepError:
		return "error"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the step ends a task. Exactly one terminal event
// is emitted per task.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepError || s == StepSkipped
}

// Event kinds carried in the "event" field of a ProgressEvent.
const (
	EventProgress         = "progress"
	EventOverallCompleted = "overall_completed"
)

// ProgressEvent is one immutable, transient record describing a state
// transition of a fetch task or a batch-level milestone. Events exist only
// on the wire between the producer and the Progress Bus; they are never
// persisted.
type ProgressEvent struct {
	Event       string `json:"event"`
	TaskGroupID string `json:"task_group_id,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	Step        Step   `json:"step"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	ItemsSaved  *int   `json:"items_saved,omitempty"`
}
