package trace

// Level controls the verbosity of outcome tracing.
type Level string

const (
	// LevelNone disables tracing.
	LevelNone Level = "none"
	// LevelOutcomes captures every severe-incident outcome.
	LevelOutcomes Level = "outcomes"
)

// validLevels maps accepted trace level strings.
var validLevels = map[Level]bool{
	LevelNone:     true,
	LevelOutcomes: true,
	"":            true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Trace collects outcome records during a run.
type Trace struct {
	Level    Level
	Outcomes []Outcome
}

// New creates a Trace ready for recording.
func New(level Level) *Trace {
	return &Trace{
		Level:    level,
		Outcomes: make([]Outcome, 0),
	}
}

// Record appends an outcome. A nil or disabled trace ignores it.
func (t *Trace) Record(o Outcome) {
	if t == nil || t.Level == LevelNone || t.Level == "" {
		return
	}
	t.Outcomes = append(t.Outcomes, o)
}
