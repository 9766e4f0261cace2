package pipeline

import "time"

// StepRecord is the audit entry for one executed step. Field names match the
// collector's test report values.
type StepRecord struct {
	Step      string    `json:"step"`
	Condition string    `json:"condition"`
	Value     string    `json:"value"`
	Log       *string   `json:"logs"`
	Failed    bool      `json:"failed"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Board is one unit under test together with its ordered audit trail.
type Board struct {
	ID        *string      `json:"id"`
	Steps     []StepRecord `json:"values"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

// NewBoard starts a Board at the given time.
func NewBoard(startedAt time.Time) *Board {
	return &Board{StartedAt: startedAt}
}

// Identity returns the board id, or "" when it is not yet known.
func (b *Board) Identity() string {
	if b == nil || b.ID == nil {
		return ""
	}
	return *b.ID
}

// SetIdentity assigns the device identity.
func (b *Board) SetIdentity(id string) {
	b.ID = &id
}

// Failed reports whether any recorded step failed.
func (b *Board) Failed() bool {
	for _, s := range b.Steps {
		if s.Failed {
			return true
		}
	}
	return false
}

// Verdict is the terminal result of a pipeline run.
type Verdict int

const (
	Passed Verdict = iota
	Failed
)

func (v Verdict) String() string {
	if v == Passed {
		return "passed"
	}
	return "failed"
}

// Outcome pairs a verdict with the finished board.
type Outcome struct {
	Verdict Verdict
	Board   *Board
}

// Passed reports whether o is a passing outcome.
func (o Outcome) Passed() bool { return o.Verdict == Passed }
