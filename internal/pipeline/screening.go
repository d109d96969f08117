package pipeline

// PassThreshold is the lowest AI score that advances a candidate.
const PassThreshold = 70

// Outcome is the adjudicated result of AI screening.
type Outcome int

const (
	// Indeterminate means no score was produced and a human must review.
	Indeterminate Outcome = iota
	Pass
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "INDETERMINATE"
	}
}

// Status is the initial pipeline status a new candidate gets for o.
func (o Outcome) Status() Status {
	switch o {
	case Pass:
		return StatusAssignmentSent
	case Fail:
		return StatusRejected
	default:
		return StatusApplied
	}
}

// ScreeningResult is what a scorer returns. A nil Score is a valid, explicit
// "could not score" result.
type ScreeningResult struct {
	Score  *int
	Reason string
}

// Adjudicate maps a raw score to an Outcome. Every input has exactly one
// outcome.
func Adjudicate(score *int) Outcome {
	switch {
	case score == nil:
		return Indeterminate
	case *score >= PassThreshold:
		return Pass
	default:
		return Fail
	}
}
