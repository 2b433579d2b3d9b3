package wizard

import (
	"errors"

	"github.com/stride-coaching/checkpulse/internal/models"
)

// Status represents the lifecycle state of a wizard instance.
type Status string

const (
	// StatusActive indicates the wizard is collecting answers.
	StatusActive Status = "active"
	// StatusSubmitting indicates the single outbound write is in flight.
	StatusSubmitting Status = "submitting"
	// StatusComplete indicates the submission succeeded; the wizard is a
	// read-only acknowledgment until the completion callback fires.
	StatusComplete Status = "complete"
)

// Error variables for wizard navigation and validation.
var (
	ErrAnswerRequired = errors.New("an answer is required before proceeding")
	ErrInvalidAnswer  = errors.New("answer not valid for this step")
	ErrUnknownStep    = errors.New("unknown step")
	ErrEndOfSteps     = errors.New("already at the last step")
	ErrAtFirstStep    = errors.New("already at the first step")
	ErrNotInteractive = errors.New("wizard is no longer accepting input")
)

// Wizard is one in-flight checkpoint survey. All answers live in memory only;
// nothing is persisted until final submit, and dismissal discards everything.
//
// A Wizard is not safe for concurrent use; the Manager serializes access.
type Wizard struct {
	ID          string
	Participant models.Participant
	Pending     models.PendingSurvey

	answers     AnswerSet
	current     StepID
	status      Status
	submitError string
}

// NewWizard creates a wizard positioned at the first step.
func NewWizard(id string, participant models.Participant, pending models.PendingSurvey) *Wizard {
	w := &Wizard{
		ID:          id,
		Participant: participant,
		Pending:     pending,
		answers:     make(AnswerSet),
		status:      StatusActive,
	}
	w.current = StepOrder(w.answers)[0]
	return w
}

// Status returns the wizard's lifecycle state.
func (w *Wizard) Status() Status { return w.status }

// SubmitError returns the inline error from the last failed submission, if
// any. It is dismissed by the next successful transition.
func (w *Wizard) SubmitError() string { return w.submitError }

// CurrentStep returns the step the participant is on.
func (w *Wizard) CurrentStep() StepID {
	switch w.status {
	case StatusSubmitting:
		return StepSubmitting
	case StatusComplete:
		return StepComplete
	default:
		return w.current
	}
}

// Order returns the current valid interactive step sequence, derived from the
// answers given so far.
func (w *Wizard) Order() []StepID {
	return StepOrder(w.answers)
}

// Answers returns a copy of the current answer set.
func (w *Wizard) Answers() AnswerSet {
	out := make(AnswerSet, len(w.answers))
	for k, v := range w.answers {
		out[k] = v
	}
	return out
}

// Progress returns the completion percentage: position in the currently valid
// step order over its current length. It is recomputed, not incremented,
// because the order's length changes mid-flow.
func (w *Wizard) Progress() int {
	if w.status != StatusActive {
		return 100
	}
	order := w.Order()
	idx := indexOf(order, w.current)
	if idx < 0 {
		idx = 0
	}
	return (idx + 1) * 100 / len(order)
}

// ActionLabel describes the forward control for the current step: "Skip" on
// optional steps without an answer, "Done" on the last step, "Next" otherwise.
func (w *Wizard) ActionLabel() string {
	if w.status != StatusActive {
		return ""
	}
	order := w.Order()
	if indexOf(order, w.current) == len(order)-1 {
		return "Done"
	}
	if Optional(w.current) && w.answers[string(w.current)] == "" {
		return "Skip"
	}
	return "Next"
}

// Answer records a value for a step (or the reason-other sub-field). An empty
// value clears the answer. Choice steps reject values outside their
// vocabulary; free-text and rating steps accept anything and are checked by
// the admission guard on Next.
func (w *Wizard) Answer(key string, value string) error {
	if w.status != StatusActive {
		return ErrNotInteractive
	}
	if err := validateAnswer(key, value); err != nil {
		return err
	}

	prevOrder := w.Order()
	prevIdx := indexOf(prevOrder, w.current)

	if value == "" {
		delete(w.answers, key)
	} else {
		w.answers[key] = value
	}
	w.submitError = ""

	// A back-edit can remove the step we were parked on; snap to the nearest
	// position in the recomputed order.
	order := w.Order()
	if indexOf(order, w.current) < 0 {
		if prevIdx < 0 {
			prevIdx = 0
		}
		if prevIdx >= len(order) {
			prevIdx = len(order) - 1
		}
		w.current = order[prevIdx]
	}
	return nil
}

// Next advances to the following step. Required steps block forward motion
// until answered; optional steps always permit proceeding.
func (w *Wizard) Next() error {
	if w.status != StatusActive {
		return ErrNotInteractive
	}
	if !w.answers.answered(w.current) {
		return ErrAnswerRequired
	}
	order := w.Order()
	idx := indexOf(order, w.current)
	if idx >= len(order)-1 {
		return ErrEndOfSteps
	}
	w.current = order[idx+1]
	w.submitError = ""
	return nil
}

// Back moves to the preceding step in the current valid order.
func (w *Wizard) Back() error {
	if w.status != StatusActive {
		return ErrNotInteractive
	}
	order := w.Order()
	idx := indexOf(order, w.current)
	if idx <= 0 {
		return ErrAtFirstStep
	}
	w.current = order[idx-1]
	w.submitError = ""
	return nil
}

// ReadyToSubmit reports whether every required step in the current order has
// a valid answer.
func (w *Wizard) ReadyToSubmit() bool {
	for _, step := range w.Order() {
		if !Optional(step) && !w.answers.answered(step) {
			return false
		}
	}
	return true
}

// beginSubmit moves into the terminal submitting state for the single
// outbound write.
func (w *Wizard) beginSubmit() error {
	if w.status != StatusActive {
		return ErrNotInteractive
	}
	if !w.ReadyToSubmit() {
		return ErrAnswerRequired
	}
	w.status = StatusSubmitting
	w.submitError = ""
	return nil
}

// failSubmit returns control to the last interactive step with an inline
// error. There is no automatic retry; the user retries manually.
func (w *Wizard) failSubmit(message string) {
	w.status = StatusActive
	order := w.Order()
	w.current = order[len(order)-1]
	w.submitError = message
}

// finishSubmit marks the wizard complete.
func (w *Wizard) finishSubmit() {
	w.status = StatusComplete
	w.submitError = ""
}

// validateAnswer rejects values outside a choice step's vocabulary. Empty
// values are always allowed (they clear the answer).
func validateAnswer(key, value string) error {
	if value == "" {
		return nil
	}
	switch StepID(key) {
	case StepContinueWithCoach:
		if value != AnswerYes && value != AnswerExplore {
			return ErrInvalidAnswer
		}
	case StepBookedNextSession, StepOpenToFollowup:
		if value != AnswerYes && value != AnswerNo {
			return ErrInvalidAnswer
		}
	case StepReasonNotBooked:
		switch value {
		case ReasonScheduling, ReasonCoachFit, ReasonProgramDone, ReasonOther:
		default:
			return ErrInvalidAnswer
		}
	case StepExperienceRating, StepCoachMatchRating, StepNPSScore,
		StepDescribeIssue, StepDescribeBetterMatch,
		StepOptionalWins, StepOptionalAnythingElse:
		// Free-text and rating steps are checked by the admission guard.
	case StepSubmitting, StepComplete:
		return ErrUnknownStep
	default:
		if key != KeyReasonOther {
			return ErrUnknownStep
		}
	}
	return nil
}

// indexOf returns the position of step in order, or -1.
func indexOf(order []StepID, step StepID) int {
	for i, s := range order {
		if s == step {
			return i
		}
	}
	return -1
}
