// Package wizard implements the checkpoint survey wizard: an in-memory,
// answer-derived step state machine.
//
// The step sequence is never stored; it is recomputed from the full current
// answer set on every transition, so back/forward navigation always lands on
// a step consistent with the answers already given and conditional steps can
// never go stale.
package wizard

import (
	"strconv"
)

// StepID identifies one wizard step.
type StepID string

// Wizard step identifiers. Interactive steps appear in StepOrder; the two
// terminal states do not.
const (
	StepExperienceRating     StepID = "experience-rating"
	StepCoachMatchRating     StepID = "coach-match-rating"
	StepDescribeIssue        StepID = "describe-issue"
	StepOptionalWins         StepID = "optional-wins"
	StepContinueWithCoach    StepID = "continue-with-coach"
	StepDescribeBetterMatch  StepID = "describe-better-match"
	StepBookedNextSession    StepID = "booked-next-session"
	StepReasonNotBooked      StepID = "reason-not-booked"
	StepOptionalAnythingElse StepID = "optional-anything-else"
	StepNPSScore             StepID = "nps-score"
	StepOpenToFollowup       StepID = "open-to-followup"
	StepSubmitting           StepID = "submitting"
	StepComplete             StepID = "complete"
)

// KeyReasonOther is the answer key for the free-text sub-field shown when the
// not-booked reason is "other". It is not a step of its own.
const KeyReasonOther = "reason-not-booked-other"

// Answer values for choice steps.
const (
	AnswerYes     = "yes"
	AnswerNo      = "no"
	AnswerExplore = "explore" // continue-with-coach: open to a better match

	ReasonScheduling  = "scheduling"
	ReasonCoachFit    = "coach-fit"
	ReasonProgramDone = "program-done"
	ReasonOther       = "other"
)

// CoachMatchConcernThreshold is the coach-match rating at or below which the
// wizard asks the coach-fit follow-up steps.
const CoachMatchConcernThreshold = 8

// AnswerSet holds the wizard's in-memory answers keyed by logical question
// id. Nothing here is persisted until final submit.
type AnswerSet map[string]string

// Rating returns the integer answer for a rating step and whether one exists.
func (a AnswerSet) Rating(step StepID) (int, bool) {
	raw, ok := a[string(step)]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// coachMatchConcern reports whether the coach-match rating has been given and
// falls at or below the concern threshold.
func (a AnswerSet) coachMatchConcern() bool {
	n, ok := a.Rating(StepCoachMatchRating)
	return ok && n <= CoachMatchConcernThreshold
}

// StepOrder derives the ordered interactive step list from the current
// answers. It is a pure function: calling it twice with the same answers
// yields the same sequence.
func StepOrder(a AnswerSet) []StepID {
	concern := a.coachMatchConcern()

	order := []StepID{StepExperienceRating, StepCoachMatchRating}
	if concern {
		order = append(order, StepDescribeIssue)
	}
	order = append(order, StepOptionalWins)
	if concern {
		order = append(order, StepContinueWithCoach)
		if a[string(StepContinueWithCoach)] == AnswerExplore {
			order = append(order, StepDescribeBetterMatch)
		}
	}
	order = append(order, StepBookedNextSession)
	if a[string(StepBookedNextSession)] == AnswerNo {
		order = append(order, StepReasonNotBooked)
	}
	order = append(order, StepOptionalAnythingElse, StepNPSScore, StepOpenToFollowup)
	return order
}

// Optional reports whether a step admits proceeding without an answer.
func Optional(step StepID) bool {
	return step == StepOptionalWins || step == StepOptionalAnythingElse
}

// Prompt returns the fixed question text for a step. Question content and
// ordering are fixed per program type, not author-configurable at runtime.
func Prompt(step StepID) string {
	switch step {
	case StepExperienceRating:
		return "How would you rate your coaching experience so far? (1-10)"
	case StepCoachMatchRating:
		return "How well matched do you feel with your coach? (1-10)"
	case StepDescribeIssue:
		return "What's not working for you right now?"
	case StepOptionalWins:
		return "Any wins you'd like to share since your last check-in?"
	case StepContinueWithCoach:
		return "Would you like to continue with your current coach?"
	case StepDescribeBetterMatch:
		return "What would a better match look like for you?"
	case StepBookedNextSession:
		return "Have you booked your next session?"
	case StepReasonNotBooked:
		return "What's in the way of booking your next session?"
	case StepOptionalAnythingElse:
		return "Anything else you'd like to share?"
	case StepNPSScore:
		return "How likely are you to recommend the program to a colleague? (0-10)"
	case StepOpenToFollowup:
		return "Would you be open to a follow-up chat about your feedback?"
	case StepSubmitting:
		return "Submitting your responses..."
	case StepComplete:
		return "Thanks! Your check-in has been recorded."
	default:
		return ""
	}
}

// answered reports whether the step has a valid answer in the set, i.e.
// whether the admission guard permits moving past a required step.
func (a AnswerSet) answered(step StepID) bool {
	switch step {
	case StepExperienceRating, StepCoachMatchRating:
		n, ok := a.Rating(step)
		return ok && n >= 1 && n <= 10
	case StepNPSScore:
		n, ok := a.Rating(step)
		return ok && n >= 0 && n <= 10
	case StepDescribeIssue, StepDescribeBetterMatch:
		return a[string(step)] != ""
	case StepContinueWithCoach:
		v := a[string(step)]
		return v == AnswerYes || v == AnswerExplore
	case StepBookedNextSession, StepOpenToFollowup:
		v := a[string(step)]
		return v == AnswerYes || v == AnswerNo
	case StepReasonNotBooked:
		switch a[string(step)] {
		case ReasonScheduling, ReasonCoachFit, ReasonProgramDone:
			return true
		case ReasonOther:
			// The branch demands the free-text sub-field too.
			return a[KeyReasonOther] != ""
		default:
			return false
		}
	case StepOptionalWins, StepOptionalAnythingElse:
		return true
	default:
		return false
	}
}
