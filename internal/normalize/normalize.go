// Package normalize flattens heterogeneous wizard answers into one
// SurveySubmission record.
//
// Each answered section contributes one line to the free-text feedback blob
// and is omitted entirely when unanswered; internal option codes are
// substituted with their human-readable labels before assembly. Tri-state
// booleans stay nil when unanswered, never coerced to false.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/schedule"
	"github.com/stride-coaching/checkpulse/internal/wizard"
)

// Human-readable labels substituted for internal option codes.
var continueLabels = map[string]string{
	wizard.AnswerYes:     "Yes, keep going",
	wizard.AnswerExplore: "Open to exploring a better match",
}

var reasonLabels = map[string]string{
	wizard.ReasonScheduling:  "Scheduling conflicts",
	wizard.ReasonCoachFit:    "Coach fit",
	wizard.ReasonProgramDone: "Program wrapped up",
}

// BuildSubmission assembles the persisted record from the wizard's answers.
// order is the effective step order at submit time; answers for steps no
// longer in it (left over from branch changes mid-flow) are excluded.
func BuildSubmission(participant models.Participant, pending models.PendingSurvey, answers wizard.AnswerSet, order []wizard.StepID) models.SurveySubmission {
	inOrder := make(map[wizard.StepID]bool, len(order))
	for _, step := range order {
		inOrder[step] = true
	}
	answer := func(step wizard.StepID) string {
		if !inOrder[step] {
			return ""
		}
		return answers[string(step)]
	}

	sub := models.SurveySubmission{
		ParticipantEmail: participant.Email,
		SurveyType:       surveyType(pending),
		SessionID:        pending.SessionID,
		SessionSeq:       pending.SessionSeq,
		CreatedAt:        time.Now(),
	}

	// The first blob line embeds the legacy "Session N" correlation token.
	lines := []string{fmt.Sprintf("%s check-in with %s", models.SessionToken(pending.SessionSeq), pending.CoachName)}

	if n, ok := answers.Rating(wizard.StepExperienceRating); ok {
		sub.ExperienceRating = n
		lines = append(lines, fmt.Sprintf("Session experience: %d/10", n))
	}
	if n, ok := answers.Rating(wizard.StepCoachMatchRating); ok {
		sub.CoachMatchRating = n
		lines = append(lines, fmt.Sprintf("Coach match: %d/10", n))
	}
	if v := answer(wizard.StepDescribeIssue); v != "" {
		lines = append(lines, "What's not working: "+v)
	}
	if v := answer(wizard.StepOptionalWins); v != "" {
		lines = append(lines, "Wins: "+v)
	}
	if v := answer(wizard.StepContinueWithCoach); v != "" {
		lines = append(lines, "Continue with coach: "+labelFor(continueLabels, v))
	}
	if v := answer(wizard.StepDescribeBetterMatch); v != "" {
		lines = append(lines, "Better match criteria: "+v)
	}

	if v := answer(wizard.StepBookedNextSession); v != "" {
		booked := v == wizard.AnswerYes
		sub.NextSessionBooked = &booked
		if !booked {
			if reason := reasonLabel(answers, order); reason != "" {
				sub.NotBookedReasons = []string{reason}
				lines = append(lines, "What's in the way: "+reason)
			}
		}
	}

	if v := answer(wizard.StepOptionalAnythingElse); v != "" {
		lines = append(lines, "Anything else: "+v)
	}
	if n, ok := answers.Rating(wizard.StepNPSScore); ok {
		sub.NPSScore = n
	}
	if v := answer(wizard.StepOpenToFollowup); v != "" {
		consent := v == wizard.AnswerYes
		sub.TestimonialConsent = &consent
	}

	sub.Feedback = strings.Join(lines, "\n")
	return sub
}

// reasonLabel resolves the single not-booked reason to its display form:
// either the substituted label, or the composite "Other: {freetext}" string.
func reasonLabel(answers wizard.AnswerSet, order []wizard.StepID) string {
	present := false
	for _, step := range order {
		if step == wizard.StepReasonNotBooked {
			present = true
			break
		}
	}
	if !present {
		return ""
	}
	code := answers[string(wizard.StepReasonNotBooked)]
	if code == wizard.ReasonOther {
		return "Other: " + answers[wizard.KeyReasonOther]
	}
	return labelFor(reasonLabels, code)
}

// surveyType tags the submission. End-of-program descriptors pass through;
// milestone submissions use the fixed sequence-number rule, which is
// deliberately independent of the program-specific milestone schedule.
func surveyType(pending models.PendingSurvey) models.SurveyType {
	if pending.SurveyType == models.SurveyTypeEndOfProgram {
		return models.SurveyTypeEndOfProgram
	}
	return schedule.MilestoneSurveyType(pending.SessionSeq)
}

// labelFor substitutes a code with its label, falling back to the raw code
// for values without one.
func labelFor(labels map[string]string, code string) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return code
}
