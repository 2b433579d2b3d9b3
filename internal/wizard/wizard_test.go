package wizard

import (
	"testing"
	"time"

	"github.com/stride-coaching/checkpulse/internal/models"
)

func testWizard() *Wizard {
	return NewWizard("wiz_1",
		models.Participant{ID: "part_1", Email: "ana@corp.example"},
		models.PendingSurvey{SessionID: "sess_1", SessionSeq: 1, SessionDate: time.Now(), CoachName: "Kai", SurveyType: models.SurveyTypeFirstSession},
	)
}

func mustAnswer(t *testing.T, w *Wizard, key, value string) {
	t.Helper()
	if err := w.Answer(key, value); err != nil {
		t.Fatalf("Answer(%s, %s) failed: %v", key, value, err)
	}
}

func mustNext(t *testing.T, w *Wizard) {
	t.Helper()
	if err := w.Next(); err != nil {
		t.Fatalf("Next from %s failed: %v", w.CurrentStep(), err)
	}
}

func TestWizardStartsAtFirstStep(t *testing.T) {
	w := testWizard()
	if w.CurrentStep() != StepExperienceRating {
		t.Errorf("start step = %s, want %s", w.CurrentStep(), StepExperienceRating)
	}
	if w.Status() != StatusActive {
		t.Errorf("status = %s, want active", w.Status())
	}
}

func TestRequiredStepBlocksForward(t *testing.T) {
	w := testWizard()
	if err := w.Next(); err != ErrAnswerRequired {
		t.Errorf("Next without an answer should return ErrAnswerRequired, got %v", err)
	}
	mustAnswer(t, w, string(StepExperienceRating), "8")
	mustNext(t, w)
	if w.CurrentStep() != StepCoachMatchRating {
		t.Errorf("step = %s, want %s", w.CurrentStep(), StepCoachMatchRating)
	}
}

func TestOptionalStepAlwaysAdmits(t *testing.T) {
	w := testWizard()
	mustAnswer(t, w, string(StepExperienceRating), "9")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "9")
	mustNext(t, w)

	if w.CurrentStep() != StepOptionalWins {
		t.Fatalf("step = %s, want %s", w.CurrentStep(), StepOptionalWins)
	}
	if got := w.ActionLabel(); got != "Skip" {
		t.Errorf("unanswered optional step label = %q, want Skip", got)
	}
	mustNext(t, w) // proceeds with no answer
	if w.CurrentStep() != StepBookedNextSession {
		t.Errorf("step = %s, want %s", w.CurrentStep(), StepBookedNextSession)
	}
}

func TestActionLabelNextAndDone(t *testing.T) {
	w := testWizard()
	if got := w.ActionLabel(); got != "Next" {
		t.Errorf("label = %q, want Next", got)
	}

	mustAnswer(t, w, string(StepExperienceRating), "9")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "9")
	mustNext(t, w)
	mustAnswer(t, w, string(StepOptionalWins), "shipped the audit")
	if got := w.ActionLabel(); got != "Next" {
		t.Errorf("answered optional step label = %q, want Next", got)
	}
	mustNext(t, w)
	mustAnswer(t, w, string(StepBookedNextSession), AnswerYes)
	mustNext(t, w)
	mustNext(t, w) // skip anything-else
	mustAnswer(t, w, string(StepNPSScore), "10")
	mustNext(t, w)
	if w.CurrentStep() != StepOpenToFollowup {
		t.Fatalf("step = %s, want %s", w.CurrentStep(), StepOpenToFollowup)
	}
	if got := w.ActionLabel(); got != "Done" {
		t.Errorf("last step label = %q, want Done", got)
	}
	mustAnswer(t, w, string(StepOpenToFollowup), AnswerYes)
	if err := w.Next(); err != ErrEndOfSteps {
		t.Errorf("Next at the last step should return ErrEndOfSteps, got %v", err)
	}
}

// Scenario from the coach-fit branch: rating 6 walks through describe-issue,
// continue-with-coach, and (after "explore") describe-better-match.
func TestLowCoachMatchWalkthrough(t *testing.T) {
	w := testWizard()
	mustAnswer(t, w, string(StepExperienceRating), "7")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "6")
	mustNext(t, w)

	if w.CurrentStep() != StepDescribeIssue {
		t.Fatalf("step = %s, want %s", w.CurrentStep(), StepDescribeIssue)
	}
	if err := w.Next(); err != ErrAnswerRequired {
		t.Error("describe-issue is required in this branch")
	}
	mustAnswer(t, w, string(StepDescribeIssue), "we talk past each other")
	mustNext(t, w)
	mustNext(t, w) // skip wins

	if w.CurrentStep() != StepContinueWithCoach {
		t.Fatalf("step = %s, want %s", w.CurrentStep(), StepContinueWithCoach)
	}
	mustAnswer(t, w, string(StepContinueWithCoach), AnswerExplore)
	mustNext(t, w)
	if w.CurrentStep() != StepDescribeBetterMatch {
		t.Errorf("explore should insert describe-better-match, got %s", w.CurrentStep())
	}
}

func TestChoiceStepRejectsUnknownValue(t *testing.T) {
	w := testWizard()
	if err := w.Answer(string(StepBookedNextSession), "maybe"); err != ErrInvalidAnswer {
		t.Errorf("expected ErrInvalidAnswer, got %v", err)
	}
	if err := w.Answer("favorite-color", "teal"); err != ErrUnknownStep {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
	if err := w.Answer(KeyReasonOther, "travel"); err != nil {
		t.Errorf("reason-other sub-field should be accepted, got %v", err)
	}
}

// Progress is monotonically non-decreasing while moving strictly forward, and
// recomputes when the step list's length changes mid-flow.
func TestProgressMonotonicForward(t *testing.T) {
	w := testWizard()
	last := 0
	advance := func(key, value string) {
		t.Helper()
		if key != "" {
			mustAnswer(t, w, key, value)
		}
		mustNext(t, w)
		if p := w.Progress(); p < last {
			t.Errorf("progress decreased moving forward: %d -> %d at %s", last, p, w.CurrentStep())
		} else {
			last = p
		}
	}

	advance(string(StepExperienceRating), "7")
	advance(string(StepCoachMatchRating), "5") // branch steps appear; denominator grows
	advance(string(StepDescribeIssue), "pace is off")
	advance("", "") // skip wins
	advance(string(StepContinueWithCoach), AnswerExplore)
	advance(string(StepDescribeBetterMatch), "more structure")
	advance(string(StepBookedNextSession), AnswerYes)
	advance("", "") // skip anything-else
	advance(string(StepNPSScore), "8")
	if w.Progress() != 100 {
		t.Errorf("progress at last step = %d, want 100", w.Progress())
	}
}

func TestProgressRecomputesWhenOrderShrinks(t *testing.T) {
	w := testWizard()
	mustAnswer(t, w, string(StepExperienceRating), "7")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "5")
	withBranch := w.Progress()

	// Revising the rating upward removes three conditional steps; the
	// denominator shrinks and the percentage is recomputed, not incremented.
	mustAnswer(t, w, string(StepCoachMatchRating), "9")
	withoutBranch := w.Progress()
	if withoutBranch <= withBranch {
		t.Errorf("progress should rise when the order shrinks at the same position: %d -> %d", withBranch, withoutBranch)
	}
}

// Back/forward navigation always lands on steps consistent with the answers.
func TestBackForwardSymmetry(t *testing.T) {
	w := testWizard()
	if err := w.Back(); err != ErrAtFirstStep {
		t.Errorf("Back at first step should return ErrAtFirstStep, got %v", err)
	}

	mustAnswer(t, w, string(StepExperienceRating), "7")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "6")
	mustNext(t, w) // on describe-issue

	if err := w.Back(); err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if w.CurrentStep() != StepCoachMatchRating {
		t.Fatalf("step after Back = %s, want %s", w.CurrentStep(), StepCoachMatchRating)
	}

	// Raise the rating: describe-issue vanishes, forward goes to wins.
	mustAnswer(t, w, string(StepCoachMatchRating), "9")
	mustNext(t, w)
	if w.CurrentStep() != StepOptionalWins {
		t.Errorf("step = %s, want %s (no orphaned conditional step)", w.CurrentStep(), StepOptionalWins)
	}
}

// Editing an upstream answer while parked on a conditional step snaps the
// wizard back onto a step that exists in the recomputed order.
func TestCurrentStepSnapsWhenRemoved(t *testing.T) {
	w := testWizard()
	mustAnswer(t, w, string(StepExperienceRating), "7")
	mustNext(t, w)
	mustAnswer(t, w, string(StepCoachMatchRating), "6")
	mustNext(t, w) // on describe-issue

	mustAnswer(t, w, string(StepCoachMatchRating), "10")
	if indexOf(w.Order(), w.CurrentStep()) < 0 {
		t.Fatalf("current step %s is not in the recomputed order", w.CurrentStep())
	}
}

func TestReadyToSubmit(t *testing.T) {
	w := testWizard()
	if w.ReadyToSubmit() {
		t.Error("fresh wizard should not be ready to submit")
	}
	for key, value := range map[string]string{
		string(StepExperienceRating):  "9",
		string(StepCoachMatchRating):  "9",
		string(StepBookedNextSession): AnswerYes,
		string(StepNPSScore):          "10",
		string(StepOpenToFollowup):    AnswerYes,
	} {
		mustAnswer(t, w, key, value)
	}
	if !w.ReadyToSubmit() {
		t.Error("all required steps answered; wizard should be ready")
	}

	// Flipping booked to "no" reintroduces a required step.
	mustAnswer(t, w, string(StepBookedNextSession), AnswerNo)
	if w.ReadyToSubmit() {
		t.Error("reason-not-booked is unanswered; wizard should not be ready")
	}
}
