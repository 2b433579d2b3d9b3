package wizard

import (
	"reflect"
	"testing"
)

func TestStepOrderHappyPath(t *testing.T) {
	// High coach-match: no coach-fit follow-ups anywhere in the order.
	a := AnswerSet{
		string(StepExperienceRating): "9",
		string(StepCoachMatchRating): "9",
	}
	want := []StepID{
		StepExperienceRating, StepCoachMatchRating, StepOptionalWins,
		StepBookedNextSession, StepOptionalAnythingElse, StepNPSScore, StepOpenToFollowup,
	}
	if got := StepOrder(a); !reflect.DeepEqual(got, want) {
		t.Errorf("StepOrder = %v, want %v", got, want)
	}
}

func TestStepOrderLowCoachMatch(t *testing.T) {
	a := AnswerSet{string(StepCoachMatchRating): "6"}
	want := []StepID{
		StepExperienceRating, StepCoachMatchRating, StepDescribeIssue, StepOptionalWins,
		StepContinueWithCoach, StepBookedNextSession, StepOptionalAnythingElse, StepNPSScore, StepOpenToFollowup,
	}
	if got := StepOrder(a); !reflect.DeepEqual(got, want) {
		t.Errorf("StepOrder = %v, want %v", got, want)
	}

	// Choosing "explore" inserts the better-match step.
	a[string(StepContinueWithCoach)] = AnswerExplore
	want = []StepID{
		StepExperienceRating, StepCoachMatchRating, StepDescribeIssue, StepOptionalWins,
		StepContinueWithCoach, StepDescribeBetterMatch, StepBookedNextSession,
		StepOptionalAnythingElse, StepNPSScore, StepOpenToFollowup,
	}
	if got := StepOrder(a); !reflect.DeepEqual(got, want) {
		t.Errorf("StepOrder with explore = %v, want %v", got, want)
	}
}

func TestStepOrderNotBookedBranch(t *testing.T) {
	a := AnswerSet{string(StepBookedNextSession): AnswerNo}
	order := StepOrder(a)
	if indexOf(order, StepReasonNotBooked) < 0 {
		t.Error("reason-not-booked should appear when next session is not booked")
	}

	a[string(StepBookedNextSession)] = AnswerYes
	if indexOf(StepOrder(a), StepReasonNotBooked) >= 0 {
		t.Error("reason-not-booked should disappear when next session is booked")
	}
}

// A stale "explore" answer is ignored once the coach-match rating no longer
// flags a concern: the continue gate itself is gone, so its dependents are too.
func TestStepOrderIgnoresStaleBranchAnswers(t *testing.T) {
	a := AnswerSet{
		string(StepCoachMatchRating):  "9",
		string(StepContinueWithCoach): AnswerExplore,
	}
	order := StepOrder(a)
	for _, step := range []StepID{StepDescribeIssue, StepContinueWithCoach, StepDescribeBetterMatch} {
		if indexOf(order, step) >= 0 {
			t.Errorf("%s should not appear with a high coach-match rating", step)
		}
	}
}

// Recomputing from an unchanged answer set always yields the same sequence.
func TestStepOrderDeterministic(t *testing.T) {
	a := AnswerSet{
		string(StepCoachMatchRating):  "5",
		string(StepContinueWithCoach): AnswerExplore,
		string(StepBookedNextSession): AnswerNo,
	}
	first := StepOrder(a)
	for i := 0; i < 10; i++ {
		if got := StepOrder(a); !reflect.DeepEqual(got, first) {
			t.Fatalf("StepOrder drifted on recompute: %v vs %v", got, first)
		}
	}
}

func TestAnsweredGuard(t *testing.T) {
	tests := []struct {
		name string
		a    AnswerSet
		step StepID
		want bool
	}{
		{"rating missing", AnswerSet{}, StepExperienceRating, false},
		{"rating out of range", AnswerSet{string(StepExperienceRating): "11"}, StepExperienceRating, false},
		{"rating garbage", AnswerSet{string(StepExperienceRating): "great"}, StepExperienceRating, false},
		{"rating ok", AnswerSet{string(StepExperienceRating): "7"}, StepExperienceRating, true},
		{"nps zero ok", AnswerSet{string(StepNPSScore): "0"}, StepNPSScore, true},
		{"optional always passes", AnswerSet{}, StepOptionalWins, true},
		{"issue text required", AnswerSet{}, StepDescribeIssue, false},
		{"issue text given", AnswerSet{string(StepDescribeIssue): "sessions feel rushed"}, StepDescribeIssue, true},
		{"reason without other text", AnswerSet{string(StepReasonNotBooked): ReasonOther}, StepReasonNotBooked, false},
		{"reason with other text", AnswerSet{string(StepReasonNotBooked): ReasonOther, KeyReasonOther: "travel"}, StepReasonNotBooked, true},
		{"reason plain code", AnswerSet{string(StepReasonNotBooked): ReasonScheduling}, StepReasonNotBooked, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.answered(tt.step); got != tt.want {
				t.Errorf("answered(%s) = %v, want %v", tt.step, got, tt.want)
			}
		})
	}
}
