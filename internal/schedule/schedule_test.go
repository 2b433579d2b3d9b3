package schedule

import (
	"reflect"
	"testing"

	"github.com/stride-coaching/checkpulse/internal/models"
)

func TestParseProgramType(t *testing.T) {
	tests := []struct {
		label string
		want  models.ProgramType
	}{
		{"GROW", models.ProgramGrow},
		{"GROW - Cohort 1", models.ProgramGrow},
		{"grow cohort 3", models.ProgramGrow},
		{"SCALE", models.ProgramScale},
		{"Scale 2024 Q2", models.ProgramScale},
		{"EXEC", models.ProgramExec},
		{"Exec Leadership", models.ProgramExec},
		{"", models.ProgramScale},
		{"Pilot Cohort", models.ProgramScale},
		{"b3f1c2d4-0000-4000-8000-123456789abc", models.ProgramScale},
	}
	for _, tt := range tests {
		if got := ParseProgramType(tt.label); got != tt.want {
			t.Errorf("ParseProgramType(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestScheduleFor(t *testing.T) {
	grow := ScheduleFor(models.ProgramGrow)
	if !reflect.DeepEqual(grow.Milestones, []int{1, 6}) || grow.Threshold != 6 {
		t.Errorf("unexpected GROW schedule: %+v", grow)
	}

	scale := ScheduleFor(models.ProgramScale)
	if !reflect.DeepEqual(scale.Milestones, []int{1, 3, 6, 12, 18, 24, 30, 36}) || scale.Threshold != 36 {
		t.Errorf("unexpected SCALE schedule: %+v", scale)
	}

	// EXEC has no dedicated track and rides the SCALE cadence.
	if got := ScheduleFor(models.ProgramExec); !reflect.DeepEqual(got, scale) {
		t.Errorf("EXEC schedule = %+v, want SCALE schedule", got)
	}
}

func TestContains(t *testing.T) {
	s := ScheduleFor(models.ProgramGrow)
	if !s.Contains(6) {
		t.Error("GROW schedule should contain milestone 6")
	}
	if s.Contains(3) {
		t.Error("GROW schedule should not contain milestone 3")
	}
}

func TestMilestoneSurveyType(t *testing.T) {
	// The survey-type mapping is by raw sequence number, deliberately
	// independent of any program schedule.
	tests := []struct {
		seq  int
		want models.SurveyType
	}{
		{1, models.SurveyTypeFirstSession},
		{3, models.SurveyTypeFeedback},
		{6, models.SurveyTypeTouchpoint},
		{12, models.SurveyTypeTouchpoint},
		{36, models.SurveyTypeTouchpoint},
	}
	for _, tt := range tests {
		if got := MilestoneSurveyType(tt.seq); got != tt.want {
			t.Errorf("MilestoneSurveyType(%d) = %v, want %v", tt.seq, got, tt.want)
		}
	}
}
