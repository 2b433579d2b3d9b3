// Package schedule maps coaching program types to their milestone schedules.
//
// A milestone is a completed-session sequence number at which a checkpoint
// survey is expected. Lookups are pure and never fail: unrecognized program
// labels fall back to the SCALE schedule, whose denser cadence means a survey
// is asked sooner rather than skipped.
package schedule

import (
	"strings"

	"github.com/stride-coaching/checkpulse/internal/models"
)

// MilestoneSchedule lists the session sequence numbers at which a checkpoint
// survey is expected, plus the completed-session count that triggers the
// end-of-program survey.
type MilestoneSchedule struct {
	Milestones []int
	Threshold  int
}

var (
	growSchedule  = MilestoneSchedule{Milestones: []int{1, 6}, Threshold: 6}
	scaleSchedule = MilestoneSchedule{Milestones: []int{1, 3, 6, 12, 18, 24, 30, 36}, Threshold: 36}
)

// ParseProgramType resolves a raw program label to a known program type.
// Labels arrive decorated ("GROW - Cohort 1") or already resolved upstream;
// matching is case-insensitive substring search. Unknown labels resolve to
// SCALE rather than failing.
func ParseProgramType(label string) models.ProgramType {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, string(models.ProgramGrow)):
		return models.ProgramGrow
	case strings.Contains(upper, string(models.ProgramExec)):
		return models.ProgramExec
	case strings.Contains(upper, string(models.ProgramScale)):
		return models.ProgramScale
	default:
		return models.ProgramScale
	}
}

// ScheduleFor returns the milestone schedule for a program type. GROW has its
// own short schedule; EXEC has no dedicated track yet and every other type
// uses the SCALE schedule.
func ScheduleFor(pt models.ProgramType) MilestoneSchedule {
	switch pt {
	case models.ProgramGrow:
		return growSchedule
	default:
		return scaleSchedule
	}
}

// Contains reports whether seq is one of the schedule's milestones.
func (s MilestoneSchedule) Contains(seq int) bool {
	for _, m := range s.Milestones {
		if m == seq {
			return true
		}
	}
	return false
}

// MilestoneSurveyType returns the survey type for a milestone submission.
// The mapping is fixed by sequence number independent of the program-specific
// milestone schedule: sequence 1 is the first-session survey, sequence 3 the
// feedback survey, and everything else a touchpoint.
func MilestoneSurveyType(seq int) models.SurveyType {
	switch seq {
	case 1:
		return models.SurveyTypeFirstSession
	case 3:
		return models.SurveyTypeFeedback
	default:
		return models.SurveyTypeTouchpoint
	}
}
