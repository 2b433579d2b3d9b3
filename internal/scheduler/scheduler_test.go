package scheduler

import "testing"

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("0 9 * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron line", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
	// 6-field expressions belong to the seconds-resolution parser, not this one
	if err := s.AddJob("0 0 9 * * *", func() {}); err == nil {
		t.Error("Expected error for 6-field cron expression")
	}
}
