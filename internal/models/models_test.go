package models

import (
	"testing"
	"time"
)

func TestEnrollmentRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     EnrollmentRequest
		wantErr bool
	}{
		{"valid", EnrollmentRequest{Email: "sam@corp.example", ProgramLabel: "GROW - Cohort 1"}, false},
		{"empty email", EnrollmentRequest{Email: "   "}, true},
		{"email without at sign", EnrollmentRequest{Email: "sam.corp.example"}, true},
		{"missing program label is fine", EnrollmentRequest{Email: "sam@corp.example"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionIngestRequestValidate(t *testing.T) {
	if err := (&SessionIngestRequest{Seq: 3, Date: time.Now()}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	if err := (&SessionIngestRequest{Seq: 0}).Validate(); err == nil {
		t.Error("zero seq should be rejected")
	}
	if err := (&SessionIngestRequest{Seq: 1, Status: "dreaming"}).Validate(); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestWinRequestValidate(t *testing.T) {
	if err := (&WinRequest{Text: "led the retro solo"}).Validate(); err != nil {
		t.Errorf("valid win rejected: %v", err)
	}
	if err := (&WinRequest{Text: " \n"}).Validate(); err == nil {
		t.Error("blank win text should be rejected")
	}
	long := make([]byte, MaxFreeTextLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := (&WinRequest{Text: string(long)}).Validate(); err == nil {
		t.Error("oversized win text should be rejected")
	}
}

func TestSessionToken(t *testing.T) {
	if got := SessionToken(12); got != "Session 12" {
		t.Errorf("SessionToken(12) = %q", got)
	}
}

func TestIsValidSurveyType(t *testing.T) {
	for _, st := range []SurveyType{SurveyTypeFirstSession, SurveyTypeFeedback, SurveyTypeTouchpoint, SurveyTypeEndOfProgram} {
		if !IsValidSurveyType(st) {
			t.Errorf("%s should be valid", st)
		}
	}
	if IsValidSurveyType("exit-interview") {
		t.Error("unknown survey type should be invalid")
	}
}

func TestIsValidParticipantStatus(t *testing.T) {
	if !IsValidParticipantStatus(ParticipantStatusActive) {
		t.Error("active should be valid")
	}
	if IsValidParticipantStatus("napping") {
		t.Error("unknown status should be invalid")
	}
}

func TestAPIResponseBuilder(t *testing.T) {
	resp := NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage("done").
		WithResult(42).
		Build()
	if resp.Status != "ok" || resp.Message != "done" || resp.Result != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}

	errResp := Error("boom")
	if errResp.Status != string(APIStatusError) || errResp.Message != "boom" {
		t.Errorf("unexpected error response: %+v", errResp)
	}
}
