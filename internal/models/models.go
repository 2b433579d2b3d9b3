// Package models defines the core data structures for CheckPulse.
//
// It includes participant, session, survey submission, and win types shared
// across the resolver, wizard, store, and API modules.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProgramType identifies the coaching track a participant is enrolled in.
type ProgramType string

const (
	// ProgramGrow is the short-format growth track.
	ProgramGrow ProgramType = "GROW"
	// ProgramScale is the long-format track and the conservative default for
	// unrecognized program labels.
	ProgramScale ProgramType = "SCALE"
	// ProgramExec is the executive coaching track.
	ProgramExec ProgramType = "EXEC"
)

// ParticipantStatus represents the enrollment status of a participant.
type ParticipantStatus string

const (
	// ParticipantStatusActive indicates the participant is actively enrolled.
	ParticipantStatusActive ParticipantStatus = "active"
	// ParticipantStatusPaused indicates the participant is temporarily paused.
	ParticipantStatusPaused ParticipantStatus = "paused"
	// ParticipantStatusCompleted indicates the participant finished their program.
	ParticipantStatusCompleted ParticipantStatus = "completed"
	// ParticipantStatusWithdrawn indicates the participant has withdrawn.
	ParticipantStatusWithdrawn ParticipantStatus = "withdrawn"
)

// IsValidParticipantStatus checks if the given participant status is valid.
func IsValidParticipantStatus(status ParticipantStatus) bool {
	switch status {
	case ParticipantStatusActive, ParticipantStatusPaused, ParticipantStatusCompleted, ParticipantStatusWithdrawn:
		return true
	default:
		return false
	}
}

// Participant represents an employee enrolled in a coaching program.
type Participant struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	ProgramLabel string            `json:"program_label,omitempty"` // raw label, possibly decorated ("GROW - Cohort 1")
	Phone        string            `json:"phone,omitempty"`         // for SMS reminders
	Status       ParticipantStatus `json:"status"`
	EnrolledAt   time.Time         `json:"enrolled_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SessionStatus represents the lifecycle state of a coaching session.
type SessionStatus string

const (
	// SessionStatusScheduled indicates the session has not happened yet.
	SessionStatusScheduled SessionStatus = "scheduled"
	// SessionStatusCompleted indicates the session took place.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusCancelled indicates the session was cancelled.
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Session represents one coaching session. Sessions are created by the
// upstream sync job and are read-only to the survey engine.
type Session struct {
	ID               string        `json:"id"`
	ParticipantEmail string        `json:"participant_email"`
	Seq              int           `json:"seq"` // position within the program, 1-based
	Status           SessionStatus `json:"status"`
	Date             time.Time     `json:"date"`
	CoachName        string        `json:"coach_name,omitempty"`
}

// SurveyType tags a submission with the kind of checkpoint it answers.
type SurveyType string

const (
	// SurveyTypeFirstSession is the survey after the first session.
	SurveyTypeFirstSession SurveyType = "first-session"
	// SurveyTypeFeedback is the early-program feedback survey.
	SurveyTypeFeedback SurveyType = "feedback"
	// SurveyTypeTouchpoint is the recurring mid-program checkpoint survey.
	SurveyTypeTouchpoint SurveyType = "touchpoint"
	// SurveyTypeEndOfProgram is the final survey once the program's full
	// session count is reached.
	SurveyTypeEndOfProgram SurveyType = "end-of-program"
)

// IsValidSurveyType checks if the given survey type is supported.
func IsValidSurveyType(st SurveyType) bool {
	switch st {
	case SurveyTypeFirstSession, SurveyTypeFeedback, SurveyTypeTouchpoint, SurveyTypeEndOfProgram:
		return true
	default:
		return false
	}
}

// SessionToken returns the legacy correlation token embedded in submission
// feedback text, e.g. "Session 3". Older records carry no session FK; the
// token is the only link back to a session.
func SessionToken(seq int) string {
	return fmt.Sprintf("Session %d", seq)
}

// SurveySubmission is the persisted, normalized record of one completed
// checkpoint survey. Submissions are immutable after creation.
type SurveySubmission struct {
	ID                 string     `json:"id"`
	ParticipantEmail   string     `json:"participant_email"`
	SurveyType         SurveyType `json:"survey_type"`
	SessionID          string     `json:"session_id,omitempty"` // explicit link; empty on legacy records
	SessionSeq         int        `json:"session_seq,omitempty"`
	Feedback           string     `json:"feedback"` // free-text blob; embeds the "Session N" token
	ExperienceRating   int        `json:"experience_rating"`
	CoachMatchRating   int        `json:"coach_match_rating"`
	NPSScore           int        `json:"nps_score"`
	NextSessionBooked  *bool      `json:"next_session_booked"`          // nil when unanswered, never coerced
	TestimonialConsent *bool      `json:"testimonial_consent"`          // nil when unanswered
	NotBookedReasons   []string   `json:"not_booked_reasons,omitempty"` // nil unless next session not booked
	CreatedAt          time.Time  `json:"created_at"`
}

// PendingSurvey describes a checkpoint that is due right now for a
// participant. It is ephemeral and computed on demand, never persisted.
type PendingSurvey struct {
	SessionID   string     `json:"session_id"`
	SessionSeq  int        `json:"session_seq"`
	SessionDate time.Time  `json:"session_date"`
	CoachName   string     `json:"coach_name,omitempty"`
	SurveyType  SurveyType `json:"survey_type"`
}

// WinSource tags where a win entry came from.
type WinSource string

const (
	// WinSourceManual indicates the participant logged the win themselves.
	WinSourceManual WinSource = "manual"
	// WinSourceCheckInSurvey indicates the win was captured during a
	// checkpoint survey.
	WinSourceCheckInSurvey WinSource = "check-in-survey"
)

// WinEntry is a short freeform success note, stored independently of survey
// submissions. The win store is append-only.
type WinEntry struct {
	ID               string    `json:"id"`
	ParticipantEmail string    `json:"participant_email"`
	Text             string    `json:"text"`
	SessionSeq       *int      `json:"session_seq,omitempty"`
	Source           WinSource `json:"source"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validation constants for input validation
const (
	// MinRating is the lowest accepted experience/coach-match rating.
	MinRating = 1
	// MaxRating is the highest accepted experience/coach-match rating.
	MaxRating = 10
	// MinNPS is the lowest accepted NPS score.
	MinNPS = 0
	// MaxNPS is the highest accepted NPS score.
	MaxNPS = 10
	// MaxFreeTextLength bounds free-text answers and win entries.
	MaxFreeTextLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyEmail      = errors.New("participant email cannot be empty")
	ErrInvalidStatus   = errors.New("invalid participant status")
	ErrEmptySessionSeq = errors.New("session sequence number must be positive")
	ErrEmptyWinText    = errors.New("win text cannot be empty")
	ErrFreeTextTooLong = errors.New("free text exceeds maximum length")
)

// EnrollmentRequest represents the payload for enrolling a participant.
type EnrollmentRequest struct {
	Email        string `json:"email" validate:"required"`
	Name         string `json:"name,omitempty"`
	ProgramLabel string `json:"program_label,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Validate validates an EnrollmentRequest.
func (r *EnrollmentRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(r.Email, "@") {
		return errors.New("email must contain '@'")
	}
	return nil
}

// SessionIngestRequest represents the payload for recording a session.
// Sessions normally arrive through the upstream sync job; this is the same
// shape it posts.
type SessionIngestRequest struct {
	Seq       int           `json:"seq" validate:"required"`
	Status    SessionStatus `json:"status,omitempty"` // defaults to completed
	Date      time.Time     `json:"date"`
	CoachName string        `json:"coach_name,omitempty"`
}

// Validate validates a SessionIngestRequest.
func (r *SessionIngestRequest) Validate() error {
	if r.Seq <= 0 {
		return ErrEmptySessionSeq
	}
	if r.Status != "" && r.Status != SessionStatusScheduled && r.Status != SessionStatusCompleted && r.Status != SessionStatusCancelled {
		return fmt.Errorf("invalid session status %q", r.Status)
	}
	return nil
}

// WinRequest represents the payload for logging a manual win.
type WinRequest struct {
	Text       string `json:"text" validate:"required"`
	SessionSeq *int   `json:"session_seq,omitempty"`
}

// Validate validates a WinRequest.
func (r *WinRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyWinText
	}
	if len(r.Text) > MaxFreeTextLength {
		return ErrFreeTextTooLong
	}
	return nil
}
