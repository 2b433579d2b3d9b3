package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stride-coaching/checkpulse/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalReasons encodes the not-booked reasons list as JSON, or nil when the
// list is absent so the column stays NULL.
func marshalReasons(reasons []string) (interface{}, error) {
	if reasons == nil {
		return nil, nil
	}
	b, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal not-booked reasons failed: %w", err)
	}
	return string(b), nil
}

// scanParticipant scans a Participant from sql.Rows.
func scanParticipant(rows *sql.Rows) (models.Participant, error) {
	var p models.Participant
	var name, programLabel, phone sql.NullString
	err := rows.Scan(&p.ID, &p.Email, &name, &programLabel, &phone, &p.Status, &p.EnrolledAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, fmt.Errorf("scan participant failed: %w", err)
	}
	p.Name = name.String
	p.ProgramLabel = programLabel.String
	p.Phone = phone.String
	return p, nil
}

// scanSession scans a Session from sql.Rows.
func scanSession(rows *sql.Rows) (models.Session, error) {
	var s models.Session
	var coach sql.NullString
	err := rows.Scan(&s.ID, &s.ParticipantEmail, &s.Seq, &s.Status, &s.Date, &coach)
	if err != nil {
		return s, fmt.Errorf("scan session failed: %w", err)
	}
	s.CoachName = coach.String
	return s, nil
}

// scanSubmission scans a SurveySubmission from sql.Rows.
func scanSubmission(rows *sql.Rows) (models.SurveySubmission, error) {
	var sub models.SurveySubmission
	var sessionID, reasonsJSON sql.NullString
	var sessionSeq sql.NullInt64
	var booked, consent sql.NullBool
	err := rows.Scan(
		&sub.ID, &sub.ParticipantEmail, &sub.SurveyType, &sessionID, &sessionSeq, &sub.Feedback,
		&sub.ExperienceRating, &sub.CoachMatchRating, &sub.NPSScore, &booked, &consent, &reasonsJSON, &sub.CreatedAt,
	)
	if err != nil {
		return sub, fmt.Errorf("scan submission failed: %w", err)
	}
	sub.SessionID = sessionID.String
	sub.SessionSeq = int(sessionSeq.Int64)
	if booked.Valid {
		sub.NextSessionBooked = &booked.Bool
	}
	if consent.Valid {
		sub.TestimonialConsent = &consent.Bool
	}
	if reasonsJSON.Valid && reasonsJSON.String != "" {
		if err := json.Unmarshal([]byte(reasonsJSON.String), &sub.NotBookedReasons); err != nil {
			return sub, fmt.Errorf("unmarshal not-booked reasons failed: %w", err)
		}
	}
	return sub, nil
}

// scanWin scans a WinEntry from sql.Rows.
func scanWin(rows *sql.Rows) (models.WinEntry, error) {
	var w models.WinEntry
	var seq sql.NullInt64
	err := rows.Scan(&w.ID, &w.ParticipantEmail, &w.Text, &seq, &w.Source, &w.CreatedAt)
	if err != nil {
		return w, fmt.Errorf("scan win failed: %w", err)
	}
	if seq.Valid {
		n := int(seq.Int64)
		w.SessionSeq = &n
	}
	return w, nil
}

// winSeqValue converts an optional session seq into a nullable column value.
func winSeqValue(seq *int) interface{} {
	if seq == nil {
		return nil
	}
	return *seq
}
