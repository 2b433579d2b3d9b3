// Package store provides storage backends for CheckPulse.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stride-coaching/checkpulse/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddParticipant stores a new participant.
func (s *SQLiteStore) AddParticipant(p models.Participant) error {
	_, err := s.db.Exec(
		`INSERT INTO participants (id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, nilIfEmpty(p.Name), nilIfEmpty(p.ProgramLabel), nilIfEmpty(p.Phone), p.Status, p.EnrolledAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrParticipantExists
		}
		slog.Error("SQLiteStore AddParticipant failed", "error", err, "email", p.Email)
		return fmt.Errorf("failed to insert participant %s: %w", p.Email, err)
	}
	slog.Debug("SQLiteStore AddParticipant succeeded", "email", p.Email)
	return nil
}

// GetParticipant returns the participant with the given email.
func (s *SQLiteStore) GetParticipant(email string) (*models.Participant, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at
		 FROM participants WHERE email = ?`, email)
	if err != nil {
		slog.Error("SQLiteStore GetParticipant query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrParticipantNotFound
	}
	p, err := scanParticipant(rows)
	if err != nil {
		slog.Error("SQLiteStore GetParticipant scan failed", "error", err, "email", email)
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns all participants ordered by email.
func (s *SQLiteStore) ListParticipants() ([]models.Participant, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at
		 FROM participants ORDER BY email`)
	if err != nil {
		slog.Error("SQLiteStore ListParticipants query failed", "error", err)
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant rows: %w", err)
	}
	slog.Debug("SQLiteStore ListParticipants succeeded", "count", len(out))
	return out, nil
}

// UpdateParticipantStatus updates the enrollment status of a participant.
func (s *SQLiteStore) UpdateParticipantStatus(email string, status models.ParticipantStatus) error {
	res, err := s.db.Exec(
		`UPDATE participants SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE email = ?`, status, email)
	if err != nil {
		slog.Error("SQLiteStore UpdateParticipantStatus failed", "error", err, "email", email)
		return fmt.Errorf("failed to update participant %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// DeleteParticipant removes a participant.
func (s *SQLiteStore) DeleteParticipant(email string) error {
	res, err := s.db.Exec(`DELETE FROM participants WHERE email = ?`, email)
	if err != nil {
		slog.Error("SQLiteStore DeleteParticipant failed", "error", err, "email", email)
		return fmt.Errorf("failed to delete participant %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// AddSession records a coaching session.
func (s *SQLiteStore) AddSession(sess models.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, participant_email, seq, status, date, coach_name) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ParticipantEmail, sess.Seq, sess.Status, sess.Date, nilIfEmpty(sess.CoachName),
	)
	if err != nil {
		slog.Error("SQLiteStore AddSession failed", "error", err, "email", sess.ParticipantEmail, "seq", sess.Seq)
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// CompletedSessions returns completed sessions ordered by date ascending.
func (s *SQLiteStore) CompletedSessions(email string) ([]models.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, seq, status, date, coach_name
		 FROM sessions WHERE participant_email = ? AND status = ? ORDER BY date ASC`,
		email, models.SessionStatusCompleted)
	if err != nil {
		slog.Error("SQLiteStore CompletedSessions query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// CompletedSessionsInSeqSet returns completed sessions whose sequence number
// is in seqs, ordered by date ascending.
func (s *SQLiteStore) CompletedSessionsInSeqSet(email string, seqs []int) ([]models.Session, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seqs)), ",")
	args := []interface{}{email, models.SessionStatusCompleted}
	for _, seq := range seqs {
		args = append(args, seq)
	}
	rows, err := s.db.Query(
		`SELECT id, participant_email, seq, status, date, coach_name
		 FROM sessions WHERE participant_email = ? AND status = ? AND seq IN (`+placeholders+`) ORDER BY date ASC`,
		args...)
	if err != nil {
		slog.Error("SQLiteStore CompletedSessionsInSeqSet query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query milestone sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// AddSubmission appends a survey submission.
func (s *SQLiteStore) AddSubmission(sub models.SurveySubmission) error {
	reasons, err := marshalReasons(sub.NotBookedReasons)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO submissions (id, participant_email, survey_type, session_id, session_seq, feedback,
		 experience_rating, coach_match_rating, nps_score, next_session_booked, testimonial_consent, not_booked_reasons, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ParticipantEmail, sub.SurveyType, nilIfEmpty(sub.SessionID), sub.SessionSeq, sub.Feedback,
		sub.ExperienceRating, sub.CoachMatchRating, sub.NPSScore, sub.NextSessionBooked, sub.TestimonialConsent, reasons, sub.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddSubmission failed", "error", err, "email", sub.ParticipantEmail)
		return fmt.Errorf("failed to insert submission for %s: %w", sub.ParticipantEmail, err)
	}
	slog.Debug("SQLiteStore AddSubmission succeeded", "email", sub.ParticipantEmail, "type", sub.SurveyType)
	return nil
}

// HasSubmissionOfType reports whether any submission of the given type exists.
func (s *SQLiteStore) HasSubmissionOfType(email string, st models.SurveyType) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM submissions WHERE participant_email = ? AND survey_type = ?`,
		email, st).Scan(&count)
	if err != nil {
		slog.Error("SQLiteStore HasSubmissionOfType failed", "error", err, "email", email, "type", st)
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count > 0, nil
}

// HasSubmissionForSession reports whether a submission correlates to the
// session with the given sequence number, by exact seq or by the legacy
// "Session N" token in the feedback text.
func (s *SQLiteStore) HasSubmissionForSession(email string, seq int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM submissions
		 WHERE participant_email = ? AND (session_seq = ? OR (session_seq = 0 AND feedback LIKE ?))`,
		email, seq, "%"+models.SessionToken(seq)+"%").Scan(&count)
	if err != nil {
		slog.Error("SQLiteStore HasSubmissionForSession failed", "error", err, "email", email, "seq", seq)
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count > 0, nil
}

// ListSubmissions returns all submissions for a participant, oldest first.
func (s *SQLiteStore) ListSubmissions(email string) ([]models.SurveySubmission, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, survey_type, session_id, session_seq, feedback,
		 experience_rating, coach_match_rating, nps_score, next_session_booked, testimonial_consent, not_booked_reasons, created_at
		 FROM submissions WHERE participant_email = ? ORDER BY created_at ASC`, email)
	if err != nil {
		slog.Error("SQLiteStore ListSubmissions query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []models.SurveySubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	return out, nil
}

// AddWin appends a win entry.
func (s *SQLiteStore) AddWin(w models.WinEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO wins (id, participant_email, text, session_seq, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.ParticipantEmail, w.Text, winSeqValue(w.SessionSeq), w.Source, w.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddWin failed", "error", err, "email", w.ParticipantEmail)
		return fmt.Errorf("failed to insert win for %s: %w", w.ParticipantEmail, err)
	}
	return nil
}

// ListWins returns all win entries for a participant, oldest first.
func (s *SQLiteStore) ListWins(email string) ([]models.WinEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, text, session_seq, source, created_at
		 FROM wins WHERE participant_email = ? ORDER BY created_at ASC`, email)
	if err != nil {
		slog.Error("SQLiteStore ListWins query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query wins: %w", err)
	}
	defer rows.Close()

	var out []models.WinEntry
	for rows.Next() {
		w, err := scanWin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate win rows: %w", err)
	}
	return out, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// collectSessions drains rows into a session slice.
func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return out, nil
}
