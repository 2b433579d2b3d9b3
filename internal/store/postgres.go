// Package store provides storage backends for CheckPulse.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/stride-coaching/checkpulse/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// AddParticipant stores a new participant.
func (s *PostgresStore) AddParticipant(p models.Participant) error {
	_, err := s.db.Exec(
		`INSERT INTO participants (id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Email, nilIfEmpty(p.Name), nilIfEmpty(p.ProgramLabel), nilIfEmpty(p.Phone), p.Status, p.EnrolledAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrParticipantExists
		}
		slog.Error("PostgresStore AddParticipant failed", "error", err, "email", p.Email)
		return fmt.Errorf("failed to insert participant %s: %w", p.Email, err)
	}
	slog.Debug("PostgresStore AddParticipant succeeded", "email", p.Email)
	return nil
}

// GetParticipant returns the participant with the given email.
func (s *PostgresStore) GetParticipant(email string) (*models.Participant, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at
		 FROM participants WHERE email = $1`, email)
	if err != nil {
		slog.Error("PostgresStore GetParticipant query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrParticipantNotFound
	}
	p, err := scanParticipant(rows)
	if err != nil {
		slog.Error("PostgresStore GetParticipant scan failed", "error", err, "email", email)
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns all participants ordered by email.
func (s *PostgresStore) ListParticipants() ([]models.Participant, error) {
	rows, err := s.db.Query(
		`SELECT id, email, name, program_label, phone, status, enrolled_at, created_at, updated_at
		 FROM participants ORDER BY email`)
	if err != nil {
		slog.Error("PostgresStore ListParticipants query failed", "error", err)
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
	return out, nil
}

// UpdateParticipantStatus updates the enrollment status of a participant.
func (s *PostgresStore) UpdateParticipantStatus(email string, status models.ParticipantStatus) error {
	res, err := s.db.Exec(
		`UPDATE participants SET status = $1, updated_at = NOW() WHERE email = $2`, status, email)
	if err != nil {
		slog.Error("PostgresStore UpdateParticipantStatus failed", "error", err, "email", email)
		return fmt.Errorf("failed to update participant %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// DeleteParticipant removes a participant.
func (s *PostgresStore) DeleteParticipant(email string) error {
	res, err := s.db.Exec(`DELETE FROM participants WHERE email = $1`, email)
	if err != nil {
		slog.Error("PostgresStore DeleteParticipant failed", "error", err, "email", email)
		return fmt.Errorf("failed to delete participant %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// AddSession records a coaching session.
func (s *PostgresStore) AddSession(sess models.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, participant_email, seq, status, date, coach_name) VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.ParticipantEmail, sess.Seq, sess.Status, sess.Date, nilIfEmpty(sess.CoachName),
	)
	if err != nil {
		slog.Error("PostgresStore AddSession failed", "error", err, "email", sess.ParticipantEmail, "seq", sess.Seq)
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// CompletedSessions returns completed sessions ordered by date ascending.
func (s *PostgresStore) CompletedSessions(email string) ([]models.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, seq, status, date, coach_name
		 FROM sessions WHERE participant_email = $1 AND status = $2 ORDER BY date ASC`,
		email, models.SessionStatusCompleted)
	if err != nil {
		slog.Error("PostgresStore CompletedSessions query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// CompletedSessionsInSeqSet returns completed sessions whose sequence number
// is in seqs, ordered by date ascending.
func (s *PostgresStore) CompletedSessionsInSeqSet(email string, seqs []int) ([]models.Session, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(seqs))
	args := []interface{}{email, models.SessionStatusCompleted}
	for i, seq := range seqs {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, seq)
	}
	rows, err := s.db.Query(
		`SELECT id, participant_email, seq, status, date, coach_name
		 FROM sessions WHERE participant_email = $1 AND status = $2 AND seq IN (`+strings.Join(placeholders, ",")+`) ORDER BY date ASC`,
		args...)
	if err != nil {
		slog.Error("PostgresStore CompletedSessionsInSeqSet query failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to query milestone sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// AddSubmission appends a survey submission.
func (s *PostgresStore) AddSubmission(sub models.SurveySubmission) error {
	reasons, err := marshalReasons(sub.NotBookedReasons)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO submissions (id, participant_email, survey_type, session_id, session_seq, feedback,
		 experience_rating, coach_match_rating, nps_score, next_session_booked, testimonial_consent, not_booked_reasons, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.ParticipantEmail, sub.SurveyType, nilIfEmpty(sub.SessionID), sub.SessionSeq, sub.Feedback,
		sub.ExperienceRating, sub.CoachMatchRating, sub.NPSScore, sub.NextSessionBooked, sub.TestimonialConsent, reasons, sub.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddSubmission failed", "error", err, "email", sub.ParticipantEmail)
		return fmt.Errorf("failed to insert submission for %s: %w", sub.ParticipantEmail, err)
	}
	slog.Debug("PostgresStore AddSubmission succeeded", "email", sub.ParticipantEmail, "type", sub.SurveyType)
	return nil
}

// HasSubmissionOfType reports whether any submission of the given type exists.
func (s *PostgresStore) HasSubmissionOfType(email string, st models.SurveyType) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM submissions WHERE participant_email = $1 AND survey_type = $2`,
		email, st).Scan(&count)
	if err != nil {
		slog.Error("PostgresStore HasSubmissionOfType failed", "error", err, "email", email, "type", st)
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count > 0, nil
}

// HasSubmissionForSession reports whether a submission correlates to the
// session with the given sequence number, by exact seq or by the legacy
// "Session N" token in the feedback text.
func (s *PostgresStore) HasSubmissionForSession(email string, seq int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM submissions
		 WHERE participant_email = $1 AND (session_seq = $2 OR (session_seq = 0 AND feedback LIKE $3))`,
		email, seq, "%"+models.SessionToken(seq)+"%").Scan(&count)
	if err != nil {
		slog.Error("PostgresStore HasSubmissionForSession failed", "error", err, "email", email, "seq", seq)
		return false, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count > 0, nil
}

// ListSubmissions returns all submissions for a participant, oldest first.
func (s *PostgresStore) ListSubmissions(email string) ([]models.SurveySubmission, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, survey_type, session_id, session_seq, feedback,
		 experience_rating, coach_match_rating, nps_score, next_session_booked, testimonial_consent, not_booked_reasons, created_at
		 FROM submissions WHERE participant_email = $1 ORDER BY created_at ASC`, email)
	if err != nil {
		slog.Error("PostgresStore ListSubmissions query failed", "error", err, "email", email)
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
func (s *PostgresStore) AddWin(w models.WinEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO wins (id, participant_email, text, session_seq, source, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.ParticipantEmail, w.Text, winSeqValue(w.SessionSeq), w.Source, w.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddWin failed", "error", err, "email", w.ParticipantEmail)
		return fmt.Errorf("failed to insert win for %s: %w", w.ParticipantEmail, err)
	}
	return nil
}

// ListWins returns all win entries for a participant, oldest first.
func (s *PostgresStore) ListWins(email string) ([]models.WinEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, participant_email, text, session_seq, source, created_at
		 FROM wins WHERE participant_email = $1 ORDER BY created_at ASC`, email)
	if err != nil {
		slog.Error("PostgresStore ListWins query failed", "error", err, "email", email)
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

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
