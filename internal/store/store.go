// Package store provides storage backends for CheckPulse.
//
// One Store interface covers the session directory, submission directory,
// program lookup (via the participant record), and win store. Backends exist
// for in-memory use (tests), SQLite, and PostgreSQL.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/stride-coaching/checkpulse/internal/models"
)

// Sentinel errors shared by all backends.
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantExists   = errors.New("participant already enrolled")
)

// Store is the persistence interface used by the resolver, wizard, and API.
type Store interface {
	// Participant registry
	AddParticipant(p models.Participant) error
	GetParticipant(email string) (*models.Participant, error)
	ListParticipants() ([]models.Participant, error)
	UpdateParticipantStatus(email string, status models.ParticipantStatus) error
	DeleteParticipant(email string) error

	// Session directory (read-only to the survey engine; AddSession exists
	// for the upstream sync job's ingest endpoint and for tests)
	AddSession(s models.Session) error
	CompletedSessions(email string) ([]models.Session, error)
	CompletedSessionsInSeqSet(email string, seqs []int) ([]models.Session, error)

	// Submission directory
	AddSubmission(sub models.SurveySubmission) error
	HasSubmissionOfType(email string, st models.SurveyType) (bool, error)
	HasSubmissionForSession(email string, seq int) (bool, error)
	ListSubmissions(email string) ([]models.SurveySubmission, error)

	// Win store (append-only)
	AddWin(w models.WinEntry) error
	ListWins(email string) ([]models.WinEntry, error)

	Close() error
}

// InMemoryStore is a mutex-guarded in-memory Store used in tests and when no
// database DSN is configured.
type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
	sessions     []models.Session
	submissions  []models.SurveySubmission
	wins         []models.WinEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{participants: make(map[string]models.Participant)}
}

// AddParticipant stores a new participant keyed by email.
func (s *InMemoryStore) AddParticipant(p models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.Email]; ok {
		return ErrParticipantExists
	}
	s.participants[p.Email] = p
	return nil
}

// GetParticipant returns the participant with the given email.
func (s *InMemoryStore) GetParticipant(email string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[email]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

// ListParticipants returns all participants sorted by email.
func (s *InMemoryStore) ListParticipants() ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// UpdateParticipantStatus updates the enrollment status of a participant.
func (s *InMemoryStore) UpdateParticipantStatus(email string, status models.ParticipantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[email]
	if !ok {
		return ErrParticipantNotFound
	}
	p.Status = status
	s.participants[email] = p
	return nil
}

// DeleteParticipant removes a participant.
func (s *InMemoryStore) DeleteParticipant(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[email]; !ok {
		return ErrParticipantNotFound
	}
	delete(s.participants, email)
	return nil
}

// AddSession records a coaching session.
func (s *InMemoryStore) AddSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sess)
	return nil
}

// CompletedSessions returns completed sessions for a participant ordered by
// date ascending.
func (s *InMemoryStore) CompletedSessions(email string) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if sess.ParticipantEmail == email && sess.Status == models.SessionStatusCompleted {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// CompletedSessionsInSeqSet returns completed sessions whose sequence number
// is in seqs, ordered by date ascending.
func (s *InMemoryStore) CompletedSessionsInSeqSet(email string, seqs []int) ([]models.Session, error) {
	all, err := s.CompletedSessions(email)
	if err != nil {
		return nil, err
	}
	want := make(map[int]bool, len(seqs))
	for _, seq := range seqs {
		want[seq] = true
	}
	var out []models.Session
	for _, sess := range all {
		if want[sess.Seq] {
			out = append(out, sess)
		}
	}
	return out, nil
}

// AddSubmission appends a survey submission. Submissions are immutable.
func (s *InMemoryStore) AddSubmission(sub models.SurveySubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}

// HasSubmissionOfType reports whether any submission of the given type exists
// for the participant.
func (s *InMemoryStore) HasSubmissionOfType(email string, st models.SurveyType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ParticipantEmail == email && sub.SurveyType == st {
			return true, nil
		}
	}
	return false, nil
}

// HasSubmissionForSession reports whether a submission correlates to the
// session with the given sequence number: an exact session_seq match, or, for
// legacy records without one, the "Session N" token appearing in the feedback
// text.
func (s *InMemoryStore) HasSubmissionForSession(email string, seq int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token := models.SessionToken(seq)
	for _, sub := range s.submissions {
		if sub.ParticipantEmail != email {
			continue
		}
		if sub.SessionSeq == seq {
			return true, nil
		}
		if sub.SessionSeq == 0 && strings.Contains(sub.Feedback, token) {
			return true, nil
		}
	}
	return false, nil
}

// ListSubmissions returns all submissions for a participant in insertion order.
func (s *InMemoryStore) ListSubmissions(email string) ([]models.SurveySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SurveySubmission
	for _, sub := range s.submissions {
		if sub.ParticipantEmail == email {
			out = append(out, sub)
		}
	}
	return out, nil
}

// AddWin appends a win entry.
func (s *InMemoryStore) AddWin(w models.WinEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wins = append(s.wins, w)
	return nil
}

// ListWins returns all win entries for a participant in insertion order.
func (s *InMemoryStore) ListWins(email string) ([]models.WinEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WinEntry
	for _, w := range s.wins {
		if w.ParticipantEmail == email {
			out = append(out, w)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
