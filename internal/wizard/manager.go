package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/store"
)

// DefaultCompleteDelay is how long the complete acknowledgment is shown
// before the wizard auto-advances to the completion callback and tears down.
const DefaultCompleteDelay = 3 * time.Second

// submitFailedMessage is the inline, dismissible error shown when the
// outbound write fails. The user retries manually; there is no automatic
// retry and no queuing.
const submitFailedMessage = "Your responses couldn't be submitted. Please try again."

// ErrSessionNotFound indicates no wizard exists for the given id.
var ErrSessionNotFound = errors.New("wizard session not found")

// SubmissionBuilder assembles the persisted record from the wizard's answers
// and its effective step order at submit time.
type SubmissionBuilder func(participant models.Participant, pending models.PendingSurvey, answers AnswerSet, order []StepID) models.SurveySubmission

// Opts holds configuration options for the wizard manager.
type Opts struct {
	CompleteDelay time.Duration
	OnComplete    func(models.SurveySubmission)
}

// Option defines a configuration option for the wizard manager.
type Option func(*Opts)

// WithCompleteDelay overrides the delay before a completed wizard advances to
// the completion callback.
func WithCompleteDelay(d time.Duration) Option {
	return func(o *Opts) { o.CompleteDelay = d }
}

// WithOnComplete registers the host's completion callback, invoked with the
// finished record after the complete acknowledgment delay.
func WithOnComplete(fn func(models.SurveySubmission)) Option {
	return func(o *Opts) { o.OnComplete = fn }
}

// Manager owns the in-memory wizard sessions. Dismissing a wizard discards
// all answers; no partial state is ever persisted.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	build    SubmissionBuilder
	sessions map[string]*Wizard
	byEmail  map[string]string

	completeDelay time.Duration
	onComplete    func(models.SurveySubmission)
}

// NewManager creates a wizard manager over the given store.
func NewManager(st store.Store, build SubmissionBuilder, opts ...Option) *Manager {
	cfg := Opts{CompleteDelay: DefaultCompleteDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		store:         st,
		build:         build,
		sessions:      make(map[string]*Wizard),
		byEmail:       make(map[string]string),
		completeDelay: cfg.CompleteDelay,
		onComplete:    cfg.OnComplete,
	}
}

// Snapshot is a read-only view of a wizard, safe to hand to the API layer.
type Snapshot struct {
	ID          string               `json:"id"`
	Step        StepID               `json:"step"`
	Prompt      string               `json:"prompt"`
	Status      Status               `json:"status"`
	Progress    int                  `json:"progress"`
	ActionLabel string               `json:"action_label,omitempty"`
	Order       []StepID             `json:"order"`
	Error       string               `json:"error,omitempty"`
	Pending     models.PendingSurvey `json:"pending"`
}

func snapshotOf(w *Wizard) Snapshot {
	return Snapshot{
		ID:          w.ID,
		Step:        w.CurrentStep(),
		Prompt:      Prompt(w.CurrentStep()),
		Status:      w.Status(),
		Progress:    w.Progress(),
		ActionLabel: w.ActionLabel(),
		Order:       w.Order(),
		Error:       w.SubmitError(),
		Pending:     w.Pending,
	}
}

// Start mounts a new wizard for the participant and pending survey. Any
// existing wizard for the same participant is discarded; reopening always
// restarts at the first step.
func (m *Manager) Start(participant models.Participant, pending models.PendingSurvey) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldID, ok := m.byEmail[participant.Email]; ok {
		slog.Debug("Manager.Start replacing existing wizard", "email", participant.Email, "old_id", oldID)
		delete(m.sessions, oldID)
	}

	w := NewWizard(uuid.NewString(), participant, pending)
	m.sessions[w.ID] = w
	m.byEmail[participant.Email] = w.ID
	slog.Info("Manager.Start wizard mounted", "id", w.ID, "email", participant.Email, "seq", pending.SessionSeq, "survey_type", pending.SurveyType)
	return snapshotOf(w)
}

// Get returns a snapshot of the wizard with the given id.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return snapshotOf(w), nil
}

// Answer records an answer on the wizard and returns the updated snapshot.
func (m *Manager) Answer(id, key, value string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	if err := w.Answer(key, value); err != nil {
		return snapshotOf(w), err
	}
	return snapshotOf(w), nil
}

// Next advances the wizard one step forward.
func (m *Manager) Next(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	if err := w.Next(); err != nil {
		return snapshotOf(w), err
	}
	return snapshotOf(w), nil
}

// Back moves the wizard one step back.
func (m *Manager) Back(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	if err := w.Back(); err != nil {
		return snapshotOf(w), err
	}
	return snapshotOf(w), nil
}

// Cancel dismisses the wizard, discarding all in-memory answers.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	delete(m.byEmail, w.Participant.Email)
	slog.Info("Manager.Cancel wizard dismissed", "id", id, "email", w.Participant.Email)
	return nil
}

// Submit performs the single outbound write for the wizard: normalize the
// answers, persist the submission, and fire the detached win write when the
// wins text is non-empty. On failure control returns to the last interactive
// step with an inline error; the user must retry manually.
func (m *Manager) Submit(ctx context.Context, id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	if err := w.beginSubmit(); err != nil {
		return snapshotOf(w), err
	}

	order := w.Order()
	answers := w.Answers()
	sub := m.build(w.Participant, w.Pending, answers, order)
	sub.ID = uuid.NewString()

	if err := m.store.AddSubmission(sub); err != nil {
		slog.Error("Manager.Submit primary write failed", "error", err, "id", id, "email", w.Participant.Email)
		w.failSubmit(submitFailedMessage)
		return snapshotOf(w), err
	}
	slog.Info("Manager.Submit submission recorded", "id", id, "email", w.Participant.Email, "survey_type", sub.SurveyType)

	// Detached win write: fire-and-forget, logged only, never gates or rolls
	// back the primary submission.
	if wins := answers[string(StepOptionalWins)]; wins != "" {
		go m.appendWin(w.Participant.Email, wins, w.Pending.SessionSeq)
	}

	w.finishSubmit()

	// Auto-advance to the completion callback after a fixed delay, then tear
	// the session down.
	time.AfterFunc(m.completeDelay, func() {
		m.remove(id)
		if m.onComplete != nil {
			m.onComplete(sub)
		}
	})

	return snapshotOf(w), nil
}

// appendWin performs the secondary win write. Failures are logged and never
// surfaced to the user.
func (m *Manager) appendWin(email, text string, seq int) {
	entry := models.WinEntry{
		ID:               uuid.NewString(),
		ParticipantEmail: email,
		Text:             text,
		SessionSeq:       &seq,
		Source:           models.WinSourceCheckInSurvey,
		CreatedAt:        time.Now(),
	}
	if err := m.store.AddWin(entry); err != nil {
		slog.Error("Manager win write failed", "error", err, "email", email, "seq", seq)
		return
	}
	slog.Debug("Manager win recorded", "email", email, "seq", seq)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		delete(m.byEmail, w.Participant.Email)
	}
}
