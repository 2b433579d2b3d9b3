// Package reminder implements the scheduled SMS nudge sweep.
//
// The sweep runs outside the survey engine's request path: it re-derives each
// active participant's pending checkpoint and sends a short SMS when one is
// due. Failures are logged and the sweep moves on; a bad phone number or a
// Twilio outage must never abort the rest of the run.
package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/notify"
	"github.com/stride-coaching/checkpulse/internal/resolver"
	"github.com/stride-coaching/checkpulse/internal/store"
)

// Service runs reminder sweeps over the participant registry.
type Service struct {
	st       store.Store
	resolver *resolver.Resolver
	sender   notify.Sender
}

// NewService creates a reminder service.
func NewService(st store.Store, r *resolver.Resolver, sender notify.Sender) *Service {
	return &Service{st: st, resolver: r, sender: sender}
}

// Sweep sends one SMS nudge to every active participant with a phone number
// and a pending checkpoint. It returns the number of reminders sent.
func (s *Service) Sweep(ctx context.Context) int {
	participants, err := s.st.ListParticipants()
	if err != nil {
		slog.Error("Service.Sweep failed to list participants", "error", err)
		return 0
	}

	sent := 0
	for _, p := range participants {
		if p.Status != models.ParticipantStatusActive || p.Phone == "" {
			continue
		}
		pending := s.resolver.Resolve(ctx, p)
		if pending == nil {
			continue
		}
		body := reminderBody(p, *pending)
		if err := s.sender.SendSMS(ctx, p.Phone, body); err != nil {
			slog.Error("Service.Sweep reminder send failed", "error", err, "email", p.Email)
			continue
		}
		slog.Info("Service.Sweep reminder sent", "email", p.Email, "seq", pending.SessionSeq, "survey_type", pending.SurveyType)
		sent++
	}
	slog.Debug("Service.Sweep finished", "sent", sent, "participants", len(participants))
	return sent
}

// reminderBody builds the nudge text for one pending checkpoint.
func reminderBody(p models.Participant, pending models.PendingSurvey) string {
	name := p.Name
	if name == "" {
		name = "there"
	}
	if pending.SurveyType == models.SurveyTypeEndOfProgram {
		return fmt.Sprintf("Hi %s, congrats on wrapping up your coaching program! Take two minutes to share your final feedback on your dashboard.", name)
	}
	return fmt.Sprintf("Hi %s, your check-in after session %d with %s is ready. Take two minutes to share how it's going on your dashboard.", name, pending.SessionSeq, pending.CoachName)
}
