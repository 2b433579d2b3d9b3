// Package resolver decides whether a checkpoint survey is due for a
// participant right now, and which one.
//
// Resolution is an ordered chain of strategies tried with short-circuit on
// first success: an optional precomputed hint from the host dashboard, then
// the end-of-program check, then the milestone scan. Every read failure
// degrades to "nothing pending" so a flaky store never takes down the
// dashboard; only program-type resolution is infallible (unknown labels fall
// back to the SCALE schedule).
package resolver

import (
	"context"
	"log/slog"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/schedule"
	"github.com/stride-coaching/checkpulse/internal/store"
)

// HintSource supplies an authoritative precomputed answer, when one exists.
// The host dashboard precomputes pending surveys for some participants; when
// authoritative is true the resolver trusts the descriptor (or its absence)
// verbatim and skips local computation.
type HintSource interface {
	PendingSurveyHint(ctx context.Context, participant models.Participant) (pending *models.PendingSurvey, authoritative bool, err error)
}

// Resolver computes the zero-or-one pending checkpoint survey for a
// participant.
type Resolver struct {
	store store.Store
	hints HintSource // optional
}

// New creates a Resolver over the given store. hints may be nil.
func New(st store.Store, hints HintSource) *Resolver {
	return &Resolver{store: st, hints: hints}
}

// Resolve returns the pending survey descriptor for the participant, or nil
// when nothing is due. It never returns an error for store read failures;
// those degrade to nil.
func (r *Resolver) Resolve(ctx context.Context, p models.Participant) *models.PendingSurvey {
	slog.Debug("Resolver.Resolve invoked", "email", p.Email, "program_label", p.ProgramLabel)

	if pending, done := r.resolveFromHint(ctx, p); done {
		return pending
	}

	programType := schedule.ParseProgramType(p.ProgramLabel)
	sched := schedule.ScheduleFor(programType)

	if pending, done := r.resolveEndOfProgram(p, sched); done {
		return pending
	}

	return r.resolveMilestone(p, sched)
}

// resolveFromHint consults the optional hint source. The second return is
// true when the hint was authoritative and resolution should stop.
func (r *Resolver) resolveFromHint(ctx context.Context, p models.Participant) (*models.PendingSurvey, bool) {
	if r.hints == nil {
		return nil, false
	}
	pending, authoritative, err := r.hints.PendingSurveyHint(ctx, p)
	if err != nil {
		slog.Warn("Resolver hint source failed, falling back to local computation", "error", err, "email", p.Email)
		return nil, false
	}
	if !authoritative {
		return nil, false
	}
	slog.Debug("Resolver using authoritative hint", "email", p.Email, "pending", pending != nil)
	return pending, true
}

// resolveEndOfProgram checks whether the participant has reached the
// program's completion threshold without an end-of-program submission. This
// takes priority over any still-unresolved earlier milestone. The second
// return is true when an end-of-program survey is due.
func (r *Resolver) resolveEndOfProgram(p models.Participant, sched schedule.MilestoneSchedule) (*models.PendingSurvey, bool) {
	completed, err := r.store.CompletedSessions(p.Email)
	if err != nil {
		slog.Warn("Resolver completed-session read failed, treating as nothing pending", "error", err, "email", p.Email)
		return nil, true
	}
	if len(completed) == 0 {
		slog.Debug("Resolver found no completed sessions", "email", p.Email)
		return nil, true
	}
	if len(completed) < sched.Threshold {
		return nil, false
	}

	hasEnd, err := r.store.HasSubmissionOfType(p.Email, models.SurveyTypeEndOfProgram)
	if err != nil {
		slog.Warn("Resolver end-of-program submission read failed, treating as nothing pending", "error", err, "email", p.Email)
		return nil, true
	}
	if hasEnd {
		slog.Debug("Resolver end-of-program already submitted", "email", p.Email)
		return nil, true
	}

	// Most recently completed session supplies the coach/date context.
	last := completed[len(completed)-1]
	slog.Info("Resolver end-of-program survey due", "email", p.Email, "seq", last.Seq)
	return &models.PendingSurvey{
		SessionID:   last.ID,
		SessionSeq:  last.Seq,
		SessionDate: last.Date,
		CoachName:   last.CoachName,
		SurveyType:  models.SurveyTypeEndOfProgram,
	}, true
}

// resolveMilestone scans milestone sessions oldest-first and returns the
// first with no matching submission, so unresolved gaps surface before later
// checkpoints.
func (r *Resolver) resolveMilestone(p models.Participant, sched schedule.MilestoneSchedule) *models.PendingSurvey {
	candidates, err := r.store.CompletedSessionsInSeqSet(p.Email, sched.Milestones)
	if err != nil {
		slog.Warn("Resolver milestone-session read failed, treating as nothing pending", "error", err, "email", p.Email)
		return nil
	}

	for _, sess := range candidates {
		resolved, err := r.store.HasSubmissionForSession(p.Email, sess.Seq)
		if err != nil {
			slog.Warn("Resolver submission lookup failed, treating as nothing pending", "error", err, "email", p.Email, "seq", sess.Seq)
			return nil
		}
		if resolved {
			continue
		}
		slog.Info("Resolver milestone survey due", "email", p.Email, "seq", sess.Seq)
		return &models.PendingSurvey{
			SessionID:   sess.ID,
			SessionSeq:  sess.Seq,
			SessionDate: sess.Date,
			CoachName:   sess.CoachName,
			SurveyType:  schedule.MilestoneSurveyType(sess.Seq),
		}
	}

	slog.Debug("Resolver found no pending survey", "email", p.Email)
	return nil
}
