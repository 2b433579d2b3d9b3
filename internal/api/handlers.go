// Package api provides HTTP handlers for participant and survey endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/store"
)

// participantsHandler routes /participants and its sub-resources.
func (s *Server) participantsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("participantsHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/participants")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// /participants
		switch r.Method {
		case http.MethodPost:
			s.enrollParticipantHandler(w, r)
		case http.MethodGet:
			s.listParticipantsHandler(w, r)
		default:
			methodNotAllowed(w, "GET, POST")
		}
		return
	}

	segments := strings.Split(path, "/")
	email := segments[0]

	if len(segments) == 1 {
		// /participants/{email}
		switch r.Method {
		case http.MethodGet:
			s.getParticipantHandler(w, r, email)
		case http.MethodDelete:
			s.deleteParticipantHandler(w, r, email)
		default:
			methodNotAllowed(w, "GET, DELETE")
		}
		return
	}

	if len(segments) == 2 {
		// /participants/{email}/{resource}
		switch segments[1] {
		case "pending-survey":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, "GET")
				return
			}
			s.pendingSurveyHandler(w, r, email)
		case "wizard":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, "POST")
				return
			}
			s.startWizardHandler(w, r, email)
		case "wins":
			switch r.Method {
			case http.MethodPost:
				s.addWinHandler(w, r, email)
			case http.MethodGet:
				s.listWinsHandler(w, r, email)
			default:
				methodNotAllowed(w, "GET, POST")
			}
		case "sessions":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, "POST")
				return
			}
			s.ingestSessionHandler(w, r, email)
		default:
			writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown participant endpoint"))
		}
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown participant endpoint"))
}

// enrollParticipantHandler handles participant enrollment (POST /participants)
func (s *Server) enrollParticipantHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req models.EnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in enrollParticipantHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := req.Validate(); err != nil {
		slog.Warn("enrollParticipantHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	now := time.Now()
	p := models.Participant{
		ID:           "part_" + uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		ProgramLabel: req.ProgramLabel,
		Phone:        req.Phone,
		Status:       models.ParticipantStatusActive,
		EnrolledAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.st.AddParticipant(p); err != nil {
		if errors.Is(err, store.ErrParticipantExists) {
			slog.Warn("Participant already enrolled", "email", req.Email)
			writeJSONResponse(w, http.StatusConflict, models.Error("Participant already enrolled"))
			return
		}
		slog.Error("Error adding participant", "error", err, "email", req.Email)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to enroll participant"))
		return
	}

	slog.Info("Participant enrolled", "email", p.Email, "program_label", p.ProgramLabel)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(p))
}

// listParticipantsHandler handles GET /participants
func (s *Server) listParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	participants, err := s.st.ListParticipants()
	if err != nil {
		slog.Error("Error listing participants", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list participants"))
		return
	}
	slog.Debug("participants listed", "count", len(participants))
	writeJSONResponse(w, http.StatusOK, models.Success(participants))
}

// getParticipantHandler handles GET /participants/{email}
func (s *Server) getParticipantHandler(w http.ResponseWriter, r *http.Request, email string) {
	p, err := s.st.GetParticipant(email)
	if err != nil {
		slog.Warn("getParticipantHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(p))
}

// deleteParticipantHandler handles DELETE /participants/{email}
func (s *Server) deleteParticipantHandler(w http.ResponseWriter, r *http.Request, email string) {
	if err := s.st.DeleteParticipant(email); err != nil {
		slog.Warn("deleteParticipantHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}
	slog.Info("Participant deleted", "email", email)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Participant deleted", nil))
}

// pendingSurveyHandler handles GET /participants/{email}/pending-survey.
// The result is the pending checkpoint descriptor or null. Resolver read
// failures degrade to null; this endpoint never returns 5xx for them.
func (s *Server) pendingSurveyHandler(w http.ResponseWriter, r *http.Request, email string) {
	p, err := s.st.GetParticipant(email)
	if err != nil {
		slog.Warn("pendingSurveyHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}

	pending := s.resolver.Resolve(r.Context(), *p)
	slog.Debug("pendingSurveyHandler resolved", "email", email, "pending", pending != nil)
	writeJSONResponse(w, http.StatusOK, models.Success(pending))
}

// startWizardHandler handles POST /participants/{email}/wizard. It resolves
// the pending checkpoint and mounts a fresh wizard over it.
func (s *Server) startWizardHandler(w http.ResponseWriter, r *http.Request, email string) {
	p, err := s.st.GetParticipant(email)
	if err != nil {
		slog.Warn("startWizardHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}

	pending := s.resolver.Resolve(r.Context(), *p)
	if pending == nil {
		slog.Debug("startWizardHandler no survey due", "email", email)
		writeJSONResponse(w, http.StatusNotFound, models.Error("No checkpoint survey is due"))
		return
	}

	snap := s.wizards.Start(*p, *pending)
	slog.Info("Wizard started", "email", email, "wizard_id", snap.ID, "survey_type", pending.SurveyType)
	writeJSONResponse(w, http.StatusCreated, models.Success(snap))
}

// addWinHandler handles POST /participants/{email}/wins
func (s *Server) addWinHandler(w http.ResponseWriter, r *http.Request, email string) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	if _, err := s.st.GetParticipant(email); err != nil {
		slog.Warn("addWinHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}

	var req models.WinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in addWinHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("addWinHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	entry := models.WinEntry{
		ID:               uuid.NewString(),
		ParticipantEmail: email,
		Text:             req.Text,
		SessionSeq:       req.SessionSeq,
		Source:           models.WinSourceManual,
		CreatedAt:        time.Now(),
	}
	if err := s.st.AddWin(entry); err != nil {
		slog.Error("Error adding win", "error", err, "email", email)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record win"))
		return
	}

	slog.Info("Win recorded", "email", email, "source", entry.Source)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(entry))
}

// listWinsHandler handles GET /participants/{email}/wins
func (s *Server) listWinsHandler(w http.ResponseWriter, r *http.Request, email string) {
	wins, err := s.st.ListWins(email)
	if err != nil {
		slog.Error("Error listing wins", "error", err, "email", email)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list wins"))
		return
	}
	slog.Debug("wins listed", "email", email, "count", len(wins))
	writeJSONResponse(w, http.StatusOK, models.Success(wins))
}

// ingestSessionHandler handles POST /participants/{email}/sessions, the
// ingest surface used by the upstream sync job.
func (s *Server) ingestSessionHandler(w http.ResponseWriter, r *http.Request, email string) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	if _, err := s.st.GetParticipant(email); err != nil {
		slog.Warn("ingestSessionHandler participant not found", "email", email, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		return
	}

	var req models.SessionIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in ingestSessionHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("ingestSessionHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	status := req.Status
	if status == "" {
		status = models.SessionStatusCompleted
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	sess := models.Session{
		ID:               "sess_" + uuid.NewString(),
		ParticipantEmail: email,
		Seq:              req.Seq,
		Status:           status,
		Date:             date,
		CoachName:        req.CoachName,
	}
	if err := s.st.AddSession(sess); err != nil {
		slog.Error("Error adding session", "error", err, "email", email, "seq", req.Seq)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record session"))
		return
	}

	slog.Info("Session recorded", "email", email, "seq", sess.Seq, "status", sess.Status)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(sess))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	// Active participant count doubles as a store liveness probe.
	if participants, err := s.st.ListParticipants(); err != nil {
		slog.Warn("Health check: failed to list participants", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to fetch participant metrics"
	} else {
		healthData["active_participants"] = countActive(participants)
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, healthData)
}

func countActive(participants []models.Participant) int {
	n := 0
	for _, p := range participants {
		if p.Status == models.ParticipantStatusActive {
			n++
		}
	}
	return n
}
