// Package api provides HTTP handlers for the checkpoint wizard lifecycle.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/wizard"
)

// answerRequest is the payload for POST /wizard/{id}/answer.
type answerRequest struct {
	Step  string `json:"step"`
	Value string `json:"value"`
}

// wizardHandler routes /wizard/{id} and its action sub-paths.
func (s *Server) wizardHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("wizardHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/wizard/")
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown wizard endpoint"))
		return
	}
	id := segments[0]

	if len(segments) == 1 {
		// /wizard/{id}
		switch r.Method {
		case http.MethodGet:
			s.getWizardHandler(w, r, id)
		case http.MethodDelete:
			s.cancelWizardHandler(w, r, id)
		default:
			methodNotAllowed(w, "GET, DELETE")
		}
		return
	}

	if len(segments) == 2 {
		// /wizard/{id}/{action}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		switch segments[1] {
		case "answer":
			s.answerWizardHandler(w, r, id)
		case "next":
			s.nextWizardHandler(w, r, id)
		case "back":
			s.backWizardHandler(w, r, id)
		case "submit":
			s.submitWizardHandler(w, r, id)
		default:
			writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown wizard action"))
		}
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown wizard endpoint"))
}

// getWizardHandler handles GET /wizard/{id}
func (s *Server) getWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.wizards.Get(id)
	if err != nil {
		slog.Warn("getWizardHandler wizard not found", "wizard_id", id, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Wizard not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// cancelWizardHandler handles DELETE /wizard/{id}. Dismissal discards all
// in-memory answers.
func (s *Server) cancelWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.wizards.Cancel(id); err != nil {
		slog.Warn("cancelWizardHandler wizard not found", "wizard_id", id, "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Wizard not found"))
		return
	}
	slog.Info("Wizard dismissed", "wizard_id", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Wizard dismissed", nil))
}

// answerWizardHandler handles POST /wizard/{id}/answer
func (s *Server) answerWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode JSON in answerWizardHandler", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Step == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: step"))
		return
	}

	snap, err := s.wizards.Answer(id, req.Step, req.Value)
	if err != nil {
		s.writeWizardError(w, id, err, snap)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// nextWizardHandler handles POST /wizard/{id}/next
func (s *Server) nextWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.wizards.Next(id)
	if err != nil {
		s.writeWizardError(w, id, err, snap)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// backWizardHandler handles POST /wizard/{id}/back
func (s *Server) backWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.wizards.Back(id)
	if err != nil {
		s.writeWizardError(w, id, err, snap)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// submitWizardHandler handles POST /wizard/{id}/submit. On a failed outbound
// write the wizard returns to its last interactive step with an inline error
// and the user retries manually; the snapshot in the error envelope carries
// that state.
func (s *Server) submitWizardHandler(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.wizards.Submit(r.Context(), id)
	if err != nil {
		if errors.Is(err, wizard.ErrSessionNotFound) || errors.Is(err, wizard.ErrAnswerRequired) || errors.Is(err, wizard.ErrNotInteractive) {
			s.writeWizardError(w, id, err, snap)
			return
		}
		slog.Error("submitWizardHandler submission failed", "wizard_id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.NewAPIResponseBuilder().
			WithStatus(models.APIStatusError).
			WithMessage("Failed to submit survey").
			WithResult(snap).
			Build())
		return
	}
	slog.Info("Wizard submitted", "wizard_id", id, "survey_type", snap.Pending.SurveyType)
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// writeWizardError maps wizard navigation errors onto HTTP status codes.
// Validation blocks are client errors, not failures.
func (s *Server) writeWizardError(w http.ResponseWriter, id string, err error, snap wizard.Snapshot) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		slog.Warn("wizard not found", "wizard_id", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Wizard not found"))
	default:
		slog.Debug("wizard transition rejected", "wizard_id", id, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.NewAPIResponseBuilder().
			WithStatus(models.APIStatusError).
			WithMessage(err.Error()).
			WithResult(snap).
			Build())
	}
}
