// Package testutil provides common test utilities and helpers for CheckPulse tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stride-coaching/checkpulse/internal/api"
	"github.com/stride-coaching/checkpulse/internal/models"
	"github.com/stride-coaching/checkpulse/internal/store"
	"github.com/stride-coaching/checkpulse/internal/wizard"
)

// NewTestServer creates a test API server over an in-memory store with a
// short wizard completion delay. It centralizes the wiring used across
// integration-style tests.
func NewTestServer() (*api.Server, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	server := api.NewServer(st, api.WithWizardOptions(wizard.WithCompleteDelay(10*time.Millisecond)))
	return server, st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON envelope and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// SeedParticipant adds an active participant with the given number of
// completed sessions, one day apart and ending today.
func SeedParticipant(t *testing.T, st store.Store, email, programLabel string, sessions int) {
	t.Helper()
	now := time.Now()
	err := st.AddParticipant(models.Participant{
		ID:           "part_" + email,
		Email:        email,
		ProgramLabel: programLabel,
		Status:       models.ParticipantStatusActive,
		EnrolledAt:   now.AddDate(0, 0, -sessions),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("failed to seed participant %s: %v", email, err)
	}
	for seq := 1; seq <= sessions; seq++ {
		err := st.AddSession(models.Session{
			ID:               email + "-sess-" + string(rune('a'+seq-1)),
			ParticipantEmail: email,
			Seq:              seq,
			Status:           models.SessionStatusCompleted,
			Date:             now.AddDate(0, 0, seq-sessions),
			CoachName:        "Coach",
		})
		if err != nil {
			t.Fatalf("failed to seed session %d for %s: %v", seq, email, err)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
