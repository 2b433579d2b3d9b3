package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stride-coaching/checkpulse/internal/models"
)

func TestNewTestServerServesHealth(t *testing.T) {
	server, st := NewTestServer()
	defer st.Close()

	req := CreateHTTPRequest(t, "GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "health check")
}

func TestSeedParticipant(t *testing.T) {
	_, st := NewTestServer()
	defer st.Close()

	SeedParticipant(t, st, "seed@corp.example", "GROW", 3)

	p, err := st.GetParticipant("seed@corp.example")
	if err != nil {
		t.Fatalf("seeded participant missing: %v", err)
	}
	if p.Status != models.ParticipantStatusActive {
		t.Errorf("status = %s, want active", p.Status)
	}
	sessions, err := st.CompletedSessions("seed@corp.example")
	if err != nil {
		t.Fatalf("CompletedSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Errorf("seeded %d sessions, want 3", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].Date.Before(sessions[i-1].Date) {
			t.Error("seeded sessions should be ordered by date")
		}
	}
}

func TestAssertJSONResponse(t *testing.T) {
	server, st := NewTestServer()
	defer st.Close()

	req := CreateHTTPRequest(t, "POST", "/participants", models.EnrollmentRequest{Email: "json@corp.example"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	AssertHTTPStatus(t, http.StatusCreated, rr.Code, "enrollment")
	response := AssertJSONResponse(t, rr, string(models.APIStatusRecorded))
	if response["result"] == nil {
		t.Error("expected enrolled participant in result")
	}

	var round models.Participant
	MustUnmarshalJSON(t, MustMarshalJSON(t, response["result"]), &round)
	if round.Email != "json@corp.example" {
		t.Errorf("round-tripped email = %s", round.Email)
	}
}
