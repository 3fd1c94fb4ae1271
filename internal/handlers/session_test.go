package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/otiuna/sigpat/internal/config"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/services"
)

func scannerTestConfig() config.ScannerConfig {
	return config.ScannerConfig{
		BurstThreshold: 50 * time.Millisecond,
		IdleReset:      200 * time.Millisecond,
		MinCodeLength:  4,
	}
}

func setupSessionAPI(t *testing.T) (*apiFixture, *SessionHandler) {
	f := setupAPI(t)
	catalog := services.NewGormCatalog(f.db)
	inventory := services.NewInventoryService(f.db, catalog)
	h := NewSessionHandler(f.db, inventory, scannerTestConfig())

	asset := models.Asset{Code: "112236140168", Description: "Monitor LED 24", Active: true}
	if err := f.db.Create(&asset).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	return f, h
}

// startedSessionID creates a session and moves it to EN_PROCESO.
func startedSessionID(t *testing.T, f *apiFixture, h *SessionHandler) uint {
	t.Helper()
	actor := services.Actor{UserID: f.creator.ID, DependencyID: f.creator.DependencyID}
	session, err := h.inventory.CreateSession(context.Background(), actor, services.CreateSessionInput{
		Name:        "Inventario anual",
		ScheduledAt: time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := h.inventory.Transition(actor, session.ID, services.TransitionIniciar); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session.ID
}

func TestSessionVerificationFlow(t *testing.T) {
	f, h := setupSessionAPI(t)
	id := startedSessionID(t, f, h)

	body := map[string]any{"asset_code": "112236140168"}
	req := request(t, f.creator, http.MethodPost, "/sessions/1/verifications", body)
	req.SetPathValue("id", fmt.Sprint(id))
	rr := httptest.NewRecorder()
	h.SubmitVerification(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var entry models.VerificationEntry
	decodeBody(t, rr, &entry)
	if entry.Outcome != models.OutcomeEncontrado {
		t.Errorf("outcome = %s, want ENCONTRADO", entry.Outcome)
	}
	if entry.Description != "Monitor LED 24" {
		t.Errorf("catalog snapshot not taken: %q", entry.Description)
	}

	// Same code again: 409, counters untouched.
	req = request(t, f.creator, http.MethodPost, "/sessions/1/verifications", body)
	req.SetPathValue("id", fmt.Sprint(id))
	rr = httptest.NewRecorder()
	h.SubmitVerification(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rr.Code)
	}
	session, err := h.inventory.GetSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if session.TotalVerified != 1 || session.TotalFound != 1 {
		t.Errorf("counters = verified %d found %d, want 1/1", session.TotalVerified, session.TotalFound)
	}
}

func keystrokes(code string, gap time.Duration) []map[string]any {
	events := make([]map[string]any, 0, len(code)+1)
	offset := time.Duration(0)
	for _, r := range code {
		events = append(events, map[string]any{"char": string(r), "offset_ms": offset.Milliseconds()})
		offset += gap
	}
	events = append(events, map[string]any{"char": "\n", "offset_ms": offset.Milliseconds()})
	return events
}

func TestSessionVerificationClassifiesKeystrokes(t *testing.T) {
	f, h := setupSessionAPI(t)
	id := startedSessionID(t, f, h)

	// A 10ms burst is scanner input.
	body := map[string]any{
		"asset_code": "112236140168",
		"keystrokes": keystrokes("112236140168", 10*time.Millisecond),
	}
	req := request(t, f.creator, http.MethodPost, "/sessions/1/verifications", body)
	req.SetPathValue("id", fmt.Sprint(id))
	rr := httptest.NewRecorder()
	h.SubmitVerification(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var entry models.VerificationEntry
	decodeBody(t, rr, &entry)
	if entry.InputDevice != models.DeviceScanner {
		t.Errorf("input device = %s, want ESCANER", entry.InputDevice)
	}

	// 120ms between keys is human typing.
	body = map[string]any{
		"asset_code":   "999988887777",
		"outcome":      string(models.OutcomeSobrante),
		"keystrokes":   keystrokes("999988887777", 120*time.Millisecond),
		"observations": "sin etiqueta",
	}
	req = request(t, f.creator, http.MethodPost, "/sessions/1/verifications", body)
	req.SetPathValue("id", fmt.Sprint(id))
	rr = httptest.NewRecorder()
	h.SubmitVerification(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &entry)
	if entry.InputDevice != models.DeviceManual {
		t.Errorf("input device = %s, want MANUAL", entry.InputDevice)
	}
}

func TestSessionTransitionConflictStatus(t *testing.T) {
	f, h := setupSessionAPI(t)
	actor := services.Actor{UserID: f.creator.ID, DependencyID: f.creator.DependencyID}
	session, err := h.inventory.CreateSession(context.Background(), actor, services.CreateSessionInput{
		Name:        "Inventario anual",
		ScheduledAt: time.Date(2024, 11, 4, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// finalizar straight from PROGRAMADA is illegal.
	req := request(t, f.creator, http.MethodPost, "/sessions/1/transition",
		map[string]any{"action": "finalizar"})
	req.SetPathValue("id", fmt.Sprint(session.ID))
	rr := httptest.NewRecorder()
	h.Transition(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", rr.Code, rr.Body.String())
	}

	req = request(t, f.creator, http.MethodPost, "/sessions/1/transition",
		map[string]any{"action": "iniciar"})
	req.SetPathValue("id", fmt.Sprint(session.ID))
	rr = httptest.NewRecorder()
	h.Transition(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	var updated models.InventorySession
	decodeBody(t, rr, &updated)
	if updated.State != models.SessionEnProceso {
		t.Errorf("state = %s, want EN_PROCESO", updated.State)
	}
}

func TestSessionProgressEndpoint(t *testing.T) {
	f, h := setupSessionAPI(t)
	id := startedSessionID(t, f, h)

	body := map[string]any{"asset_code": "112236140168"}
	req := request(t, f.creator, http.MethodPost, "/sessions/1/verifications", body)
	req.SetPathValue("id", fmt.Sprint(id))
	h.SubmitVerification(httptest.NewRecorder(), req)

	req = request(t, f.creator, http.MethodGet, "/sessions/1/progress", nil)
	req.SetPathValue("id", fmt.Sprint(id))
	rr := httptest.NewRecorder()
	h.Progress(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var progress services.Progress
	decodeBody(t, rr, &progress)
	if progress.Advance != 1.0 {
		t.Errorf("advance = %v, want 1.0", progress.Advance)
	}
	if progress.Pending != 0 {
		t.Errorf("pending = %d, want 0", progress.Pending)
	}
}
