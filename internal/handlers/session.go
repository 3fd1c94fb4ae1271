package handlers

import (
	"net/http"
	"time"

	"github.com/otiuna/sigpat/internal/config"
	"github.com/otiuna/sigpat/internal/httpx"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/scanner"
	"github.com/otiuna/sigpat/internal/services"
	"gorm.io/gorm"
)

// SessionHandler serves the inventory session endpoints.
type SessionHandler struct {
	db         *gorm.DB
	inventory  *services.InventoryService
	scannerCfg config.ScannerConfig
}

func NewSessionHandler(db *gorm.DB, inventory *services.InventoryService, scannerCfg config.ScannerConfig) *SessionHandler {
	return &SessionHandler{db: db, inventory: inventory, scannerCfg: scannerCfg}
}

// Create schedules an inventory session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(h.db, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in services.CreateSessionInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.inventory.CreateSession(r.Context(), actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

// List returns sessions filtered by ?state=.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	state := models.SessionState(r.URL.Query().Get("state"))

	sessions, total, err := h.inventory.ListSessions(state, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pagedResponse{Items: sessions, Total: total, Page: page, Limit: limit})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.inventory.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

type transitionRequest struct {
	Action services.TransitionAction `json:"action"`
}

// Transition applies one lifecycle action (iniciar, pausar, finalizar,
// cancelar).
func (h *SessionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(h.db, r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req transitionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.inventory.Transition(actor, id, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

// keystrokeEvent is one raw key with its offset from the first key of the
// capture, in milliseconds. Clients that capture raw timing send these so
// the server can classify the input device.
type keystrokeEvent struct {
	Char     string `json:"char"`
	OffsetMs int64  `json:"offset_ms"`
}

type verificationRequest struct {
	services.SubmitVerificationInput
	Keystrokes []keystrokeEvent `json:"keystrokes,omitempty"`
}

// SubmitVerification records one verification entry. When the request
// carries raw keystroke timing and no explicit input device, the timing is
// replayed through the classifier to tag the entry ESCANER or MANUAL.
func (h *SessionHandler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(h.db, r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req verificationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.InputDevice == "" && len(req.Keystrokes) > 0 {
		req.InputDevice = h.classify(req.Keystrokes)
	}
	entry, err := h.inventory.SubmitVerification(r.Context(), actor, id, req.SubmitVerificationInput)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// classify replays captured keystrokes through the burst classifier.
func (h *SessionHandler) classify(events []keystrokeEvent) models.InputDevice {
	c := scanner.New(scanner.Config{
		BurstThreshold: h.scannerCfg.BurstThreshold,
		IdleReset:      h.scannerCfg.IdleReset,
		MinLength:      h.scannerCfg.MinCodeLength,
	})
	base := time.Unix(0, 0)
	var last scanner.Result
	var flushed bool
	for _, ev := range events {
		for _, r := range ev.Char {
			if res, ok := c.Feed(r, base.Add(time.Duration(ev.OffsetMs)*time.Millisecond)); ok {
				last, flushed = res, true
			}
		}
	}
	if !flushed {
		// No terminator in the capture: force a flush of the buffer.
		if res, ok := c.Feed('\n', base); ok {
			last, flushed = res, true
		}
	}
	if flushed && last.Source == scanner.SourceScanner {
		return models.DeviceScanner
	}
	return models.DeviceManual
}

// Entries lists the verification entries of a session.
func (h *SessionHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	entries, total, err := h.inventory.Entries(id, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pagedResponse{Items: entries, Total: total, Page: page, Limit: limit})
}

// Progress reports counter totals and the advance ratio of a session.
func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	progress, err := h.inventory.Progress(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}

// Recount rebuilds the session counters from its verification rows.
func (h *SessionHandler) Recount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.inventory.Recount(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}
