package handlers

import (
	"net/http"

	"github.com/otiuna/sigpat/internal/httpx"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/services"
	"gorm.io/gorm"
)

// DocumentHandler serves the document transit endpoints.
type DocumentHandler struct {
	db      *gorm.DB
	transit *services.TransitService
}

func NewDocumentHandler(db *gorm.DB, transit *services.TransitService) *DocumentHandler {
	return &DocumentHandler{db: db, transit: transit}
}

// Create registers a document, optionally dispatching it immediately.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(h.db, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in services.CreateDocumentInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.transit.Create(actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

// List returns documents filtered by ?state= and ?origin_dependency_id=.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	state := models.DocumentState(r.URL.Query().Get("state"))
	origin := uint(queryInt(r, "origin_dependency_id", 0))

	docs, total, err := h.transit.List(state, origin, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pagedResponse{Items: docs, Total: total, Page: page, Limit: limit})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.transit.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// History returns the ordered audit trail of a document.
func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.transit.History(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// Inbox lists the pending principal destinations of the caller's dependency.
func (h *DocumentHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(h.db, r)
	if err != nil {
		writeError(w, err)
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	items, total, err := h.transit.Inbox(actor.DependencyID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pagedResponse{Items: items, Total: total, Page: page, Limit: limit})
}

type sendRequest struct {
	Recipients []services.RecipientInput `json:"recipients"`
}

// Send dispatches a draft to its recipients.
func (h *DocumentHandler) Send(w http.ResponseWriter, r *http.Request) {
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
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.transit.Send(actor, id, req.Recipients)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type receiveRequest struct {
	DestinationID uint `json:"destination_id"`
}

// Receive marks a destination addressed to the caller's dependency as received.
func (h *DocumentHandler) Receive(w http.ResponseWriter, r *http.Request) {
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
	var req receiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	dest, err := h.transit.Receive(actor, id, req.DestinationID)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dest)
}

type deriveRequest struct {
	FromDestinationID uint   `json:"from_destination_id"`
	ToDependencyID    uint   `json:"to_dependency_id"`
	ToUserID          *uint  `json:"to_user_id,omitempty"`
	Observations      string `json:"observations,omitempty"`
}

// Derive forwards the document to the next dependency.
func (h *DocumentHandler) Derive(w http.ResponseWriter, r *http.Request) {
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
	var req deriveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	dest, err := h.transit.Derive(actor, id, req.FromDestinationID, req.ToDependencyID, req.ToUserID, req.Observations)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dest)
}

type markRequest struct {
	DestinationID uint   `json:"destination_id"`
	Note          string `json:"note,omitempty"`
}

// Observe records an observation mark by the current holder.
func (h *DocumentHandler) Observe(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.transit.Observe)
}

// Attend records an attention mark by the current holder.
func (h *DocumentHandler) Attend(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, h.transit.Attend)
}

func (h *DocumentHandler) mark(w http.ResponseWriter, r *http.Request, fn func(services.Actor, uint, uint, string) error) {
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
	var req markRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := fn(actor, id, req.DestinationID, req.Note); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.transit.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Sign records the signature action on a signature-required document.
func (h *DocumentHandler) Sign(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.transit.Sign)
}

// Archive closes the document lifecycle.
func (h *DocumentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.transit.Archive)
}

func (h *DocumentHandler) simpleAction(w http.ResponseWriter, r *http.Request, fn func(services.Actor, uint) error) {
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
	if err := fn(actor, id); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.transit.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Delete removes a draft. Dispatched documents cannot be deleted.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.transit.DeleteDraft(actor, id); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
