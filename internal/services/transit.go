package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/otiuna/sigpat/internal/apperr"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/validation"
	"gorm.io/gorm"
)

// Actor identifies the caller of a workflow operation: who they are and
// which dependency they act for. Authorization checks run against the
// dependency before any state check.
type Actor struct {
	UserID       uint
	DependencyID uint
}

// TransitService implements the document transit state machine:
// BORRADOR → ENVIADO → RECIBIDO → DERIVADO → {OBSERVADO, ATENDIDO} → ARCHIVADO.
// Every state-changing operation appends a history entry and updates the
// cached document state in one transaction.
type TransitService struct {
	db *gorm.DB
}

func NewTransitService(db *gorm.DB) *TransitService {
	return &TransitService{db: db}
}

// RecipientInput is one requested destination.
type RecipientInput struct {
	DependencyID uint  `json:"dependency_id"`
	UserID       *uint `json:"user_id,omitempty"`
	IsCopy       bool  `json:"is_copy"`
}

// CreateDocumentInput carries everything needed to register a document.
type CreateDocumentInput struct {
	TypeID            uint                    `json:"type_id"`
	Correlativo       string                  `json:"correlativo"`
	Anio              int                     `json:"anio"`
	Subject           string                  `json:"subject"`
	Body              string                  `json:"body"`
	Folios            int                     `json:"folios"`
	Priority          models.DocumentPriority `json:"priority"`
	RequiresSignature bool                    `json:"requires_signature"`
	Observations      string                  `json:"observations"`
	AttachmentPath    string                  `json:"attachment_path"`
	AttachmentName    string                  `json:"attachment_name"`
	Recipients        []RecipientInput        `json:"recipients"`
	SendImmediately   bool                    `json:"send_immediately"`
}

func principalCount(recipients []RecipientInput) int {
	n := 0
	for _, r := range recipients {
		if !r.IsCopy {
			n++
		}
	}
	return n
}

// Create registers a document in BORRADOR, or dispatches it directly as
// ENVIADO when SendImmediately is set. Destinations start PENDIENTE; the
// trail gets a CREADO entry plus an ENVIADO entry on immediate dispatch.
func (s *TransitService) Create(actor Actor, in CreateDocumentInput) (*models.Document, error) {
	v := make(validation.Violations)
	if in.TypeID == 0 {
		v["type_id"] = "required"
	}
	validation.Required("correlativo", in.Correlativo, v)
	validation.PositiveInt("anio", in.Anio, v)
	validation.Required("subject", in.Subject, v)
	validation.Required("attachment_path", in.AttachmentPath, v)
	if in.SendImmediately && principalCount(in.Recipients) == 0 {
		v["recipients"] = "principal_recipient_required"
	}
	for i, r := range in.Recipients {
		if r.DependencyID == 0 {
			v[fmt.Sprintf("recipients[%d].dependency_id", i)] = "required"
		}
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	if in.Folios <= 0 {
		in.Folios = 1
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}

	doc := models.Document{
		TypeID:             in.TypeID,
		Correlativo:        in.Correlativo,
		Anio:               in.Anio,
		Subject:            in.Subject,
		Body:               in.Body,
		Folios:             in.Folios,
		Priority:           in.Priority,
		RequiresSignature:  in.RequiresSignature,
		Observations:       in.Observations,
		AttachmentPath:     in.AttachmentPath,
		AttachmentName:     in.AttachmentName,
		State:              models.DocumentStateBorrador,
		OriginDependencyID: actor.DependencyID,
		CreatorID:          actor.UserID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.SendImmediately {
			now := time.Now()
			doc.State = models.DocumentStateEnviado
			doc.SentAt = &now
		}
		if err := tx.Create(&doc).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Duplicate("document %s-%d already exists for this type", in.Correlativo, in.Anio)
			}
			return err
		}
		for _, r := range in.Recipients {
			dest := models.DocumentDestination{
				DocumentID:   doc.ID,
				DependencyID: r.DependencyID,
				UserID:       r.UserID,
				IsCopy:       r.IsCopy,
				State:        models.ReceptionPendiente,
			}
			if err := tx.Create(&dest).Error; err != nil {
				return err
			}
		}
		if err := appendHistory(tx, &doc, actor, models.ActionCreado, "documento registrado", "", models.DocumentStateBorrador); err != nil {
			return err
		}
		if in.SendImmediately {
			return appendHistory(tx, &doc, actor, models.ActionEnviado, "enviado a destinos", models.DocumentStateBorrador, models.DocumentStateEnviado)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(doc.ID)
}

// Send dispatches a draft to its first recipients. Only the creator may
// send, and only while the document is still BORRADOR.
func (s *TransitService) Send(actor Actor, documentID uint, recipients []RecipientInput) (*models.Document, error) {
	doc, err := s.Get(documentID)
	if err != nil {
		return nil, err
	}
	if doc.CreatorID != actor.UserID {
		return nil, apperr.Unauthorized("only the creator can send document %s", doc.DisplayCode())
	}
	if !doc.IsDraft() {
		return nil, apperr.StateConflict("document %s is %s, not BORRADOR", doc.DisplayCode(), doc.State)
	}
	v := make(validation.Violations)
	validation.Required("attachment_path", doc.AttachmentPath, v)
	if principalCount(recipients) == 0 {
		v["recipients"] = "principal_recipient_required"
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, r := range recipients {
			dest := models.DocumentDestination{
				DocumentID:   doc.ID,
				DependencyID: r.DependencyID,
				UserID:       r.UserID,
				IsCopy:       r.IsCopy,
				State:        models.ReceptionPendiente,
			}
			if err := tx.Create(&dest).Error; err != nil {
				return err
			}
		}
		now := time.Now()
		res := tx.Model(&models.Document{}).
			Where("id = ? AND state = ?", doc.ID, models.DocumentStateBorrador).
			Updates(map[string]any{"state": models.DocumentStateEnviado, "sent_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race with a concurrent send
			return apperr.StateConflict("document %s is no longer BORRADOR", doc.DisplayCode())
		}
		return appendHistory(tx, doc, actor, models.ActionEnviado, "enviado a destinos", models.DocumentStateBorrador, models.DocumentStateEnviado)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(doc.ID)
}

// Receive marks a destination as RECIBIDO for the acting dependency.
// The authorization check (destination belongs to the caller's dependency)
// runs before, and independently of, the PENDIENTE state check.
func (s *TransitService) Receive(actor Actor, documentID, destinationID uint) (*models.DocumentDestination, error) {
	doc, dest, err := s.getDestination(documentID, destinationID)
	if err != nil {
		return nil, err
	}
	if dest.DependencyID != actor.DependencyID {
		return nil, apperr.Unauthorized("destination %d does not belong to your dependency", dest.ID)
	}
	if !dest.IsPending() {
		return nil, apperr.StateConflict("destination %d is already %s", dest.ID, dest.State)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		// Guard on the prior state so concurrent receives resolve to one
		// success and one conflict.
		res := tx.Model(&models.DocumentDestination{}).
			Where("id = ? AND state = ?", dest.ID, models.ReceptionPendiente).
			Updates(map[string]any{
				"state":       models.ReceptionRecibido,
				"receiver_id": actor.UserID,
				"received_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.StateConflict("destination %d is already received", dest.ID)
		}
		// CC receptions do not move the principal routing state.
		if dest.IsCopy {
			return nil
		}
		return appendHistory(tx, doc, actor, models.ActionRecibido, "recibido por dependencia destino", doc.State, models.DocumentStateRecibido)
	})
	if err != nil {
		return nil, err
	}
	var updated models.DocumentDestination
	if err := s.db.First(&updated, dest.ID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// Derive forwards the document to the next dependency. The caller must be
// the current holder: their dependency must own the source destination.
// A new PENDIENTE destination row is appended; prior rows are untouched.
func (s *TransitService) Derive(actor Actor, documentID, fromDestinationID, toDependencyID uint, toUserID *uint, observations string) (*models.DocumentDestination, error) {
	doc, fromDest, err := s.getDestination(documentID, fromDestinationID)
	if err != nil {
		return nil, err
	}
	if fromDest.DependencyID != actor.DependencyID {
		return nil, apperr.Unauthorized("you are not the holder of document %s", doc.DisplayCode())
	}
	if doc.IsTerminal() {
		return nil, apperr.StateConflict("document %s is archived", doc.DisplayCode())
	}
	if toDependencyID == 0 {
		return nil, apperr.Validation(validation.Violations{"to_dependency_id": "required"})
	}
	var target models.Dependency
	if err := s.db.First(&target, toDependencyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("dependency %d not found", toDependencyID)
		}
		return nil, err
	}

	newDest := models.DocumentDestination{
		DocumentID:   doc.ID,
		DependencyID: toDependencyID,
		UserID:       toUserID,
		State:        models.ReceptionPendiente,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newDest).Error; err != nil {
			return err
		}
		detail := "derivado a " + target.Name
		if observations != "" {
			detail += ": " + observations
		}
		return appendHistory(tx, doc, actor, models.ActionDerivado, detail, doc.State, models.DocumentStateDerivado)
	})
	if err != nil {
		return nil, err
	}
	return &newDest, nil
}

// Observe records an OBSERVADO mark by the current holder.
func (s *TransitService) Observe(actor Actor, documentID, destinationID uint, note string) error {
	return s.holderMark(actor, documentID, destinationID, models.ActionObservado, models.DocumentStateObservado, note)
}

// Attend records an ATENDIDO mark by the current holder.
func (s *TransitService) Attend(actor Actor, documentID, destinationID uint, note string) error {
	return s.holderMark(actor, documentID, destinationID, models.ActionAtendido, models.DocumentStateAtendido, note)
}

func (s *TransitService) holderMark(actor Actor, documentID, destinationID uint, action models.HistoryAction, newState models.DocumentState, note string) error {
	doc, dest, err := s.getDestination(documentID, destinationID)
	if err != nil {
		return err
	}
	if dest.DependencyID != actor.DependencyID {
		return apperr.Unauthorized("you are not the holder of document %s", doc.DisplayCode())
	}
	if doc.IsTerminal() {
		return apperr.StateConflict("document %s is archived", doc.DisplayCode())
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return appendHistory(tx, doc, actor, action, note, doc.State, newState)
	})
}

// Sign records the FIRMADO action on a signature-required document.
// Signing does not move the routing state; the trail entry keeps it.
func (s *TransitService) Sign(actor Actor, documentID uint) error {
	doc, err := s.Get(documentID)
	if err != nil {
		return err
	}
	if !doc.RequiresSignature {
		return apperr.Validation(validation.Violations{"document": "signature_not_required"})
	}
	if doc.IsTerminal() {
		return apperr.StateConflict("document %s is archived", doc.DisplayCode())
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return appendHistory(tx, doc, actor, models.ActionFirmado, "documento firmado", doc.State, doc.State)
	})
}

// Archive closes the document lifecycle. The caller's dependency must hold
// a destination of this document or be the origin.
func (s *TransitService) Archive(actor Actor, documentID uint) error {
	doc, err := s.Get(documentID)
	if err != nil {
		return err
	}
	if !s.isHolderOrOrigin(doc, actor) {
		return apperr.Unauthorized("your dependency never held document %s", doc.DisplayCode())
	}
	if doc.IsTerminal() {
		return apperr.StateConflict("document %s is already archived", doc.DisplayCode())
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return appendHistory(tx, doc, actor, models.ActionArchivado, "documento archivado", doc.State, models.DocumentStateArchivado)
	})
}

// DeleteDraft removes a BORRADOR document and its rows. Only the creator
// may delete, and only while the document has never been dispatched.
func (s *TransitService) DeleteDraft(actor Actor, documentID uint) error {
	doc, err := s.Get(documentID)
	if err != nil {
		return err
	}
	if doc.CreatorID != actor.UserID {
		return apperr.Unauthorized("only the creator can delete document %s", doc.DisplayCode())
	}
	if !doc.IsDraft() {
		return apperr.StateConflict("document %s has been dispatched and cannot be deleted", doc.DisplayCode())
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentHistoryEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentDestination{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, doc.ID).Error
	})
}

// Get loads a document with its type, destinations and ordered history.
func (s *TransitService) Get(documentID uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.Preload("Type").
		Preload("Destinations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&doc, documentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("document %d not found", documentID)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// History returns the ordered audit trail of a document.
func (s *TransitService) History(documentID uint) ([]models.DocumentHistoryEntry, error) {
	if _, err := s.Get(documentID); err != nil {
		return nil, err
	}
	var entries []models.DocumentHistoryEntry
	err := s.db.Where("document_id = ?", documentID).Order("created_at, id").Find(&entries).Error
	return entries, err
}

// InboxItem is one pending principal destination with its document.
type InboxItem struct {
	Destination models.DocumentDestination `json:"destination"`
	Document    models.Document            `json:"document"`
}

// Inbox lists the pending principal (non-copy) destinations addressed to a
// dependency. CC destinations never count as pending work.
func (s *TransitService) Inbox(dependencyID uint, page, limit int) ([]InboxItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.Model(&models.DocumentDestination{}).
		Where("dependency_id = ? AND is_copy = ? AND state = ?", dependencyID, false, models.ReceptionPendiente)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var dests []models.DocumentDestination
	if err := q.Order("created_at, id").Limit(limit).Offset((page - 1) * limit).Find(&dests).Error; err != nil {
		return nil, 0, err
	}
	items := make([]InboxItem, 0, len(dests))
	for _, d := range dests {
		var doc models.Document
		if err := s.db.Preload("Type").First(&doc, d.DocumentID).Error; err != nil {
			return nil, 0, err
		}
		items = append(items, InboxItem{Destination: d, Document: doc})
	}
	return items, total, nil
}

// List returns documents filtered by state and/or origin dependency.
func (s *TransitService) List(state models.DocumentState, originDependencyID uint, page, limit int) ([]models.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.Model(&models.Document{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if originDependencyID != 0 {
		q = q.Where("origin_dependency_id = ?", originDependencyID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var docs []models.Document
	err := q.Preload("Type").Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).Find(&docs).Error
	return docs, total, err
}

func (s *TransitService) getDestination(documentID, destinationID uint) (*models.Document, *models.DocumentDestination, error) {
	doc, err := s.Get(documentID)
	if err != nil {
		return nil, nil, err
	}
	var dest models.DocumentDestination
	err = s.db.Where("id = ? AND document_id = ?", destinationID, documentID).First(&dest).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, apperr.NotFound("destination %d not found on document %d", destinationID, documentID)
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, &dest, nil
}

func (s *TransitService) isHolderOrOrigin(doc *models.Document, actor Actor) bool {
	if doc.OriginDependencyID == actor.DependencyID {
		return true
	}
	for _, d := range doc.Destinations {
		if d.DependencyID == actor.DependencyID {
			return true
		}
	}
	return false
}

// appendHistory inserts one audit entry and refreshes the cached document
// state so it always equals the latest entry's NewState.
func appendHistory(tx *gorm.DB, doc *models.Document, actor Actor, action models.HistoryAction, detail string, prior, next models.DocumentState) error {
	entry := models.DocumentHistoryEntry{
		DocumentID:   doc.ID,
		Action:       action,
		Detail:       detail,
		PriorState:   prior,
		NewState:     next,
		UserID:       actor.UserID,
		DependencyID: actor.DependencyID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	if doc.State != next {
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).
			Update("state", next).Error; err != nil {
			return err
		}
		doc.State = next
	}
	return nil
}

// isUniqueViolation detects unique-constraint errors from both postgres
// and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "UNIQUE constraint")
}
