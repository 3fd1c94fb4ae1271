package models

import (
	"fmt"
	"time"
)

// DocumentState represents the transit state of a document.
type DocumentState string

const (
	DocumentStateBorrador  DocumentState = "BORRADOR"
	DocumentStateEnviado   DocumentState = "ENVIADO"
	DocumentStateRecibido  DocumentState = "RECIBIDO"
	DocumentStateDerivado  DocumentState = "DERIVADO"
	DocumentStateObservado DocumentState = "OBSERVADO"
	DocumentStateAtendido  DocumentState = "ATENDIDO"
	DocumentStateArchivado DocumentState = "ARCHIVADO"
)

// DocumentPriority levels for transit handling.
type DocumentPriority string

const (
	PriorityNormal  DocumentPriority = "NORMAL"
	PriorityAlta    DocumentPriority = "ALTA"
	PriorityUrgente DocumentPriority = "URGENTE"
)

// DocumentType is the kind of document ("OF" oficio, "MEMO" memorando, ...).
type DocumentType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex;size:10;not null" json:"code"`
	Name string `gorm:"size:100;not null" json:"name"`
}

// Document is a routed document in the mesa-de-partes transit flow.
// Correlative number, year and type together form the yearly-unique code.
//
// State is a cache of the latest history entry; StateFromHistory is the
// canonical derivation and both are written in the same transaction.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TypeID      uint          `gorm:"not null;uniqueIndex:idx_doc_correlative" json:"type_id"`
	Type        *DocumentType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Correlativo string        `gorm:"size:20;not null;uniqueIndex:idx_doc_correlative" json:"correlativo"`
	Anio        int           `gorm:"not null;uniqueIndex:idx_doc_correlative" json:"anio"`

	Subject           string           `gorm:"size:500;not null" json:"subject"`
	Body              string           `gorm:"type:text" json:"body,omitempty"`
	Folios            int              `gorm:"default:1" json:"folios"`
	Priority          DocumentPriority `gorm:"size:10;default:'NORMAL'" json:"priority"`
	RequiresSignature bool             `json:"requires_signature"`
	Observations      string           `gorm:"size:500" json:"observations,omitempty"`

	State DocumentState `gorm:"size:20;not null;default:'BORRADOR'" json:"state"`

	OriginDependencyID uint        `gorm:"index;not null" json:"origin_dependency_id"`
	OriginDependency   *Dependency `gorm:"foreignKey:OriginDependencyID" json:"origin_dependency,omitempty"`
	CreatorID          uint        `gorm:"index;not null" json:"creator_id"`
	Creator            *User       `gorm:"foreignKey:CreatorID" json:"-"`
	SentAt             *time.Time  `json:"sent_at,omitempty"`

	// At least one attachment reference is required before dispatch.
	AttachmentPath string `gorm:"size:500" json:"attachment_path,omitempty"`
	AttachmentName string `gorm:"size:255" json:"attachment_name,omitempty"`

	Destinations []DocumentDestination  `gorm:"foreignKey:DocumentID" json:"destinations,omitempty"`
	History      []DocumentHistoryEntry `gorm:"foreignKey:DocumentID" json:"history,omitempty"`
}

// DisplayCode returns the yearly-unique code shown to users, e.g. "OF-001-2024".
// Falls back to the raw correlative when Type is not preloaded.
func (d *Document) DisplayCode() string {
	if d.Type != nil {
		return fmt.Sprintf("%s-%s-%d", d.Type.Code, d.Correlativo, d.Anio)
	}
	return fmt.Sprintf("%s-%d", d.Correlativo, d.Anio)
}

// IsDraft returns true while the document has not been dispatched.
func (d *Document) IsDraft() bool {
	return d.State == DocumentStateBorrador
}

// IsTerminal returns true once the document is archived.
func (d *Document) IsTerminal() bool {
	return d.State == DocumentStateArchivado
}

// CanEdit returns true if body/metadata may still change.
// Once the document leaves BORRADOR it becomes append-only.
func (d *Document) CanEdit() bool {
	return d.State == DocumentStateBorrador
}

// GetUserID implements the creator-ownership check used by draft deletion.
func (d *Document) GetUserID() uint {
	return d.CreatorID
}

// ReceptionState is the per-destination reception lifecycle.
type ReceptionState string

const (
	ReceptionPendiente ReceptionState = "PENDIENTE"
	ReceptionRecibido  ReceptionState = "RECIBIDO"
	ReceptionRechazado ReceptionState = "RECHAZADO"
)

// DocumentDestination is one recipient record of a document. Routing is an
// append-only chain of destinations: deriving inserts a new row and never
// mutates prior ones.
type DocumentDestination struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID   uint        `gorm:"index;not null" json:"document_id"`
	DependencyID uint        `gorm:"index;not null" json:"dependency_id"`
	Dependency   *Dependency `gorm:"foreignKey:DependencyID" json:"dependency,omitempty"`
	// UserID optionally addresses a specific person in the dependency.
	UserID *uint `gorm:"index" json:"user_id,omitempty"`

	// IsCopy marks CC recipients. Only principal (non-copy) destinations
	// count as pending work for a dependency's inbox.
	IsCopy bool `json:"is_copy"`

	State      ReceptionState `gorm:"size:20;not null;default:'PENDIENTE'" json:"state"`
	ReceiverID *uint          `json:"receiver_id,omitempty"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
}

// IsPending returns true while the destination has not been received.
func (dd *DocumentDestination) IsPending() bool {
	return dd.State == ReceptionPendiente
}

// HistoryAction tags one entry of the document audit trail.
type HistoryAction string

const (
	ActionCreado    HistoryAction = "CREADO"
	ActionEnviado   HistoryAction = "ENVIADO"
	ActionRecibido  HistoryAction = "RECIBIDO"
	ActionDerivado  HistoryAction = "DERIVADO"
	ActionObservado HistoryAction = "OBSERVADO"
	ActionAtendido  HistoryAction = "ATENDIDO"
	ActionArchivado HistoryAction = "ARCHIVADO"
	ActionFirmado   HistoryAction = "FIRMADO"
)

// DocumentHistoryEntry is one append-only audit record. The trail is the
// canonical source for "where has this document been"; the Document.State
// cache must always equal the NewState of the latest entry.
type DocumentHistoryEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID   uint          `gorm:"index;not null" json:"document_id"`
	Action       HistoryAction `gorm:"size:20;not null" json:"action"`
	Detail       string        `gorm:"size:500" json:"detail,omitempty"`
	PriorState   DocumentState `gorm:"size:20" json:"prior_state"`
	NewState     DocumentState `gorm:"size:20;not null" json:"new_state"`
	UserID       uint          `gorm:"not null" json:"user_id"`
	DependencyID uint          `gorm:"not null" json:"dependency_id"`
}

// StateFromHistory derives the displayed document state from an ordered
// trail. Entries must be sorted oldest first. An empty trail means BORRADOR.
func StateFromHistory(entries []DocumentHistoryEntry) DocumentState {
	if len(entries) == 0 {
		return DocumentStateBorrador
	}
	return entries[len(entries)-1].NewState
}
