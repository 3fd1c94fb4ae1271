package models

import (
	"time"
)

// SessionState is the lifecycle state of a physical-inventory session.
type SessionState string

const (
	SessionProgramada SessionState = "PROGRAMADA"
	SessionEnProceso  SessionState = "EN_PROCESO"
	SessionPausada    SessionState = "PAUSADA"
	SessionFinalizada SessionState = "FINALIZADA"
	SessionCancelada  SessionState = "CANCELADA"
)

// InventorySession is a scheduled physical-count exercise scoped to a
// catalog subset. Counters are maintained incrementally: every verification
// bumps TotalVerified plus exactly one outcome counter, so
// TotalVerified == TotalFound + TotalRelocated + TotalMissing + TotalSurplus
// holds at all times.
type InventorySession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code  string       `gorm:"uniqueIndex;size:30;not null" json:"code"`
	Name  string       `gorm:"size:255;not null" json:"name"`
	State SessionState `gorm:"size:20;not null;default:'PROGRAMADA'" json:"state"`

	ScheduledAt time.Time  `gorm:"not null" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	// Scope filters which catalog subset is the reconciliation target.
	DependencyID *uint       `gorm:"index" json:"dependency_id,omitempty"`
	Dependency   *Dependency `gorm:"foreignKey:DependencyID" json:"dependency,omitempty"`
	Site         string      `gorm:"size:100" json:"site,omitempty"`

	ResponsibleID uint  `gorm:"index;not null" json:"responsible_id"`
	Responsible   *User `gorm:"foreignKey:ResponsibleID" json:"-"`

	// TotalExpected is a snapshot count of the scoped catalog taken at
	// creation; later catalog changes do not alter the denominator.
	TotalExpected  int `gorm:"default:0" json:"total_expected"`
	TotalVerified  int `gorm:"default:0" json:"total_verified"`
	TotalFound     int `gorm:"default:0" json:"total_found"`
	TotalRelocated int `gorm:"default:0" json:"total_relocated"`
	TotalMissing   int `gorm:"default:0" json:"total_missing"`
	TotalSurplus   int `gorm:"default:0" json:"total_surplus"`
}

// IsTerminal returns true for FINALIZADA and CANCELADA sessions.
func (s *InventorySession) IsTerminal() bool {
	return s.State == SessionFinalizada || s.State == SessionCancelada
}

// CanRecord returns true while verifications may be submitted.
func (s *InventorySession) CanRecord() bool {
	return s.State == SessionEnProceso
}

// VerificationOutcome of physically checking one asset code.
type VerificationOutcome string

const (
	OutcomeEncontrado   VerificationOutcome = "ENCONTRADO"
	OutcomeReubicado    VerificationOutcome = "REUBICADO"
	OutcomeNoEncontrado VerificationOutcome = "NO_ENCONTRADO"
	OutcomeSobrante     VerificationOutcome = "SOBRANTE"
)

// InputDevice tags how the code was captured.
type InputDevice string

const (
	DeviceScanner InputDevice = "ESCANER"
	DeviceManual  InputDevice = "MANUAL"
)

// VerificationEntry records one outcome of checking one asset code within a
// session. Catalog fields are snapshotted at submission time. The unique
// index on (session_id, asset_code) rejects re-scans of the same code.
type VerificationEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PublicID  string    `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	CreatedAt time.Time `json:"created_at"`

	SessionID uint   `gorm:"not null;uniqueIndex:idx_session_asset" json:"session_id"`
	AssetCode string `gorm:"size:40;not null;uniqueIndex:idx_session_asset" json:"asset_code"`

	// Catalog snapshot at verification time (empty for SOBRANTE entries).
	Description         string  `gorm:"size:500" json:"description,omitempty"`
	Brand               string  `gorm:"size:100" json:"brand,omitempty"`
	Model               string  `gorm:"size:100" json:"model,omitempty"`
	Serial              string  `gorm:"size:100" json:"serial,omitempty"`
	CatalogDependencyID *uint   `json:"catalog_dependency_id,omitempty"`
	CatalogLocation     string  `gorm:"size:255" json:"catalog_location,omitempty"`
	Holder              string  `gorm:"size:255" json:"holder,omitempty"`
	Value               float64 `gorm:"type:decimal(12,2);default:0" json:"value"`

	Outcome   VerificationOutcome `gorm:"size:20;not null" json:"outcome"`
	Condition string              `gorm:"size:20" json:"condition,omitempty"`
	// ActualLocation is required when Outcome is REUBICADO.
	ActualLocation string `gorm:"size:255" json:"actual_location,omitempty"`
	Observations   string `gorm:"size:500" json:"observations,omitempty"`

	VerifierID  uint        `gorm:"index;not null" json:"verifier_id"`
	InputDevice InputDevice `gorm:"size:10;not null;default:'MANUAL'" json:"input_device"`
}
