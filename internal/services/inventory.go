package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otiuna/sigpat/internal/apperr"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/validation"
	"gorm.io/gorm"
)

// InventoryService implements the physical-inventory session state machine
// and the scan-driven verification flow. Every verification inserts one
// immutable entry and bumps the session counters in the same transaction.
type InventoryService struct {
	db      *gorm.DB
	catalog Catalog
}

func NewInventoryService(db *gorm.DB, catalog Catalog) *InventoryService {
	return &InventoryService{db: db, catalog: catalog}
}

// CreateSessionInput describes a scheduled count.
type CreateSessionInput struct {
	Name         string    `json:"name"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	DependencyID *uint     `json:"dependency_id,omitempty"`
	Site         string    `json:"site,omitempty"`
}

// CreateSession registers a session in PROGRAMADA. TotalExpected snapshots
// the scoped catalog count at creation time; later catalog changes do not
// alter the session's denominator.
func (s *InventoryService) CreateSession(ctx context.Context, actor Actor, in CreateSessionInput) (*models.InventorySession, error) {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	if in.ScheduledAt.IsZero() {
		v["scheduled_at"] = "required"
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	expected, err := s.catalog.Count(ctx, AssetFilter{DependencyID: in.DependencyID, Site: in.Site})
	if err != nil {
		return nil, err
	}

	session := models.InventorySession{
		Name:          in.Name,
		State:         models.SessionProgramada,
		ScheduledAt:   in.ScheduledAt,
		DependencyID:  in.DependencyID,
		Site:          in.Site,
		ResponsibleID: actor.UserID,
		TotalExpected: int(expected),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		code, err := generateSessionCode(tx, in.ScheduledAt.Year())
		if err != nil {
			return err
		}
		session.Code = code
		if err := tx.Create(&session).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Duplicate("session code %s already exists", code)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TransitionAction names a requested session lifecycle move.
type TransitionAction string

const (
	TransitionIniciar   TransitionAction = "iniciar"
	TransitionPausar    TransitionAction = "pausar"
	TransitionFinalizar TransitionAction = "finalizar"
	TransitionCancelar  TransitionAction = "cancelar"
)

// legalSources lists the states each action may leave from.
var legalSources = map[TransitionAction][]models.SessionState{
	TransitionIniciar:   {models.SessionProgramada, models.SessionPausada},
	TransitionPausar:    {models.SessionEnProceso},
	TransitionFinalizar: {models.SessionEnProceso},
	TransitionCancelar:  {models.SessionProgramada, models.SessionEnProceso, models.SessionPausada},
}

// targets maps each action to the state it produces.
var targets = map[TransitionAction]models.SessionState{
	TransitionIniciar:   models.SessionEnProceso,
	TransitionPausar:    models.SessionPausada,
	TransitionFinalizar: models.SessionFinalizada,
	TransitionCancelar:  models.SessionCancelada,
}

// Transition applies one lifecycle action. Illegal (state, action) pairs
// fail with a state conflict and leave the session untouched. The start
// stamp is set only on the first iniciar; the end stamp once on
// finalizar/cancelar. Cancellation is non-destructive: recorded
// verification entries and counters are retained for audit.
func (s *InventoryService) Transition(actor Actor, sessionID uint, action TransitionAction) (*models.InventorySession, error) {
	target, ok := targets[action]
	if !ok {
		return nil, apperr.Validation(validation.Violations{"action": "invalid_value"})
	}
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	legal := false
	for _, st := range legalSources[action] {
		if session.State == st {
			legal = true
			break
		}
	}
	if !legal {
		return nil, apperr.StateConflict("cannot %s session %s while %s", action, session.Code, session.State)
	}

	updates := map[string]any{"state": target}
	now := time.Now()
	if action == TransitionIniciar && session.StartedAt == nil {
		updates["started_at"] = now
	}
	if (action == TransitionFinalizar || action == TransitionCancelar) && session.EndedAt == nil {
		updates["ended_at"] = now
	}
	// Guard on the prior state so concurrent transitions resolve to one
	// success and one conflict.
	res := s.db.Model(&models.InventorySession{}).
		Where("id = ? AND state = ?", session.ID, session.State).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.StateConflict("session %s changed state concurrently", session.Code)
	}
	return s.GetSession(sessionID)
}

// SubmitVerificationInput is one scan or manual code submission.
// An empty Outcome asks for the default-by-lookup rule: codes found in the
// catalog default to ENCONTRADO, unknown codes to SOBRANTE.
type SubmitVerificationInput struct {
	AssetCode      string                     `json:"asset_code"`
	Outcome        models.VerificationOutcome `json:"outcome,omitempty"`
	Condition      string                     `json:"condition,omitempty"`
	ActualLocation string                     `json:"actual_location,omitempty"`
	Observations   string                     `json:"observations,omitempty"`
	InputDevice    models.InputDevice         `json:"input_device,omitempty"`
}

// SubmitVerification records one verification entry and atomically bumps
// TotalVerified plus exactly one outcome counter. A second submission for
// the same (session, code) pair is rejected as a duplicate with counters
// unchanged.
func (s *InventoryService) SubmitVerification(ctx context.Context, actor Actor, sessionID uint, in SubmitVerificationInput) (*models.VerificationEntry, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.CanRecord() {
		return nil, apperr.StateConflict("session %s is %s; verifications require EN_PROCESO", session.Code, session.State)
	}

	v := make(validation.Violations)
	validation.Required("asset_code", in.AssetCode, v)
	validation.OneOf("outcome", string(in.Outcome), []string{
		string(models.OutcomeEncontrado), string(models.OutcomeReubicado),
		string(models.OutcomeNoEncontrado), string(models.OutcomeSobrante),
	}, v)
	validation.OneOf("input_device", string(in.InputDevice), []string{
		string(models.DeviceScanner), string(models.DeviceManual),
	}, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	asset, err := s.catalog.FindByCode(ctx, in.AssetCode)
	if err != nil {
		return nil, err
	}

	outcome := in.Outcome
	if outcome == "" {
		if asset != nil {
			outcome = models.OutcomeEncontrado
		} else {
			outcome = models.OutcomeSobrante
		}
	}
	if asset == nil && outcome != models.OutcomeSobrante {
		v["outcome"] = "code_not_in_catalog"
	}
	if asset != nil && outcome == models.OutcomeSobrante {
		v["outcome"] = "code_exists_in_catalog"
	}
	if outcome == models.OutcomeReubicado {
		validation.Required("actual_location", in.ActualLocation, v)
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	device := in.InputDevice
	if device == "" {
		device = models.DeviceManual
	}

	entry := models.VerificationEntry{
		PublicID:       uuid.NewString(),
		SessionID:      session.ID,
		AssetCode:      in.AssetCode,
		Outcome:        outcome,
		Condition:      in.Condition,
		ActualLocation: in.ActualLocation,
		Observations:   in.Observations,
		VerifierID:     actor.UserID,
		InputDevice:    device,
	}
	if asset != nil {
		entry.Description = asset.Description
		entry.Brand = asset.Brand
		entry.Model = asset.Model
		entry.Serial = asset.Serial
		entry.CatalogDependencyID = asset.DependencyID
		entry.CatalogLocation = asset.Location
		entry.Holder = asset.Holder
		entry.Value = asset.Value
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Duplicate("asset %s already verified in session %s", in.AssetCode, session.Code)
			}
			return err
		}
		col, err := outcomeColumn(outcome)
		if err != nil {
			return err
		}
		return tx.Model(&models.InventorySession{}).
			Where("id = ?", session.ID).
			Updates(map[string]any{
				"total_verified": gorm.Expr("total_verified + 1"),
				col:              gorm.Expr(col + " + 1"),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func outcomeColumn(outcome models.VerificationOutcome) (string, error) {
	switch outcome {
	case models.OutcomeEncontrado:
		return "total_found", nil
	case models.OutcomeReubicado:
		return "total_relocated", nil
	case models.OutcomeNoEncontrado:
		return "total_missing", nil
	case models.OutcomeSobrante:
		return "total_surplus", nil
	}
	return "", fmt.Errorf("unknown outcome %q", outcome)
}

// GetSession loads one session.
func (s *InventoryService) GetSession(sessionID uint) (*models.InventorySession, error) {
	var session models.InventorySession
	err := s.db.First(&session, sessionID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("session %d not found", sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns sessions newest first, optionally filtered by state.
func (s *InventoryService) ListSessions(state models.SessionState, page, limit int) ([]models.InventorySession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.Model(&models.InventorySession{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sessions []models.InventorySession
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset((page - 1) * limit).Find(&sessions).Error
	return sessions, total, err
}

// Entries lists the verification entries of a session, oldest first.
func (s *InventoryService) Entries(sessionID uint, page, limit int) ([]models.VerificationEntry, int64, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.Model(&models.VerificationEntry{}).Where("session_id = ?", sessionID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.VerificationEntry
	err := q.Order("created_at, id").Limit(limit).Offset((page - 1) * limit).Find(&entries).Error
	return entries, total, err
}

// Progress summarizes a session's counters.
type Progress struct {
	Session models.InventorySession `json:"session"`
	Advance float64                 `json:"advance"` // verified / expected, 0 when no snapshot
	Pending int                     `json:"pending"` // expected - (verified - surplus), floor 0
}

// Progress reports counter totals and the advance ratio of a session.
func (s *InventoryService) Progress(sessionID uint) (*Progress, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	p := &Progress{Session: *session}
	if session.TotalExpected > 0 {
		p.Advance = float64(session.TotalVerified-session.TotalSurplus) / float64(session.TotalExpected)
	}
	pending := session.TotalExpected - (session.TotalVerified - session.TotalSurplus)
	if pending > 0 {
		p.Pending = pending
	}
	return p, nil
}

// Recount rebuilds the session counters from its verification rows. This is
// an administrative reconciliation step, not part of the normal flow: the
// incremental counters are authoritative unless rows were repaired by hand.
func (s *InventoryService) Recount(sessionID uint) (*models.InventorySession, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		counts := map[models.VerificationOutcome]int64{}
		rows := []struct {
			Outcome models.VerificationOutcome
			N       int64
		}{}
		if err := tx.Model(&models.VerificationEntry{}).
			Select("outcome, count(*) as n").
			Where("session_id = ?", sessionID).
			Group("outcome").Scan(&rows).Error; err != nil {
			return err
		}
		var verified int64
		for _, r := range rows {
			counts[r.Outcome] = r.N
			verified += r.N
		}
		return tx.Model(&models.InventorySession{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"total_verified":  verified,
				"total_found":     counts[models.OutcomeEncontrado],
				"total_relocated": counts[models.OutcomeReubicado],
				"total_missing":   counts[models.OutcomeNoEncontrado],
				"total_surplus":   counts[models.OutcomeSobrante],
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(sessionID)
}

// generateSessionCode issues the next yearly correlative code.
// Format: INV-YYYY-NNNN (e.g., INV-2026-0001)
func generateSessionCode(db *gorm.DB, year int) (string, error) {
	var count int64
	err := db.Model(&models.InventorySession{}).
		Where("code LIKE ?", fmt.Sprintf("INV-%d-%%", year)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, count+1), nil
}
