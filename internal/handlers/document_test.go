package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otiuna/sigpat/internal/auth"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Dependency{}, &models.User{}, &models.Profile{}, &models.Permission{},
		&models.DocumentType{}, &models.Document{}, &models.DocumentDestination{}, &models.DocumentHistoryEntry{},
		&models.Asset{}, &models.InventorySession{}, &models.VerificationEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type apiFixture struct {
	db      *gorm.DB
	tipoOF  models.DocumentType
	mesa    models.Dependency
	oti     models.Dependency
	creator models.User
	otiUser models.User
}

func setupAPI(t *testing.T) *apiFixture {
	db := setupTestDB(t)
	f := &apiFixture{db: db}

	f.tipoOF = models.DocumentType{Code: "OF", Name: "Oficio"}
	if err := db.Create(&f.tipoOF).Error; err != nil {
		t.Fatalf("seed type: %v", err)
	}
	f.mesa = models.Dependency{Code: "MP", Name: "Mesa de Partes"}
	f.oti = models.Dependency{Code: "OTI", Name: "Oficina de Tecnologias"}
	for _, d := range []*models.Dependency{&f.mesa, &f.oti} {
		if err := db.Create(d).Error; err != nil {
			t.Fatalf("seed dependency: %v", err)
		}
	}
	f.creator = models.User{Email: "mesa@uni.edu", Password: "x", DependencyID: f.mesa.ID, Active: true}
	f.otiUser = models.User{Email: "oti@uni.edu", Password: "x", DependencyID: f.oti.ID, Active: true}
	for _, u := range []*models.User{&f.creator, &f.otiUser} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return f
}

// request builds an authenticated JSON request with optional path id.
func request(t *testing.T, user models.User, method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.WithUserID(req.Context(), user.ID))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
}

func (f *apiFixture) createBody(correlativo string, send bool) map[string]any {
	return map[string]any{
		"type_id":          f.tipoOF.ID,
		"correlativo":      correlativo,
		"anio":             2024,
		"subject":          "Solicitud de equipos",
		"attachment_path":  "/uploads/of-001.pdf",
		"attachment_name":  "of-001.pdf",
		"recipients":       []map[string]any{{"dependency_id": f.oti.ID}},
		"send_immediately": send,
	}
}

func TestDocumentCreateAndGet(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", true)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var doc models.Document
	decodeBody(t, rr, &doc)
	if doc.State != models.DocumentStateEnviado {
		t.Errorf("state = %s, want ENVIADO", doc.State)
	}

	req := request(t, f.creator, http.MethodGet, "/documents/1", nil)
	req.SetPathValue("id", fmt.Sprint(doc.ID))
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
}

func TestDocumentCreateValidationStatus(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	body := f.createBody("001", false)
	delete(body, "subject")
	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	decodeBody(t, rr, &resp)
	if resp.Error != "validation_error" {
		t.Errorf("error = %q, want validation_error", resp.Error)
	}
	if resp.Details["subject"] == "" {
		t.Errorf("missing subject violation in details: %v", resp.Details)
	}
}

func TestDocumentDuplicateStatus(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", false)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", false)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", rr.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rr, &resp)
	if resp.Error != "duplicate" {
		t.Errorf("error = %q, want duplicate", resp.Error)
	}
}

func TestDocumentReceiveWrongDependencyStatus(t *testing.T) {
	f := setupAPI(t)
	svc := services.NewTransitService(f.db)
	h := NewDocumentHandler(f.db, svc)

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", true)))
	var doc models.Document
	decodeBody(t, rr, &doc)
	if len(doc.Destinations) != 1 {
		t.Fatalf("destinations = %d, want 1", len(doc.Destinations))
	}

	// The creator's dependency is not the recipient: 403, not 409.
	req := request(t, f.creator, http.MethodPost, "/documents/1/receive",
		map[string]any{"destination_id": doc.Destinations[0].ID})
	req.SetPathValue("id", fmt.Sprint(doc.ID))
	rr = httptest.NewRecorder()
	h.Receive(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (%s)", rr.Code, rr.Body.String())
	}

	// The addressed dependency receives fine.
	req = request(t, f.otiUser, http.MethodPost, "/documents/1/receive",
		map[string]any{"destination_id": doc.Destinations[0].ID})
	req.SetPathValue("id", fmt.Sprint(doc.ID))
	rr = httptest.NewRecorder()
	h.Receive(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
}

func TestDocumentGetNotFound(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	req := request(t, f.creator, http.MethodGet, "/documents/999", nil)
	req.SetPathValue("id", "999")
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDocumentDeleteDispatchedConflict(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", true)))
	var doc models.Document
	decodeBody(t, rr, &doc)

	req := request(t, f.creator, http.MethodDelete, "/documents/1", nil)
	req.SetPathValue("id", fmt.Sprint(doc.ID))
	rr = httptest.NewRecorder()
	h.Delete(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestDocumentInbox(t *testing.T) {
	f := setupAPI(t)
	h := NewDocumentHandler(f.db, services.NewTransitService(f.db))

	rr := httptest.NewRecorder()
	h.Create(rr, request(t, f.creator, http.MethodPost, "/documents", f.createBody("001", true)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Inbox(rr, request(t, f.otiUser, http.MethodGet, "/inbox", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("inbox status = %d", rr.Code)
	}
	var resp struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, rr, &resp)
	if resp.Total != 1 {
		t.Errorf("inbox total = %d, want 1", resp.Total)
	}
}
