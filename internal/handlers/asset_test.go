package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/services"
)

func TestAssetGetByCode(t *testing.T) {
	f := setupAPI(t)
	h := NewAssetHandler(services.NewGormCatalog(f.db))

	asset := models.Asset{Code: "112236140168", Description: "Monitor LED 24", Active: true}
	if err := f.db.Create(&asset).Error; err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	req := request(t, f.creator, http.MethodGet, "/assets/112236140168", nil)
	req.SetPathValue("code", "112236140168")
	rr := httptest.NewRecorder()
	h.GetByCode(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	req = request(t, f.creator, http.MethodGet, "/assets/000000000000", nil)
	req.SetPathValue("code", "000000000000")
	rr = httptest.NewRecorder()
	h.GetByCode(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown code status = %d, want 404", rr.Code)
	}
}

func TestAssetSearch(t *testing.T) {
	f := setupAPI(t)
	h := NewAssetHandler(services.NewGormCatalog(f.db))

	for _, a := range []models.Asset{
		{Code: "112236140168", Description: "Monitor LED 24", Active: true},
		{Code: "112236140169", Description: "Teclado USB", Active: true},
		{Code: "112236140170", Description: "Monitor LED 27", Active: false},
	} {
		asset := a
		if err := f.db.Create(&asset).Error; err != nil {
			t.Fatalf("seed asset: %v", err)
		}
	}

	rr := httptest.NewRecorder()
	h.Search(rr, request(t, f.creator, http.MethodGet, "/assets?q=Monitor", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, rr, &resp)
	// The inactive monitor is excluded.
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}
