package handlers

import (
	"net/http"

	"github.com/otiuna/sigpat/internal/apperr"
	"github.com/otiuna/sigpat/internal/httpx"
	"github.com/otiuna/sigpat/internal/services"
)

// AssetHandler serves read-only lookups against the patrimony catalog.
type AssetHandler struct {
	catalog services.Catalog
}

func NewAssetHandler(catalog services.Catalog) *AssetHandler {
	return &AssetHandler{catalog: catalog}
}

// Search lists catalog assets filtered by ?q=, ?dependency_id= and ?site=.
func (h *AssetHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	f := services.AssetFilter{
		Query:  r.URL.Query().Get("q"),
		Site:   r.URL.Query().Get("site"),
		Limit:  limit,
		Offset: offset,
	}
	if depID := queryInt(r, "dependency_id", 0); depID > 0 {
		id := uint(depID)
		f.DependencyID = &id
	}

	assets, err := h.catalog.Search(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := h.catalog.Count(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pagedResponse{Items: assets, Total: total, Page: offset/max(limit, 1) + 1, Limit: limit})
}

// GetByCode returns one catalog asset by its patrimony code.
func (h *AssetHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, apperr.Validation(map[string]string{"code": "required"}))
		return
	}
	asset, err := h.catalog.FindByCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if asset == nil {
		writeError(w, apperr.NotFound("asset %s not found", code))
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}
