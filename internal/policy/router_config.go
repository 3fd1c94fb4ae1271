package policy

import (
	"time"

	"github.com/otiuna/sigpat/internal/config"
	"github.com/otiuna/sigpat/internal/handlers"
	"github.com/otiuna/sigpat/internal/services"
	"gorm.io/gorm"
)

// RouterConfig holds configured handlers, services and middleware for the
// application. cmd/server wires routes from this.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *AuthGate

	// Handlers
	AuthHandler     *handlers.AuthHandler
	DocumentHandler *handlers.DocumentHandler
	SessionHandler  *handlers.SessionHandler
	AssetHandler    *handlers.AssetHandler

	// Services
	TransitService   *services.TransitService
	InventoryService *services.InventoryService
}

// NewRouterConfig wires together the authorization gate, services and
// handlers over one database connection.
func NewRouterConfig(db *gorm.DB, cfg *config.Config) *RouterConfig {
	// Authorization gate with 5-minute profile cache
	authGate := NewAuthGate(db, 5*time.Minute)

	catalog := services.NewGormCatalog(db)
	transitService := services.NewTransitService(db)
	inventoryService := services.NewInventoryService(db, catalog)

	return &RouterConfig{
		AuthGate:         authGate,
		AuthHandler:      handlers.NewAuthHandler(db),
		DocumentHandler:  handlers.NewDocumentHandler(db, transitService),
		SessionHandler:   handlers.NewSessionHandler(db, inventoryService, cfg.Scanner),
		AssetHandler:     handlers.NewAssetHandler(catalog),
		TransitService:   transitService,
		InventoryService: inventoryService,
	}
}
