package db

import (
	"github.com/otiuna/sigpat/internal/models"
	"gorm.io/gorm"
)

// SeedPermissions creates the base permission catalog.
// Safe to run multiple times.
func SeedPermissions(db *gorm.DB) error {
	permissions := []struct {
		ResourceType string
		Action       string
		Description  string
	}{
		// Superadmin wildcard
		{"*", "*", "All actions on all resources"},

		// Document transit
		{"documento", "create", "Register documents"},
		{"documento", "view", "View document details"},
		{"documento", "list", "List documents"},
		{"documento", "update", "Edit draft documents"},
		{"documento", "delete", "Delete draft documents"},
		{"documento", "send", "Dispatch drafts to their recipients"},
		{"documento", "receive", "Receive documents addressed to the dependency"},
		{"documento", "derive", "Forward documents to another dependency"},
		{"documento", "archive", "Archive documents"},

		// Inventory sessions
		{"sesion", "create", "Schedule inventory sessions"},
		{"sesion", "view", "View session details"},
		{"sesion", "list", "List inventory sessions"},
		{"sesion", "transition", "Start, pause, finish or cancel sessions"},
		{"sesion", "verify", "Record asset verifications"},

		// Asset catalog
		{"bien", "view", "View asset details"},
		{"bien", "list", "Search the asset catalog"},

		// Administration
		{"dependencia", "list", "List dependencies"},
		{"dependencia", "view", "View dependency details"},
		{"user", "list", "List users"},
		{"user", "view", "View user details"},
		{"profile", "list", "List profiles"},
		{"profile", "view", "View profile details"},
	}

	for _, p := range permissions {
		perm := models.Permission{
			ResourceType: p.ResourceType,
			Action:       p.Action,
			Description:  p.Description,
		}
		// Use FirstOrCreate to avoid duplicates
		result := db.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).
			FirstOrCreate(&perm)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// SeedProfiles creates the default system profiles with their permissions.
func SeedProfiles(db *gorm.DB) error {
	// First ensure permissions exist
	if err := SeedPermissions(db); err != nil {
		return err
	}

	profiles := []struct {
		Name        string
		Description string
		IsSystem    bool
		Permissions []string // "resource:action" format
	}{
		{
			Name:        "Administrador",
			Description: "Full system administrator with all permissions",
			IsSystem:    true,
			Permissions: []string{"*:*"},
		},
		{
			Name:        "Mesa de Partes",
			Description: "Registers and routes documents between dependencies",
			IsSystem:    true,
			Permissions: []string{
				"documento:*",
				"dependencia:list",
				"dependencia:view",
			},
		},
		{
			Name:        "Inventariador",
			Description: "Runs inventory sessions and records verifications",
			IsSystem:    true,
			Permissions: []string{
				"sesion:*",
				"bien:list",
				"bien:view",
				"dependencia:list",
			},
		},
		{
			Name:        "Consulta",
			Description: "Read-only access to documents, sessions and assets",
			IsSystem:    true,
			Permissions: []string{
				"documento:list",
				"documento:view",
				"sesion:list",
				"sesion:view",
				"bien:list",
				"bien:view",
			},
		},
	}

	for _, p := range profiles {
		var profile models.Profile
		result := db.Where("name = ?", p.Name).First(&profile)
		if result.Error != nil && result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}

		// If profile doesn't exist, create it
		if result.Error == gorm.ErrRecordNotFound {
			profile = models.Profile{
				Name:        p.Name,
				Description: p.Description,
				IsSystem:    p.IsSystem,
			}
			if err := db.Create(&profile).Error; err != nil {
				return err
			}
		}

		// Assign permissions
		var perms []models.Permission
		for _, code := range p.Permissions {
			// Split "resource:action"
			var resource, action string
			for i := 0; i < len(code); i++ {
				if code[i] == ':' {
					resource = code[:i]
					action = code[i+1:]
					break
				}
			}
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err == nil {
				perms = append(perms, perm)
			}
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

// SeedDocumentTypes creates the standard document kinds used by the
// transit flow.
func SeedDocumentTypes(db *gorm.DB) error {
	types := []models.DocumentType{
		{Code: "OF", Name: "Oficio"},
		{Code: "MEMO", Name: "Memorando"},
		{Code: "INF", Name: "Informe"},
		{Code: "SOL", Name: "Solicitud"},
		{Code: "CARTA", Name: "Carta"},
	}

	for _, t := range types {
		dt := t
		result := db.Where("code = ?", t.Code).FirstOrCreate(&dt)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
