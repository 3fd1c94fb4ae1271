package db

import (
	"fmt"
	"testing"

	"github.com/otiuna/sigpat/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := setupTestDB(t)

	if err := Seed(conn); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	var permsAfterFirst, profilesAfterFirst, typesAfterFirst int64
	conn.Model(&models.Permission{}).Count(&permsAfterFirst)
	conn.Model(&models.Profile{}).Count(&profilesAfterFirst)
	conn.Model(&models.DocumentType{}).Count(&typesAfterFirst)

	if err := Seed(conn); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var perms, profiles, types int64
	conn.Model(&models.Permission{}).Count(&perms)
	conn.Model(&models.Profile{}).Count(&profiles)
	conn.Model(&models.DocumentType{}).Count(&types)

	if perms != permsAfterFirst || profiles != profilesAfterFirst || types != typesAfterFirst {
		t.Errorf("reseeding changed counts: perms %d→%d, profiles %d→%d, types %d→%d",
			permsAfterFirst, perms, profilesAfterFirst, profiles, typesAfterFirst, types)
	}
}

func TestSeedAdminHasWildcard(t *testing.T) {
	conn := setupTestDB(t)
	if err := Seed(conn); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var admin models.Profile
	if err := conn.Preload("Permissions").Where("name = ?", "Administrador").First(&admin).Error; err != nil {
		t.Fatalf("load admin profile: %v", err)
	}
	found := false
	for _, p := range admin.Permissions {
		if p.ResourceType == "*" && p.Action == "*" {
			found = true
		}
	}
	if !found {
		t.Error("Administrador profile lacks the *:* permission")
	}
}

func TestSeedDocumentTypes(t *testing.T) {
	conn := setupTestDB(t)
	if err := SeedDocumentTypes(conn); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var of models.DocumentType
	if err := conn.Where("code = ?", "OF").First(&of).Error; err != nil {
		t.Fatalf("OF type missing: %v", err)
	}
	if of.Name != "Oficio" {
		t.Errorf("OF name = %q, want Oficio", of.Name)
	}
}
