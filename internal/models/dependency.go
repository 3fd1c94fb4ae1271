package models

import (
	"time"

	"gorm.io/gorm"
)

// Dependency is an organizational unit (faculty, office) that can own and
// receive documents and hold patrimony assets.
type Dependency struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Code      string         `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	// ParentID builds the dependency tree (nil for top-level units).
	ParentID *uint       `gorm:"index" json:"parent_id,omitempty"`
	Parent   *Dependency `gorm:"foreignKey:ParentID" json:"-"`
	Site     string      `gorm:"size:100" json:"site,omitempty"`
	Active   bool        `gorm:"default:true" json:"active"`
}
