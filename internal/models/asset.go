package models

import (
	"time"

	"gorm.io/gorm"
)

// Asset is one row of the patrimony master catalog. The catalog is owned by
// an external system; the engines here only read it (code lookup during
// verification) and snapshot its fields into VerificationEntry rows.
type Asset struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Code        string `gorm:"uniqueIndex;size:40;not null" json:"code"`
	Description string `gorm:"size:500;not null" json:"description"`
	Brand       string `gorm:"size:100" json:"brand,omitempty"`
	Model       string `gorm:"size:100" json:"model,omitempty"`
	Serial      string `gorm:"size:100" json:"serial,omitempty"`

	DependencyID *uint       `gorm:"index" json:"dependency_id,omitempty"`
	Dependency   *Dependency `gorm:"foreignKey:DependencyID" json:"dependency,omitempty"`
	Location     string      `gorm:"size:255" json:"location,omitempty"`
	Holder       string      `gorm:"size:255" json:"holder,omitempty"`
	Value        float64     `gorm:"type:decimal(12,2);default:0" json:"value"`
	Active       bool        `gorm:"default:true" json:"active"`
}
