package services

import (
	"context"

	"github.com/otiuna/sigpat/internal/models"
	"gorm.io/gorm"
)

// Catalog looks up the patrimony master data. The catalog is maintained by
// an external system; the inventory engine only reads it.
type Catalog interface {
	// FindByCode returns the asset with the given code, or (nil, nil) when
	// the code is not in the catalog. Absence is a normal answer here (it
	// drives the SOBRANTE default), not an error.
	FindByCode(ctx context.Context, code string) (*models.Asset, error)
	// Search returns assets matching the filter, newest first.
	Search(ctx context.Context, f AssetFilter) ([]models.Asset, error)
	// Count returns how many active assets match the filter.
	Count(ctx context.Context, f AssetFilter) (int64, error)
}

// AssetFilter narrows catalog queries. Zero values mean "no restriction".
type AssetFilter struct {
	DependencyID *uint
	Site         string
	Query        string // matches code or description
	Limit        int
	Offset       int
}

// GormCatalog reads the catalog from the shared relational store.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) FindByCode(ctx context.Context, code string) (*models.Asset, error) {
	var asset models.Asset
	err := c.db.WithContext(ctx).Where("code = ? AND active = ?", code, true).First(&asset).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (c *GormCatalog) scoped(ctx context.Context, f AssetFilter) *gorm.DB {
	db := c.db.WithContext(ctx).Model(&models.Asset{}).Where("active = ?", true)
	if f.DependencyID != nil {
		db = db.Where("dependency_id = ?", *f.DependencyID)
	}
	if f.Site != "" {
		db = db.Where("location LIKE ?", f.Site+"%")
	}
	if f.Query != "" {
		db = db.Where("code LIKE ? OR description LIKE ?", "%"+f.Query+"%", "%"+f.Query+"%")
	}
	return db
}

func (c *GormCatalog) Search(ctx context.Context, f AssetFilter) ([]models.Asset, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var assets []models.Asset
	err := c.scoped(ctx, f).Order("code").Limit(limit).Offset(f.Offset).Find(&assets).Error
	return assets, err
}

func (c *GormCatalog) Count(ctx context.Context, f AssetFilter) (int64, error) {
	var total int64
	err := c.scoped(ctx, f).Count(&total).Error
	return total, err
}
