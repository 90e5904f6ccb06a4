package repository

import (
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SkuRepository interface {
	Create(sku *model.ProductSku) error
	FindByID(id uint) (*model.ProductSku, error)
	// FindActiveByID only matches a live SKU whose product is live too.
	FindActiveByID(id uint) (*model.ProductSku, error)
	FindByProductID(productID uint) ([]model.ProductSku, error)
	FindFirstInStock(productID uint) (*model.ProductSku, error)
	ExistsByCode(code string) (bool, error)
	Update(sku *model.ProductSku) error
	SoftDelete(id uint) error
}

type skuRepository struct {
	db *gorm.DB
}

func NewSkuRepository(db *gorm.DB) SkuRepository {
	return &skuRepository{db: db}
}

func (r *skuRepository) Create(sku *model.ProductSku) error {
	logger.Debug("Creating product SKU", map[string]interface{}{
		"product_id": sku.ProductID,
		"sku":        sku.Sku,
	})

	if err := r.db.Omit("Product").Create(sku).Error; err != nil {
		logger.Error("Failed to create product SKU", err, map[string]interface{}{
			"product_id": sku.ProductID,
			"sku":        sku.Sku,
		})
		return err
	}
	return nil
}

func (r *skuRepository) FindByID(id uint) (*model.ProductSku, error) {
	var sku model.ProductSku
	err := r.db.Preload("SizeAttribute").Preload("ColorAttribute").First(&sku, id).Error
	if err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) FindActiveByID(id uint) (*model.ProductSku, error) {
	var sku model.ProductSku
	err := r.db.
		Joins("JOIN products ON products.id = product_skus.product_id AND products.deleted_at IS NULL").
		Preload("SizeAttribute").
		Preload("ColorAttribute").
		First(&sku, "product_skus.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) FindByProductID(productID uint) ([]model.ProductSku, error) {
	var skus []model.ProductSku
	err := r.db.
		Preload("SizeAttribute").
		Preload("ColorAttribute").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&skus).Error
	return skus, err
}

func (r *skuRepository) FindFirstInStock(productID uint) (*model.ProductSku, error) {
	var sku model.ProductSku
	err := r.db.
		Where("product_id = ? AND quantity > 0", productID).
		Order("id ASC").
		First(&sku).Error
	if err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *skuRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&model.ProductSku{}).Where("sku = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *skuRepository) Update(sku *model.ProductSku) error {
	logger.Debug("Updating product SKU", map[string]interface{}{
		"sku_id":   sku.ID,
		"price":    sku.Price,
		"quantity": sku.Quantity,
	})
	return r.db.Omit(clause.Associations).Save(sku).Error
}

func (r *skuRepository) SoftDelete(id uint) error {
	result := r.db.Delete(&model.ProductSku{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type AttributeRepository interface {
	FindOrCreate(attrType model.AttributeType, value string) (*model.ProductAttribute, error)
	DistinctValues(attrType model.AttributeType) ([]string, error)
}

type attributeRepository struct {
	db *gorm.DB
}

func NewAttributeRepository(db *gorm.DB) AttributeRepository {
	return &attributeRepository{db: db}
}

// FindOrCreate matches the value case-insensitively.
func (r *attributeRepository) FindOrCreate(attrType model.AttributeType, value string) (*model.ProductAttribute, error) {
	value = strings.TrimSpace(value)

	var attr model.ProductAttribute
	err := r.db.Where("type = ? AND LOWER(value) = LOWER(?)", attrType, value).First(&attr).Error
	if err == nil {
		return &attr, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	attr = model.ProductAttribute{Type: attrType, Value: value}
	if err := r.db.Create(&attr).Error; err != nil {
		logger.Error("Failed to create product attribute", err, map[string]interface{}{
			"type":  attrType,
			"value": value,
		})
		return nil, err
	}
	return &attr, nil
}

func (r *attributeRepository) DistinctValues(attrType model.AttributeType) ([]string, error) {
	var values []string
	err := r.db.Model(&model.ProductAttribute{}).
		Distinct("value").
		Where("type = ?", attrType).
		Order("value ASC").
		Pluck("value", &values).Error
	return values, err
}
