package db

import (
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.PasswordReset{},
		&model.Category{},
		&model.ProductAttribute{},
		&model.Product{},
		&model.ProductSku{},
		&model.Cart{},
		&model.CartItem{},
		&model.WishlistItem{},
		&model.ProductReview{},
		&model.ReviewHelpfulVote{},
		&model.ProductView{},
		&model.ProductRecommendation{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds reference data and the bootstrap admin account. Safe to run repeatedly.
func Seed(cfg *config.SeedConfig) error {
	return SeedWith(DB, cfg)
}

func SeedWith(conn *gorm.DB, cfg *config.SeedConfig) error {
	logger.Info("Seeding initial data...")

	if err := seedAttributes(conn); err != nil {
		logger.Error("Failed to seed product attributes", err)
		return err
	}
	if err := seedCategories(conn); err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}
	if err := seedAdmin(conn, cfg); err != nil {
		logger.Error("Failed to seed admin user", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

var (
	defaultSizes      = []string{"XS", "S", "M", "L", "XL", "XXL"}
	defaultColors     = []string{"Black", "White", "Red", "Blue", "Green", "Grey"}
	defaultCategories = []model.Category{
		{Name: "T-Shirts", Description: "Short and long sleeve tees"},
		{Name: "Hoodies", Description: "Hooded sweatshirts"},
		{Name: "Accessories", Description: "Caps, bags and more"},
	}
)

func seedAttributes(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.ProductAttribute{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Product attributes already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	attributes := make([]model.ProductAttribute, 0, len(defaultSizes)+len(defaultColors))
	for _, v := range defaultSizes {
		attributes = append(attributes, model.ProductAttribute{Type: model.AttributeSize, Value: v})
	}
	for _, v := range defaultColors {
		attributes = append(attributes, model.ProductAttribute{Type: model.AttributeColor, Value: v})
	}
	return conn.Create(&attributes).Error
}

func seedCategories(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	categories := make([]model.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	return conn.Create(&categories).Error
}

func seedAdmin(conn *gorm.DB, cfg *config.SeedConfig) error {
	if cfg == nil || cfg.AdminPassword == "" {
		logger.Debug("No seed admin password configured, skipping admin seed")
		return nil
	}

	var existing model.User
	err := conn.Unscoped().Where("username = ?", cfg.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &model.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		FirstName:    "Store",
		LastName:     "Admin",
		Role:         model.RoleAdmin,
	}
	if err := conn.Create(admin).Error; err != nil {
		return err
	}
	logger.Info("Seeded admin user", map[string]interface{}{
		"user_id":  admin.ID,
		"username": admin.Username,
	})
	return nil
}
