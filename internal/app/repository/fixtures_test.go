package repository

import (
	"fmt"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestUser(t *testing.T, testDB *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func createTestCategory(t *testing.T, testDB *gorm.DB, name string) *model.Category {
	t.Helper()
	category := &model.Category{Name: name}
	require.NoError(t, testDB.Create(category).Error)
	return category
}

// createTestProduct creates a product with one SKU per price, each holding qty units.
func createTestProduct(t *testing.T, testDB *gorm.DB, name string, categoryID *uint, qty int, prices ...float64) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, CategoryID: categoryID}
	require.NoError(t, testDB.Create(product).Error)
	for i, price := range prices {
		sku := &model.ProductSku{
			ProductID: product.ID,
			Sku:       fmt.Sprintf("SKU-%d-%d", product.ID, i),
			Price:     price,
			Quantity:  qty,
		}
		require.NoError(t, testDB.Create(sku).Error)
		product.Skus = append(product.Skus, *sku)
	}
	return product
}
