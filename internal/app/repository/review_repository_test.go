package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReviewTest(t *testing.T) (*gorm.DB, *ReviewRepository, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	product := createTestProduct(t, testDB, "Sneaker", nil, 5, 80)
	return testDB, NewReviewRepository(testDB), product
}

func TestReviewRepository_Statistics(t *testing.T) {
	testDB, repo, product := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	ratings := []int{5, 4, 4, 1}
	for i, rating := range ratings {
		user := createTestUser(t, testDB, "reviewer"+string(rune('a'+i)))
		review := &model.ProductReview{
			ProductID:          product.ID,
			UserID:             user.ID,
			Rating:             rating,
			IsApproved:         true,
			IsVerifiedPurchase: i == 0,
		}
		require.NoError(t, repo.CreateReview(review))
	}

	hidden := createTestUser(t, testDB, "hidden")
	review := &model.ProductReview{ProductID: product.ID, UserID: hidden.ID, Rating: 1, IsApproved: true}
	require.NoError(t, repo.CreateReview(review))
	require.NoError(t, repo.SetApproved(review.ID, false))

	stats, err := repo.GetProductStatistics(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalReviews)
	assert.InDelta(t, 3.5, stats.AverageRating, 0.001)
	assert.Equal(t, int64(2), stats.RatingCounts[4])
	assert.Equal(t, int64(0), stats.RatingCounts[2])
	assert.Equal(t, int64(1), stats.VerifiedCount)

	page, err := repo.GetReviewsByProductID(product.ID, true, Pagination{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
}

func TestReviewRepository_MarkHelpfulOncePerUser(t *testing.T) {
	testDB, repo, product := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	author := createTestUser(t, testDB, "author")
	voter := createTestUser(t, testDB, "voter")
	review := &model.ProductReview{ProductID: product.ID, UserID: author.ID, Rating: 5, IsApproved: true}
	require.NoError(t, repo.CreateReview(review))

	marked, err := repo.MarkHelpful(review.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repo.MarkHelpful(review.ID, voter.ID)
	require.NoError(t, err)
	assert.False(t, marked)

	reloaded, err := repo.GetReviewByID(review.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.HelpfulCount)

	helpful, err := repo.GetMostHelpfulReviews(product.ID, 3)
	require.NoError(t, err)
	require.Len(t, helpful, 1)
}

func TestReviewRepository_HasPurchased(t *testing.T) {
	testDB, repo, product := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	buyer := createTestUser(t, testDB, "buyer")
	order := &model.Order{
		UserID:      buyer.ID,
		TotalAmount: 80,
		Status:      model.OrderStatusDelivered,
		OrderItems: []model.OrderItem{
			{ProductID: product.ID, SkuID: product.Skus[0].ID, Quantity: 1, Price: 80},
		},
	}
	require.NoError(t, testDB.Create(order).Error)

	ok, err := repo.HasPurchased(buyer.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasPurchased(buyer.ID, product.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)
}
