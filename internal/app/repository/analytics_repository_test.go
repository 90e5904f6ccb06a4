package repository

import (
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepository_ViewStats(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAnalyticsRepository(testDB)
	user := createTestUser(t, testDB, "viewer")
	product := createTestProduct(t, testDB, "Cap", nil, 3, 12)
	now := time.Now()

	views := []*model.ProductView{
		{ProductID: product.ID, UserID: &user.ID, IPAddress: "10.0.0.1", ViewedAt: now},
		{ProductID: product.ID, UserID: &user.ID, IPAddress: "10.0.0.1", ViewedAt: now.Add(-time.Hour)},
		{ProductID: product.ID, IPAddress: "10.0.0.2", ViewedAt: now.AddDate(0, 0, -10)},
	}
	for _, v := range views {
		require.NoError(t, repo.CreateView(v))
	}

	stats, err := repo.ViewStats(product.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalViews)
	assert.Equal(t, int64(2), stats.UniqueViewers)
	assert.Equal(t, int64(2), stats.ViewsLast7Days)
}

func TestAnalyticsRepository_Recommendations(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAnalyticsRepository(testDB)
	user := createTestUser(t, testDB, "target")
	a := createTestProduct(t, testDB, "A", nil, 1, 10)
	b := createTestProduct(t, testDB, "B", nil, 1, 10)

	recs := []model.ProductRecommendation{
		{UserID: user.ID, ProductID: a.ID, Type: model.RecommendationTrending, Score: 0.4},
		{UserID: user.ID, ProductID: b.ID, Type: model.RecommendationPersonalized, Score: 0.9},
	}
	require.NoError(t, repo.ReplaceRecommendations(user.ID, recs))

	found, err := repo.FindRecommendations(user.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ProductID)

	personalized := model.RecommendationPersonalized
	found, err = repo.FindRecommendations(user.ID, &personalized, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, repo.UpdateRecommendation(found[0].ID, map[string]interface{}{"is_clicked": true}))
	total, clicks, err := repo.RecommendationCounts(b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), clicks)

	stats, err := repo.RecommendationStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[model.RecommendationPersonalized].Clicked)
	assert.Equal(t, int64(1), stats[model.RecommendationTrending].Count)

	// replacing drops the previous set
	require.NoError(t, repo.ReplaceRecommendations(user.ID, nil))
	found, err = repo.FindRecommendations(user.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAnalyticsRepository_InterestCategories(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAnalyticsRepository(testDB)
	user := createTestUser(t, testDB, "curious")
	shoes := createTestCategory(t, testDB, "Shoes")
	hats := createTestCategory(t, testDB, "Hats")
	boot := createTestProduct(t, testDB, "Boot", &shoes.ID, 1, 50)
	hat := createTestProduct(t, testDB, "Cap", &hats.ID, 1, 10)

	require.NoError(t, repo.CreateView(&model.ProductView{ProductID: boot.ID, UserID: &user.ID}))
	require.NoError(t, repo.CreateView(&model.ProductView{ProductID: boot.ID, UserID: &user.ID}))
	require.NoError(t, testDB.Create(&model.WishlistItem{UserID: user.ID, ProductID: hat.ID}).Error)

	rows, err := repo.InterestCategories(user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, shoes.ID, rows[0].CategoryID)
	assert.Equal(t, int64(2), rows[0].Count)

	viewed, err := repo.RecentlyViewed(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, viewed, 1)
	assert.Equal(t, boot.ID, viewed[0].ProductID)
	assert.Equal(t, shoes.ID, viewed[0].CategoryID)
}
