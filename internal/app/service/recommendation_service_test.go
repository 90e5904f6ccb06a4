package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRecommendationService(testDB *gorm.DB, feed LiveFeed) RecommendationService {
	return NewRecommendationService(
		repository.NewAnalyticsRepository(testDB),
		repository.NewProductRepository(testDB),
		repository.NewWishlistRepository(testDB),
		repository.NewReviewRepository(testDB),
		repository.NewUserRepository(testDB),
		feed,
		10,
	)
}

func TestRecommendationService_TrackProductView(t *testing.T) {
	testDB := setupTestDB(t)
	feed := &recordingFeed{}
	svc := newTestRecommendationService(testDB, feed)
	ctx := context.Background()
	user := createUser(t, testDB, "viewer")
	product := createProduct(t, testDB, "Desk", nil, 1, 200)

	require.NoError(t, svc.TrackProductView(ctx, ViewInput{ProductID: product.ID, UserID: &user.ID, IPAddress: "10.0.0.1"}))
	require.NoError(t, svc.TrackProductView(ctx, ViewInput{ProductID: product.ID, IPAddress: "10.0.0.2"}))
	require.NoError(t, svc.TrackProductView(ctx, ViewInput{ProductID: product.ID, IPAddress: "10.0.0.2"}))

	err := svc.TrackProductView(ctx, ViewInput{ProductID: 9999})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 3, feed.count(events.TopicProductViewed))

	analytics, err := svc.ProductAnalytics(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), analytics.TotalViews)
	assert.Equal(t, int64(2), analytics.UniqueViewers)
	assert.Equal(t, int64(3), analytics.ViewsLast7Days)
	assert.Zero(t, analytics.ClickThroughRate)

	_, err = svc.ProductAnalytics(9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRecommendationService_GenerateForUser(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestRecommendationService(testDB, nil)
	user := createUser(t, testDB, "target")
	catA := createCategory(t, testDB, "A")
	catB := createCategory(t, testDB, "B")
	a1 := createProduct(t, testDB, "a1", &catA.ID, 1, 10)
	a2 := createProduct(t, testDB, "a2", &catA.ID, 1, 10)
	b1 := createProduct(t, testDB, "b1", &catB.ID, 1, 10)
	c1 := createProduct(t, testDB, "c1", nil, 1, 10)

	now := time.Now()
	view := func(productID uint, userID *uint) {
		require.NoError(t, testDB.Create(&model.ProductView{ProductID: productID, UserID: userID, ViewedAt: now}).Error)
	}
	view(a1.ID, &user.ID)
	view(a1.ID, &user.ID)
	view(b1.ID, &user.ID)
	for i := 0; i < 3; i++ {
		view(c1.ID, nil)
	}
	require.NoError(t, testDB.Create(&model.WishlistItem{UserID: user.ID, ProductID: a2.ID}).Error)

	recs, err := svc.GenerateForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, a1.ID, recs[0].ProductID)
	assert.Equal(t, model.RecommendationPersonalized, recs[0].Type)
	assert.Equal(t, c1.ID, recs[1].ProductID)
	assert.Equal(t, model.RecommendationTrending, recs[1].Type)
	assert.Equal(t, b1.ID, recs[2].ProductID)
	assert.Equal(t, model.RecommendationCategoryBased, recs[2].Type)
	assert.InDelta(t, 1.0/3.0, recs[2].Score, 0.001)
	for _, rec := range recs {
		assert.NotEqual(t, a2.ID, rec.ProductID)
	}

	listed, err := svc.List(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, a1.ID, listed[0].ProductID)

	personalized, err := svc.ListByType(user.ID, model.RecommendationPersonalized, 10)
	require.NoError(t, err)
	assert.Len(t, personalized, 1)

	_, err = svc.ListByType(user.ID, "bogus", 10)
	assert.ErrorIs(t, err, ErrInvalidRecommendation)

	// regenerating replaces the old set
	again, err := svc.GenerateForUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, again, 3)
	listed, err = svc.List(user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestRecommendationService_GenerateSimilar(t *testing.T) {
	testDB := setupTestDB(t)
	user := createUser(t, testDB, "browser")
	catA := createCategory(t, testDB, "A")
	catB := createCategory(t, testDB, "B")
	a1 := createProduct(t, testDB, "a1", &catA.ID, 1, 10)
	a2 := createProduct(t, testDB, "a2", &catA.ID, 1, 10)
	a3 := createProduct(t, testDB, "a3", &catA.ID, 1, 10)
	a4 := createProduct(t, testDB, "a4", &catA.ID, 1, 10)
	a5 := createProduct(t, testDB, "a5", &catA.ID, 1, 10)
	createProduct(t, testDB, "b1", &catB.ID, 1, 10)

	now := time.Now()
	for i, p := range []*model.Product{a1, a2, a3} {
		viewedAt := now.Add(time.Duration(i-3) * time.Minute)
		require.NoError(t, testDB.Create(&model.ProductView{ProductID: p.ID, UserID: &user.ID, ViewedAt: viewedAt}).Error)
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, testDB.Create(&model.ProductView{ProductID: a4.ID, ViewedAt: now}).Error)
	}

	svc := newTestRecommendationService(testDB, nil)
	recs, err := svc.GenerateForUser(user.ID)
	require.NoError(t, err)

	byType := map[model.RecommendationType][]uint{}
	for _, rec := range recs {
		byType[rec.Type] = append(byType[rec.Type], rec.ProductID)
	}
	// the most viewed unseen product of the category ranks first
	assert.Equal(t, []uint{a4.ID, a5.ID}, byType[model.RecommendationSimilar])
	assert.ElementsMatch(t, []uint{a1.ID, a2.ID, a3.ID}, byType[model.RecommendationPersonalized])

	similar, err := svc.ListByType(user.ID, model.RecommendationSimilar, 10)
	require.NoError(t, err)
	assert.Len(t, similar, 2)

	// a small limit still leaves room for a similar pick
	small := NewRecommendationService(
		repository.NewAnalyticsRepository(testDB),
		repository.NewProductRepository(testDB),
		repository.NewWishlistRepository(testDB),
		repository.NewReviewRepository(testDB),
		repository.NewUserRepository(testDB),
		nil,
		3,
	)
	recs, err = small.GenerateForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	types := map[model.RecommendationType]int{}
	for _, rec := range recs {
		types[rec.Type]++
	}
	assert.Equal(t, 1, types[model.RecommendationSimilar])
	assert.Equal(t, 2, types[model.RecommendationPersonalized])
}

func TestRecommendationService_OwnershipAndScore(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestRecommendationService(testDB, nil)
	owner := createUser(t, testDB, "owner")
	other := createUser(t, testDB, "other")
	product := createProduct(t, testDB, "Chair", nil, 1, 50)

	rec := &model.ProductRecommendation{UserID: owner.ID, ProductID: product.ID, Type: model.RecommendationTrending, Score: 0.4}
	require.NoError(t, testDB.Create(rec).Error)

	assert.ErrorIs(t, svc.MarkViewed(other.ID, rec.ID), ErrRecommendationForbidden)
	assert.ErrorIs(t, svc.MarkClicked(owner.ID, 9999), ErrRecommendationNotFound)
	require.NoError(t, svc.MarkClicked(owner.ID, rec.ID))

	analytics, err := svc.ProductAnalytics(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.RecommendationCount)
	assert.Equal(t, int64(1), analytics.RecommendationClicks)
	assert.Equal(t, 1.0, analytics.ClickThroughRate)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, repository.RecommendationTypeStats{Count: 1, Viewed: 1, Clicked: 1}, stats[model.RecommendationTrending])

	_, err = svc.UpdateScore(rec.ID, 1.5)
	assert.ErrorIs(t, err, ErrInvalidScore)
	updated, err := svc.UpdateScore(rec.ID, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 0.9, updated.Score)
	_, err = svc.UpdateScore(9999, 0.5)
	assert.ErrorIs(t, err, ErrRecommendationNotFound)

	assert.ErrorIs(t, svc.Remove(other.ID, rec.ID), ErrRecommendationForbidden)
	require.NoError(t, svc.Remove(owner.ID, rec.ID))
	assert.ErrorIs(t, svc.Remove(owner.ID, rec.ID), ErrRecommendationNotFound)
}

func TestRecommendationService_GenerateAll(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestRecommendationService(testDB, nil)
	createUser(t, testDB, "one")
	createUser(t, testDB, "two")
	product := createProduct(t, testDB, "Trend", nil, 1, 10)
	require.NoError(t, testDB.Create(&model.ProductView{ProductID: product.ID, ViewedAt: time.Now()}).Error)

	generated, err := svc.GenerateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, generated)

	var count int64
	require.NoError(t, testDB.Model(&model.ProductRecommendation{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.GenerateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
