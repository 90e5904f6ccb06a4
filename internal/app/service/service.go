package service

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// Cache is the JSON cache used for product details and filter options.
// A nil Cache disables caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenRevoker blacklists access tokens on logout.
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, token string, expiry time.Duration) error
}

// SearchRanking keeps the popular search terms.
type SearchRanking interface {
	IncrementSearchTerm(ctx context.Context, term string) error
	TopSearchTerms(ctx context.Context, limit int) ([]string, error)
}

// LiveFeed pushes activity events to connected admin sessions. A nil
// LiveFeed drops them.
type LiveFeed interface {
	Broadcast(topic string, data interface{})
}

func broadcast(feed LiveFeed, topic string, data interface{}) {
	if feed != nil {
		feed.Broadcast(topic, data)
	}
}

// announcePayment is sent for every payment status change.
func announcePayment(feed LiveFeed, orderID uint, status model.PaymentStatus, amount float64) {
	broadcast(feed, events.TopicPaymentStatus, events.PaymentStatusChanged{
		OrderID: orderID,
		Status:  string(status),
		Amount:  amount,
	})
}

// BulkResult reports a batch operation that keeps going past failed items.
type BulkResult struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Errors       []string `json:"errors"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{Errors: []string{}}
}

func (r *BulkResult) ok() {
	r.SuccessCount++
}

func (r *BulkResult) fail(msg string) {
	r.FailureCount++
	r.Errors = append(r.Errors, msg)
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// invalidate drops cache keys. Failures are logged only; the entries expire anyway.
func invalidate(ctx context.Context, cache Cache, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		logger.Warn("Failed to invalidate cache", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}
