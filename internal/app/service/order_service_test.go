package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type capturePublisher struct {
	mu       sync.Mutex
	messages []events.OrderPlaced
	err      error
}

func (p *capturePublisher) PublishOrderPlaced(_ context.Context, msg events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

type orderFixture struct {
	db        *gorm.DB
	orders    OrderService
	carts     CartService
	publisher *capturePublisher
	feed      *recordingFeed
	user      *model.User
	product   *model.Product
}

func setupOrderServiceTest(t *testing.T) *orderFixture {
	testDB := setupTestDB(t)
	publisher := &capturePublisher{}
	feed := &recordingFeed{}
	return &orderFixture{
		db:        testDB,
		orders:    NewOrderService(testDB, repository.NewOrderRepository(testDB), publisher, feed),
		carts:     NewCartService(repository.NewCartRepository(testDB), repository.NewSkuRepository(testDB)),
		publisher: publisher,
		feed:      feed,
		user:      createUser(t, testDB, "buyer"),
		product:   createProduct(t, testDB, "Sneaker", nil, 8, 100, 110),
	}
}

func (f *orderFixture) skuQuantity(t *testing.T, id uint) int {
	t.Helper()
	var sku model.ProductSku
	require.NoError(t, f.db.Unscoped().First(&sku, id).Error)
	return sku.Quantity
}

func TestOrderService_Checkout(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 4)
	require.NoError(t, err)
	_, err = f.carts.AddItem(f.user.ID, f.product.Skus[1].ID, 1)
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 510.0, order.TotalAmount)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, 100.0, order.OrderItems[0].Price)
	require.NotNil(t, order.Payment)
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, "card", order.Payment.Provider)

	assert.Equal(t, 4, f.skuQuantity(t, f.product.Skus[0].ID))
	assert.Equal(t, 7, f.skuQuantity(t, f.product.Skus[1].ID))

	empty, err := f.carts.IsEmpty(f.user.ID)
	require.NoError(t, err)
	assert.True(t, empty)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, order.ID, f.publisher.messages[0].OrderID)
	assert.Len(t, f.publisher.messages[0].Items, 2)
	assert.Equal(t, 1, f.feed.count(events.TopicOrderPlaced))
	// 8 - 4 leaves the first SKU under the threshold
	assert.Equal(t, 1, f.feed.count(events.TopicLowStock))
}

func TestOrderService_CheckoutFailures(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()

	_, err := f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	assert.ErrorIs(t, err, ErrCartEmpty)

	_, err = f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: " "})
	assert.ErrorIs(t, err, ErrShippingAddressRequired)

	_, err = f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 6)
	require.NoError(t, err)
	// someone else bought most of the stock meanwhile
	require.NoError(t, f.db.Model(&model.ProductSku{}).Where("id = ?", f.product.Skus[0].ID).Update("quantity", 2).Error)

	_, err = f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)

	// nothing changed
	assert.Equal(t, 2, f.skuQuantity(t, f.product.Skus[0].ID))
	count, err := f.carts.ItemCount(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	var orders int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Empty(t, f.publisher.messages)
}

func TestOrderService_CheckoutTwice(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 2)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	_, err = f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	assert.ErrorIs(t, err, ErrCartEmpty)

	var orders int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	assert.Equal(t, 6, f.skuQuantity(t, f.product.Skus[0].ID))
}

func TestOrderService_CheckoutCartChanged(t *testing.T) {
	f := setupOrderServiceTest(t)
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 2)
	require.NoError(t, err)

	// another checkout empties the cart between our read and our clear
	emptied := false
	require.NoError(t, f.db.Callback().Delete().Before("gorm:delete").Register("test:concurrent_clear", func(tx *gorm.DB) {
		if emptied || tx.Statement.Table != "cart_items" {
			return
		}
		emptied = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM cart_items")
	}))

	_, err = f.orders.Checkout(context.Background(), f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	assert.ErrorIs(t, err, ErrCartChanged)
	assert.True(t, emptied)

	// the whole checkout rolled back
	var orders int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Equal(t, 8, f.skuQuantity(t, f.product.Skus[0].ID))
	count, err := f.carts.ItemCount(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, f.publisher.messages)
}

func TestOrderService_PublishFailureKeepsOrder(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.publisher.err = errors.New("broker down")
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[1].ID, 1)
	require.NoError(t, err)

	order, err := f.orders.Checkout(context.Background(), f.user.ID, CheckoutInput{ShippingAddress: "2 Side St", PaymentProvider: "paypal"})
	require.NoError(t, err)
	assert.Equal(t, "paypal", order.Payment.Provider)
}

func TestOrderService_UserOrdersAndCancel(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	stranger := createUser(t, f.db, "stranger")
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 3)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)

	page, err := f.orders.ListUserOrders(f.user.ID, repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)

	_, err = f.orders.GetUserOrder(stranger.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.orders.CancelOrder(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled, err := f.orders.CancelOrder(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, model.PaymentStatusCancelled, cancelled.Payment.Status)
	assert.Equal(t, 8, f.skuQuantity(t, f.product.Skus[0].ID))
	require.Equal(t, 1, f.feed.count(events.TopicPaymentStatus))
	payment := f.feed.last(events.TopicPaymentStatus).(events.PaymentStatusChanged)
	assert.Equal(t, string(model.PaymentStatusCancelled), payment.Status)
	assert.Equal(t, 300.0, payment.Amount)

	_, err = f.orders.CancelOrder(ctx, f.user.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestOrderService_AdminStatusUpdates(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 1)
	require.NoError(t, err)
	order, err := f.orders.Checkout(ctx, f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, order.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
	_, err = f.orders.UpdateStatus(ctx, 9999, model.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	shipped, err := f.orders.UpdateStatus(ctx, order.ID, model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, shipped.Status)

	// stock only comes back for pending orders
	_, err = f.orders.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 7, f.skuQuantity(t, f.product.Skus[0].ID))
	assert.Zero(t, f.feed.count(events.TopicPaymentStatus))

	_, err = f.orders.UpdateStatus(ctx, order.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	paid, err := f.orders.UpdatePaymentStatus(order.ID, model.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, paid.Payment.Status)
	require.Equal(t, 1, f.feed.count(events.TopicPaymentStatus))
	payment := f.feed.last(events.TopicPaymentStatus).(events.PaymentStatusChanged)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.Equal(t, string(model.PaymentStatusRefunded), payment.Status)

	_, err = f.orders.UpdatePaymentStatus(order.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
	_, err = f.orders.UpdatePaymentStatus(9999, model.PaymentStatusCompleted)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	status := model.OrderStatusCancelled
	page, err := f.orders.ListAll(&status, repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
}
