package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	ready      kakaopay.ReadyRequest
	cancel     kakaopay.CancelRequest
	approveErr error
}

func (g *stubGateway) Ready(_ context.Context, req kakaopay.ReadyRequest) (*kakaopay.ReadyResponse, error) {
	g.ready = req
	return &kakaopay.ReadyResponse{TID: "T100", NextRedirectPCURL: "https://pay.example/T100"}, nil
}

func (g *stubGateway) Approve(_ context.Context, req kakaopay.ApproveRequest) (*kakaopay.ApproveResponse, error) {
	if g.approveErr != nil {
		return nil, g.approveErr
	}
	return &kakaopay.ApproveResponse{AID: "A1", TID: req.TID}, nil
}

func (g *stubGateway) Cancel(_ context.Context, req kakaopay.CancelRequest) (*kakaopay.CancelResponse, error) {
	g.cancel = req
	return &kakaopay.CancelResponse{TID: req.TID, CanceledAmount: kakaopay.Amount{Total: req.CancelAmount}}, nil
}

type paymentFixture struct {
	*orderFixture
	gateway  *stubGateway
	payments PaymentService
	order    *model.Order
}

func setupPaymentServiceTest(t *testing.T) *paymentFixture {
	f := setupOrderServiceTest(t)
	gateway := &stubGateway{}

	_, err := f.carts.AddItem(f.user.ID, f.product.Skus[0].ID, 2)
	require.NoError(t, err)
	order, err := f.orders.Checkout(context.Background(), f.user.ID, CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)

	return &paymentFixture{
		orderFixture: f,
		gateway:      gateway,
		payments:     NewPaymentService(f.db, repository.NewOrderRepository(f.db), gateway, f.feed),
		order:        order,
	}
}

func TestPaymentService_ApproveFlow(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()

	session, err := f.payments.Initiate(ctx, f.user.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "T100", session.TransactionID)
	assert.Equal(t, "https://pay.example/T100", session.RedirectPCURL)
	assert.Equal(t, int64(200), f.gateway.ready.TotalAmount)
	assert.Equal(t, 2, f.gateway.ready.Quantity)
	assert.Equal(t, "Sneaker", f.gateway.ready.ItemName)

	order, err := f.payments.Approve(ctx, f.user.ID, f.order.ID, "pg-token")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.Equal(t, model.PaymentStatusCompleted, order.Payment.Status)
	assert.Equal(t, GatewayProvider, order.Payment.Provider)
	assert.NotNil(t, order.Payment.ApprovedAt)
	assert.Equal(t, 1, f.feed.count(events.TopicPaymentStatus))

	_, err = f.payments.Approve(ctx, f.user.ID, f.order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentAlreadyProcessed)
}

func TestPaymentService_ApproveRequiresInitiate(t *testing.T) {
	f := setupPaymentServiceTest(t)

	_, err := f.payments.Approve(context.Background(), f.user.ID, f.order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentNotInitiated)

	_, err = f.payments.Approve(context.Background(), f.user.ID, f.order.ID, "")
	assert.ErrorIs(t, err, ErrPgTokenRequired)
}

func TestPaymentService_OtherUsersOrder(t *testing.T) {
	f := setupPaymentServiceTest(t)
	other := createUser(t, f.db, "other")

	_, err := f.payments.Initiate(context.Background(), other.ID, f.order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentService_RejectedApprovalMarksFailed(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	_, err := f.payments.Initiate(ctx, f.user.ID, f.order.ID)
	require.NoError(t, err)

	f.gateway.approveErr = errors.New("declined")
	_, err = f.payments.Approve(ctx, f.user.ID, f.order.ID, "pg-token")
	require.Error(t, err)
	require.Equal(t, 1, f.feed.count(events.TopicPaymentStatus))
	failed := f.feed.last(events.TopicPaymentStatus).(events.PaymentStatusChanged)
	assert.Equal(t, string(model.PaymentStatusFailed), failed.Status)
	assert.Equal(t, f.order.ID, failed.OrderID)
	assert.Equal(t, 200.0, failed.Amount)

	order, err := f.orders.GetUserOrder(f.user.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusFailed, order.Payment.Status)

	// a failed payment can be retried
	f.gateway.approveErr = nil
	_, err = f.payments.Initiate(ctx, f.user.ID, f.order.ID)
	require.NoError(t, err)
	order, err = f.payments.Approve(ctx, f.user.ID, f.order.ID, "pg-token")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, order.Payment.Status)
	assert.Equal(t, 2, f.feed.count(events.TopicPaymentStatus))
}

func TestPaymentService_Fail(t *testing.T) {
	f := setupPaymentServiceTest(t)

	order, err := f.payments.Fail(context.Background(), f.user.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, order.Payment.Status)

	_, err = f.payments.Fail(context.Background(), f.user.ID, f.order.ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyProcessed)
}

func TestPaymentService_Refund(t *testing.T) {
	f := setupPaymentServiceTest(t)
	ctx := context.Background()
	skuID := f.product.Skus[0].ID
	assert.Equal(t, 6, f.skuQuantity(t, skuID))

	_, err := f.payments.Refund(ctx, f.order.ID)
	assert.ErrorIs(t, err, ErrPaymentNotRefundable)

	_, err = f.payments.Initiate(ctx, f.user.ID, f.order.ID)
	require.NoError(t, err)
	_, err = f.payments.Approve(ctx, f.user.ID, f.order.ID, "pg-token")
	require.NoError(t, err)

	order, err := f.payments.Refund(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, model.PaymentStatusRefunded, order.Payment.Status)
	assert.Equal(t, int64(200), f.gateway.cancel.CancelAmount)
	assert.Equal(t, 8, f.skuQuantity(t, skuID))
}

func TestPaymentService_Unavailable(t *testing.T) {
	f := setupPaymentServiceTest(t)
	payments := NewPaymentService(f.db, repository.NewOrderRepository(f.db), nil, nil)

	_, err := payments.Initiate(context.Background(), f.user.ID, f.order.ID)
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	_, err = payments.Approve(context.Background(), f.user.ID, f.order.ID, "pg-token")
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	_, err = payments.Fail(context.Background(), f.user.ID, f.order.ID)
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	_, err = payments.Refund(context.Background(), f.order.ID)
	assert.ErrorIs(t, err, ErrPaymentUnavailable)

	// the payment is left untouched
	order, err := f.orders.GetUserOrder(f.user.ID, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
}
