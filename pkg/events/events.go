// Package events carries domain events out of the request path: order
// messages to RabbitMQ and activity topics to the admin live feed.
package events

import "time"

// Live feed topics.
const (
	TopicProductViewed = "product_viewed"
	TopicOrderPlaced   = "order_placed"
	TopicLowStock      = "low_stock"
	TopicPaymentStatus = "payment_status"
)

// Topics lists every live feed topic a client may subscribe to.
var Topics = []string{TopicProductViewed, TopicOrderPlaced, TopicLowStock, TopicPaymentStatus}

func ValidTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Event is one message on the admin live feed.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type ProductViewed struct {
	ProductID uint   `json:"product_id"`
	UserID    *uint  `json:"user_id,omitempty"`
	IPAddress string `json:"ip_address"`
}

type OrderLine struct {
	ProductID uint    `json:"product_id"`
	SkuID     uint    `json:"sku_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderPlaced is published to the order queue after a checkout commits.
type OrderPlaced struct {
	OrderID     uint        `json:"order_id"`
	UserID      uint        `json:"user_id"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderLine `json:"items"`
	PlacedAt    time.Time   `json:"placed_at"`
}

type LowStock struct {
	ProductID uint   `json:"product_id"`
	SkuID     uint   `json:"sku_id"`
	Sku       string `json:"sku"`
	Quantity  int    `json:"quantity"`
}

// PaymentStatusChanged is broadcast when a gateway callback settles a payment.
type PaymentStatusChanged struct {
	OrderID uint    `json:"order_id"`
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
}

// PasswordResetRequested goes to the notification queue; the mailer builds
// the reset link from Token.
type PasswordResetRequested struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
