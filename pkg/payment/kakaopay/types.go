package kakaopay

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is the zone-less timestamp format used in every response.
const timeLayout = "2006-01-02T15:04:05"

// Timestamp decodes the API's timestamps, which carry no zone.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed
	return nil
}

type ReadyRequest struct {
	CID            string `json:"cid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	ItemName       string `json:"item_name"`
	Quantity       int    `json:"quantity"`
	TotalAmount    int64  `json:"total_amount"`
	TaxFreeAmount  int64  `json:"tax_free_amount"`
	ApprovalURL    string `json:"approval_url"`
	FailURL        string `json:"fail_url"`
	CancelURL      string `json:"cancel_url"`
}

type ReadyResponse struct {
	TID                   string    `json:"tid"`
	NextRedirectAppURL    string    `json:"next_redirect_app_url"`
	NextRedirectMobileURL string    `json:"next_redirect_mobile_url"`
	NextRedirectPCURL     string    `json:"next_redirect_pc_url"`
	CreatedAt             Timestamp `json:"created_at"`
}

type ApproveRequest struct {
	CID            string `json:"cid"`
	TID            string `json:"tid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	PgToken        string `json:"pg_token"`
}

type Amount struct {
	Total    int64 `json:"total"`
	TaxFree  int64 `json:"tax_free"`
	VAT      int64 `json:"vat"`
	Point    int64 `json:"point"`
	Discount int64 `json:"discount"`
}

type ApproveResponse struct {
	AID               string    `json:"aid"`
	TID               string    `json:"tid"`
	PartnerOrderID    string    `json:"partner_order_id"`
	PaymentMethodType string    `json:"payment_method_type"`
	Amount            Amount    `json:"amount"`
	ApprovedAt        Timestamp `json:"approved_at"`
}

type CancelRequest struct {
	CID                 string `json:"cid"`
	TID                 string `json:"tid"`
	CancelAmount        int64  `json:"cancel_amount"`
	CancelTaxFreeAmount int64  `json:"cancel_tax_free_amount"`
}

type CancelResponse struct {
	TID                   string    `json:"tid"`
	Status                string    `json:"status"`
	CanceledAmount        Amount    `json:"canceled_amount"`
	CancelAvailableAmount Amount    `json:"cancel_available_amount"`
	CanceledAt            Timestamp `json:"canceled_at"`
}

type ErrorResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}
