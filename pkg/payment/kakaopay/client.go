// Package kakaopay is a client for the Kakao Pay hosted checkout API:
// ready opens a checkout session, approve captures it with the pg_token the
// buyer's browser returns with, cancel refunds a captured payment.
package kakaopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error) {
	req.CID = c.config.CID
	if req.ApprovalURL == "" {
		req.ApprovalURL = c.config.ApprovalURL
	}
	if req.FailURL == "" {
		req.FailURL = c.config.FailURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}

	var resp ReadyResponse
	if err := c.do(ctx, "ready", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Approve(ctx context.Context, req ApproveRequest) (*ApproveResponse, error) {
	req.CID = c.config.CID

	var resp ApproveResponse
	if err := c.do(ctx, "approve", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Cancel(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	req.CID = c.config.CID

	var resp CancelResponse
	if err := c.do(ctx, "cancel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)
	logger.Debug("Kakao Pay request", map[string]interface{}{
		"url": url,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "SECRET_KEY "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		_ = json.Unmarshal(raw, &errResp)
		detail := fmt.Sprintf("status %d, code %d: %s", resp.StatusCode, errResp.Code, errResp.Message)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrInvalidRequest, detail)
		default:
			return fmt.Errorf("%w: %s", ErrPaymentFailed, detail)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", endpoint, err)
	}
	return nil
}
