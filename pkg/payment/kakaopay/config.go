package kakaopay

import "fmt"

// DefaultBaseURL is the online payment API endpoint.
const DefaultBaseURL = "https://open-api.kakaopay.com/online/v1/payment"

type Config struct {
	SecretKey string
	CID       string // merchant code
	BaseURL   string

	// Redirect targets after the buyer leaves the hosted checkout page.
	ApprovalURL string
	FailURL     string
	CancelURL   string
}

func (c *Config) Validate() error {
	required := map[string]string{
		"secret key":   c.SecretKey,
		"cid":          c.CID,
		"approval url": c.ApprovalURL,
		"fail url":     c.FailURL,
		"cancel url":   c.CancelURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
		}
	}
	return nil
}
