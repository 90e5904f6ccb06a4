package kakaopay

import "errors"

var (
	ErrInvalidConfig  = errors.New("invalid kakao pay config")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrUnauthorized   = errors.New("unauthorized: invalid secret key")
	ErrPaymentFailed  = errors.New("payment failed")
	ErrNetworkError   = errors.New("network error")
)
