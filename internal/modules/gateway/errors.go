package gateway

import "errors"

var (
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
