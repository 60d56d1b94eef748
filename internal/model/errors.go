// internal/model/errors.go
package model

import "errors"

var (
	ErrCartCurrency = errors.New("cart currency is required")
	ErrCartQuantity = errors.New("cart line item quantity must be positive")
)
