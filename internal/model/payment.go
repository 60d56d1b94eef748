// internal/model/payment.go
package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentIntentStatus represents the SDK's payment intent lifecycle state
type PaymentIntentStatus string

const (
	PaymentIntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentRequiresCapture       PaymentIntentStatus = "requires_capture"
	PaymentIntentProcessing            PaymentIntentStatus = "processing"
	PaymentIntentSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentCanceled              PaymentIntentStatus = "canceled"
)

// PaymentIntent is an externally tracked charge attempt. Only OriginalJSON is
// handed back to the host; the other fields exist for logging.
type PaymentIntent struct {
	ID           string              `json:"id"`
	Status       PaymentIntentStatus `json:"status"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	OriginalJSON json.RawMessage     `json:"originalJSON,omitempty"`
}

// MajorAmount returns the intent amount in major currency units
func (p *PaymentIntent) MajorAmount() decimal.Decimal {
	return MinorToMajor(p.Amount, p.Currency)
}

// CardDetails is the card summary attached to a reusable payment method
type CardDetails struct {
	Brand       string  `json:"brand"`
	Country     *string `json:"country"`
	ExpMonth    int     `json:"expMonth"`
	ExpYear     int     `json:"expYear"`
	Fingerprint *string `json:"fingerprint"`
	Last4       string  `json:"last4"`
	Funding     int     `json:"funding"`
}

// PaymentMethod is a payment method read from a reader
type PaymentMethod struct {
	ID           string          `json:"id"`
	Card         *CardDetails    `json:"card,omitempty"`
	OriginalJSON json.RawMessage `json:"originalJSON,omitempty"`
}

// CollectConfiguration carries the per-collection options
type CollectConfiguration struct {
	SkipTipping bool `json:"skipTipping"`
}

// ReadReusableCardParameters configures a reusable card read
type ReadReusableCardParameters struct {
	Customer *string           `json:"customer,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CartLineItem is a single display line on the reader
type CartLineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      int64  `json:"amount"`
}

// Cart is the display-only basket pushed to the reader screen
type Cart struct {
	Currency  string         `json:"currency"`
	Tax       int64          `json:"tax"`
	Total     int64          `json:"total"`
	LineItems []CartLineItem `json:"lineItems"`
}

// ReaderDisplay is the host's setReaderDisplay payload
type ReaderDisplay struct {
	Type string `json:"type,omitempty"`
	Cart *Cart  `json:"cart"`
}

// Validate checks the cart is displayable
func (c *Cart) Validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return ErrCartCurrency
	}
	for _, item := range c.LineItems {
		if item.Quantity <= 0 {
			return ErrCartQuantity
		}
	}
	return nil
}

// Currencies whose minor unit is not a hundredth of the major unit
var (
	zeroDecimalCurrencies = map[string]struct{}{
		"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
		"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
	}
	threeDecimalCurrencies = map[string]struct{}{
		"bhd": {}, "jod": {}, "kwd": {}, "omr": {}, "tnd": {},
	}
)

// CurrencyExponent returns the decimal exponent of currency's minor unit
func CurrencyExponent(currency string) int32 {
	code := strings.ToLower(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return -3
	}
	return -2
}

// MinorToMajor converts an amount in currency's minor units to a decimal major amount
func MinorToMajor(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, CurrencyExponent(currency))
}
