package action

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// Response is the webhook response envelope. Only the fields relevant to the
// action that produced it are set.
type Response struct {
	StatusCode int `json:"-"`

	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`

	PaymentID      string           `json:"payment_id,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Status         string           `json:"status,omitempty"`
	ProductID      string           `json:"product_id,omitempty"`
	ProductName    string           `json:"product_name,omitempty"`
	UserID         string           `json:"user_id,omitempty"`
	Timestamp      *time.Time       `json:"timestamp,omitempty"`
	TransactionID  string           `json:"transaction_id,omitempty"`
	DeliveryStatus string           `json:"delivery_status,omitempty"`
	LicenseKey     string           `json:"license_key,omitempty"`
	ActivationDate *time.Time       `json:"activation_date,omitempty"`
	ExpiryDate     *time.Time       `json:"expiry_date,omitempty"`
	DeliveryMethod string           `json:"delivery_method,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Verified       bool             `json:"verified,omitempty"`
	RefundID       string           `json:"refund_id,omitempty"`
}

// Failure builds the failure envelope for a domain error.
func Failure(err error) *Response {
	var pe *payment.Error
	if !errors.As(err, &pe) {
		return &Response{Success: false, Error: "Internal server error"}
	}
	resp := &Response{Success: false, Error: pe.Message}
	if pe.Kind != payment.KindInternal {
		resp.Details = pe.Detail
	}
	return resp
}
