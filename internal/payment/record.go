package payment

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Issuer responses, receipts and webhook responses all carry amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Issuer status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Fallback used when a product or user reference cannot be resolved.
const Unknown = "unknown"

// Record is a payment as reported by the issuer's API. It is only trusted when it
// was fetched by the verifier during the current request.
type Record struct {
	Identifier string            `json:"identifier"`
	Amount     decimal.Decimal   `json:"amount"`
	Status     string            `json:"status"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UserUID    string            `json:"user_uid,omitempty"`
}

// ProductID returns metadata.productId, or Unknown when the issuer did not carry one.
func (r *Record) ProductID() string {
	if id := r.Metadata["productId"]; id != "" {
		return id
	}
	return Unknown
}

// IsCompleted reports whether the issuer considers the payment settled.
func (r *Record) IsCompleted() bool { return r.Status == StatusCompleted }

// issuerRecord mirrors the wire shape. Metadata values are issuer-controlled and
// may be any JSON type, so they are decoded loosely and stringified.
type issuerRecord struct {
	Identifier string                 `json:"identifier"`
	Amount     *decimal.Decimal       `json:"amount"`
	Status     string                 `json:"status"`
	Metadata   map[string]interface{} `json:"metadata"`
	UserUID    string                 `json:"user_uid"`
}

// ParseRecord decodes an issuer response body. It fails when the body is not a
// JSON object or lacks the payment identifier.
func ParseRecord(body []byte) (*Record, error) {
	var raw issuerRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if raw.Identifier == "" {
		return nil, fmt.Errorf("decode payment: identifier missing")
	}
	rec := &Record{
		Identifier: raw.Identifier,
		Status:     raw.Status,
		UserUID:    raw.UserUID,
	}
	if raw.Amount != nil {
		rec.Amount = *raw.Amount
	}
	if len(raw.Metadata) > 0 {
		rec.Metadata = make(map[string]string, len(raw.Metadata))
		for k, v := range raw.Metadata {
			switch s := v.(type) {
			case string:
				rec.Metadata[k] = s
			case nil:
			default:
				b, _ := json.Marshal(s)
				rec.Metadata[k] = string(b)
			}
		}
	}
	return rec, nil
}
