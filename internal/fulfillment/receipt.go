package fulfillment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gyaneshwarpardhi/piwebhook/internal/jsonl"
)

// Receipt is the durable record that a payment resulted in a product grant. One
// JSON line per delivery: {timestamp, product_id, user_id, payment_id, license_key, amount}.
type Receipt struct {
	Timestamp  time.Time       `json:"timestamp"`
	ProductID  string          `json:"product_id"`
	UserID     string          `json:"user_id"`
	PaymentID  string          `json:"payment_id"`
	LicenseKey string          `json:"license_key"`
	Amount     decimal.Decimal `json:"amount"`
}

// ReceiptStore appends receipts and answers whether a payment was already delivered.
type ReceiptStore interface {
	Append(ctx context.Context, r Receipt) error
	// Find returns the first receipt for paymentID, or nil when none exists.
	Find(ctx context.Context, paymentID string) (*Receipt, error)
}

// FileReceiptStore keeps receipts in a JSON-lines file and looks them up by scan.
type FileReceiptStore struct {
	f *jsonl.File
}

// NewFileReceiptStore returns a store writing to path.
func NewFileReceiptStore(path string) *FileReceiptStore {
	return &FileReceiptStore{f: jsonl.Open(path)}
}

func (s *FileReceiptStore) Append(_ context.Context, r Receipt) error {
	return s.f.Append(r)
}

func (s *FileReceiptStore) Find(ctx context.Context, paymentID string) (*Receipt, error) {
	var found *Receipt
	err := s.f.Scan(ctx, func(line []byte) bool {
		var r Receipt
		if err := json.Unmarshal(line, &r); err != nil {
			return true
		}
		if r.PaymentID == paymentID {
			found = &r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Healthy reports whether the receipt file accepts writes.
func (s *FileReceiptStore) Healthy() bool { return s.f.Writable() }
