package action

import (
	"context"

	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// Request is what every executor receives: the verified record and the raw
// webhook it was triggered by.
type Request struct {
	Record  *payment.Record
	Webhook *payment.Webhook
}

// Executor is the interface all action implementations must satisfy.
type Executor interface {
	// Type returns the action name this executor is registered under.
	Type() string
	// Execute runs the action. A *payment.Error of a non-internal kind becomes a
	// failure response; any other error is treated as an internal fault.
	Execute(ctx context.Context, req *Request) (*Response, error)
}
