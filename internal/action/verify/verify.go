package verify

import (
	"context"
	"time"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// VerifyPaymentAction handles "verify". It is read-only: it reports the record the
// pipeline already fetched and never touches fulfillment or receipts.
type VerifyPaymentAction struct {
	audit *auditlog.Logger
	now   func() time.Time
}

func New(audit *auditlog.Logger) *VerifyPaymentAction {
	return &VerifyPaymentAction{audit: audit, now: time.Now}
}

func (a *VerifyPaymentAction) Type() string { return payment.ActionVerify }

func (a *VerifyPaymentAction) Execute(ctx context.Context, req *action.Request) (*action.Response, error) {
	rec := req.Record
	now := a.now()
	amount := rec.Amount
	resp := &action.Response{
		Success:   true,
		Message:   "Payment verified",
		PaymentID: rec.Identifier,
		Amount:    &amount,
		Status:    rec.Status,
		Verified:  true,
		Timestamp: &now,
	}
	a.audit.Info(ctx, auditlog.TagPaymentVerified, auditlog.Fields(resp))
	return resp, nil
}
