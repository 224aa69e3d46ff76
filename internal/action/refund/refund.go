package refund

import (
	"context"
	"time"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// StatusRefunded is reported for every simulated refund.
const StatusRefunded = "refunded"

// SimulatedRefundAction handles "refund". It is a simulation for sandbox use: it
// issues a refund reference and audits it, but reverses nothing with the issuer
// and leaves any delivery receipt in place.
type SimulatedRefundAction struct {
	audit *auditlog.Logger
	now   func() time.Time
}

func New(audit *auditlog.Logger) *SimulatedRefundAction {
	return &SimulatedRefundAction{audit: audit, now: time.Now}
}

func (a *SimulatedRefundAction) Type() string { return payment.ActionRefund }

func (a *SimulatedRefundAction) Execute(ctx context.Context, req *action.Request) (*action.Response, error) {
	now := a.now()
	resp := &action.Response{
		Success:   true,
		Message:   "Refund simulated (testnet only)",
		PaymentID: req.Record.Identifier,
		RefundID:  payment.NewReference(payment.PrefixRefund),
		Status:    StatusRefunded,
		Timestamp: &now,
	}
	data := auditlog.Fields(resp)
	data["simulated"] = true
	a.audit.Info(ctx, auditlog.TagRefundSimulated, data)
	return resp, nil
}
