package complete

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/fulfillment"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// Fulfiller delivers the product for a completed payment.
type Fulfiller interface {
	Fulfill(ctx context.Context, rec *payment.Record, hook *payment.Webhook) (*fulfillment.Result, error)
}

// CompletePaymentAction handles "complete": status check, fulfillment and the
// response envelope. Concurrent completions of the same payment inside this
// process share one fulfillment; the followers report it as already delivered.
type CompletePaymentAction struct {
	fulfiller Fulfiller
	audit     *auditlog.Logger
	inflight  singleflight.Group
	now       func() time.Time
}

func New(f Fulfiller, audit *auditlog.Logger) *CompletePaymentAction {
	return &CompletePaymentAction{fulfiller: f, audit: audit, now: time.Now}
}

func (a *CompletePaymentAction) Type() string { return payment.ActionComplete }

func (a *CompletePaymentAction) Execute(ctx context.Context, req *action.Request) (*action.Response, error) {
	rec := req.Record
	a.audit.Info(ctx, auditlog.TagCompletionStarted, map[string]interface{}{
		"payment_id": rec.Identifier,
		"amount":     rec.Amount,
	})

	if !rec.IsCompleted() {
		a.audit.Warn(ctx, auditlog.TagCompletionNotCompleted, map[string]interface{}{
			"payment_id": rec.Identifier,
			"status":     rec.Status,
		})
		return nil, payment.NotCompletedError(rec.Status)
	}

	res, err := a.fulfill(ctx, req)
	if err != nil {
		return nil, err
	}

	now := a.now()
	amount := rec.Amount
	resp := &action.Response{
		Success:        true,
		Message:        "Payment processed successfully",
		PaymentID:      rec.Identifier,
		Amount:         &amount,
		Status:         rec.Status,
		ProductID:      res.ProductID,
		ProductName:    res.ProductName,
		UserID:         res.UserID,
		Timestamp:      &now,
		TransactionID:  payment.NewReference(payment.PrefixTransaction),
		DeliveryStatus: res.Status,
		LicenseKey:     res.LicenseKey,
		ActivationDate: &res.ActivationDate,
		ExpiryDate:     &res.ExpiryDate,
		DeliveryMethod: res.DeliveryMethod,
		Notes:          res.Notes,
	}

	if res.Status == fulfillment.StatusAlreadyDelivered {
		resp.Message = "Payment already processed"
		a.audit.Info(ctx, auditlog.TagCompletionReplayed, auditlog.Fields(resp))
		return resp, nil
	}
	a.audit.Info(ctx, auditlog.TagCompletionSucceeded, auditlog.Fields(resp))
	return resp, nil
}

// fulfill collapses concurrent calls for one payment id. Only the caller whose
// function ran performed the delivery; the others get a replay view of it. The
// shared call is detached from the leader's cancellation, since followers wait on
// its result.
func (a *CompletePaymentAction) fulfill(ctx context.Context, req *action.Request) (*fulfillment.Result, error) {
	shared := context.WithoutCancel(ctx)
	leader := false
	v, err, _ := a.inflight.Do(req.Record.Identifier, func() (interface{}, error) {
		leader = true
		return a.fulfiller.Fulfill(shared, req.Record, req.Webhook)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*fulfillment.Result)
	if !leader {
		res.Status = fulfillment.StatusAlreadyDelivered
	}
	return &res, nil
}
