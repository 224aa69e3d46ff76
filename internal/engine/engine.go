package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
	"github.com/gyaneshwarpardhi/piwebhook/internal/verifier"
)

// Engine runs one webhook through verification and dispatch. It holds no state
// between requests; the audit log is the only shared resource.
type Engine struct {
	verifier   verifier.Verifier
	dispatcher *action.Dispatcher
	audit      *auditlog.Logger
}

// New creates an Engine.
func New(v verifier.Verifier, d *action.Dispatcher, audit *auditlog.Logger) *Engine {
	return &Engine{verifier: v, dispatcher: d, audit: audit}
}

// Process verifies hook.PaymentID against the issuer and dispatches the requested
// action on the verified record. Verification failures become a 400 response with
// the failure detail. The error is non-nil only for internal faults.
func (e *Engine) Process(ctx context.Context, hook *payment.Webhook) (*action.Response, error) {
	start := time.Now()
	defer func() {
		metrics.WebhookProcessingDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	e.audit.Info(ctx, auditlog.TagWebhookReceived, map[string]interface{}{
		"payment_id": auditlog.Clip(hook.PaymentID, auditlog.MaxFieldLen),
		"action":     auditlog.Clip(hook.ActionOrDefault(), auditlog.MaxFieldLen),
		"user_hint":  hook.UserHint(),
	})

	rec, err := e.verifier.Verify(ctx, hook.PaymentID)
	if err != nil {
		if payment.KindOf(err) == payment.KindInternal {
			metrics.WebhooksReceived.WithLabelValues("internal_error").Inc()
			return nil, err
		}
		metrics.WebhooksReceived.WithLabelValues("verification_failed").Inc()
		resp := &action.Response{
			StatusCode: http.StatusBadRequest,
			Success:    false,
			Error:      "Payment validation failed",
			Details:    verificationDetail(err),
		}
		return resp, nil
	}

	resp, err := e.dispatcher.Dispatch(ctx, hook.ActionOrDefault(), rec, hook)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("internal_error").Inc()
		return nil, err
	}
	if resp.Success {
		metrics.WebhooksReceived.WithLabelValues("success").Inc()
	} else {
		metrics.WebhooksReceived.WithLabelValues("rejected").Inc()
	}
	return resp, nil
}

func verificationDetail(err error) string {
	var pe *payment.Error
	if !errors.As(err, &pe) {
		return ""
	}
	if pe.Kind == payment.KindNetwork {
		return pe.Message + ": " + pe.Detail
	}
	return pe.Detail
}
