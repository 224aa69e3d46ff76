package action

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// Dispatcher routes a verified payment to the executor for the requested action
// and decides the response status for every branch in one place.
type Dispatcher struct {
	registry *Registry
	audit    *auditlog.Logger
}

// NewDispatcher creates a Dispatcher over reg.
func NewDispatcher(reg *Registry, audit *auditlog.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, audit: audit}
}

// Dispatch runs action against rec. An empty action means complete. The returned
// error is non-nil only for internal faults; every domain outcome, including an
// unknown action, is a Response with StatusCode 200 on success and 400 otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, rec *payment.Record, hook *payment.Webhook) (*Response, error) {
	if action == "" {
		action = payment.ActionComplete
	}

	resp, err := d.run(ctx, action, rec, hook)
	if err != nil {
		if payment.KindOf(err) == payment.KindInternal {
			metrics.ActionsDispatched.WithLabelValues(d.label(action), "internal_error").Inc()
			return nil, err
		}
		slog.InfoContext(ctx, "action failed", "action", action, "payment_id", rec.Identifier, "err", err)
		resp = Failure(err)
	}

	if resp.Success {
		resp.StatusCode = http.StatusOK
	} else {
		resp.StatusCode = http.StatusBadRequest
	}
	metrics.ActionsDispatched.WithLabelValues(d.label(action), http.StatusText(resp.StatusCode)).Inc()
	return resp, nil
}

func (d *Dispatcher) run(ctx context.Context, action string, rec *payment.Record, hook *payment.Webhook) (*Response, error) {
	exec, err := d.registry.Get(action)
	if err != nil {
		d.audit.Warn(ctx, auditlog.TagUnknownAction, map[string]interface{}{
			"payment_id": rec.Identifier,
			"action":     auditlog.Clip(action, auditlog.MaxFieldLen),
		})
		return nil, payment.UnknownActionError(action)
	}
	return exec.Execute(ctx, &Request{Record: rec, Webhook: hook})
}

// label bounds metric cardinality to the registered vocabulary.
func (d *Dispatcher) label(action string) string {
	if _, err := d.registry.Get(action); err != nil {
		return "unknown"
	}
	return action
}
