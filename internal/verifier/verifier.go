// Package verifier re-queries the issuer's payments API so that no payment state
// is ever taken from a webhook body.
package verifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/config"
	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// maxBodyBytes bounds how much of an issuer response is read.
const maxBodyBytes = 1 << 20

// Verifier fetches the authoritative state of a payment.
type Verifier interface {
	Verify(ctx context.Context, paymentID string) (*payment.Record, error)
}

// Client is the HTTP implementation of Verifier.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	audit   *auditlog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is overwritten
// with the configured verification timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client from the issuer configuration.
func New(conf config.IssuerConf, audit *auditlog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(conf.IssuerBaseURL(), "/"),
		apiKey:  conf.APIKey,
		timeout: conf.Timeout,
		audit:   audit,
		http: &http.Client{
			// The default transport verifies the server certificate chain and host name.
			Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()),
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultIssuerTimeout
	}
	c.http.Timeout = c.timeout
	return c
}

// Verify performs exactly one GET against the issuer and writes exactly one audit
// event describing the outcome. Failures are *payment.Error values of kind
// network, remote_status or malformed_response. There are no retries.
func (c *Client) Verify(ctx context.Context, paymentID string) (*payment.Record, error) {
	ctx, span := otel.Tracer("piwebhook/verifier").Start(ctx, "verify payment",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("payment.id", paymentID)),
	)
	defer span.End()

	start := time.Now()
	rec, err := c.fetch(ctx, paymentID)
	metrics.VerificationDuration.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.recordFailure(ctx, paymentID, err)
		return nil, err
	}

	metrics.Verifications.WithLabelValues("success").Inc()
	c.audit.Info(ctx, auditlog.TagVerificationSucceeded, map[string]interface{}{
		"payment_id": auditlog.Clip(rec.Identifier, auditlog.MaxFieldLen),
		"amount":     rec.Amount,
		"status":     rec.Status,
	})
	return rec, nil
}

func (c *Client) fetch(ctx context.Context, paymentID string) (*payment.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, payment.NetworkError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, payment.NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, payment.NetworkError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, payment.RemoteStatusError(resp.StatusCode, string(body))
	}
	rec, err := payment.ParseRecord(body)
	if err != nil {
		return nil, payment.MalformedResponseError(string(body), err)
	}
	return rec, nil
}

func (c *Client) recordFailure(ctx context.Context, paymentID string, err error) {
	pe, ok := err.(*payment.Error)
	if !ok {
		pe = payment.NetworkError(err)
	}
	metrics.Verifications.WithLabelValues(string(pe.Kind)).Inc()

	paymentID = auditlog.Clip(paymentID, auditlog.MaxFieldLen)
	switch pe.Kind {
	case payment.KindRemoteStatus:
		c.audit.Error(ctx, auditlog.TagVerificationStatus, map[string]interface{}{
			"payment_id": paymentID,
			"http_code":  pe.StatusCode,
			"response":   auditlog.Clip(pe.Body, auditlog.MaxFieldLen),
		})
	case payment.KindMalformedResponse:
		c.audit.Error(ctx, auditlog.TagVerificationMalformed, map[string]interface{}{
			"payment_id": paymentID,
			"response":   auditlog.Clip(pe.Body, auditlog.MaxFieldLen),
		})
	default:
		c.audit.Error(ctx, auditlog.TagVerificationNetwork, map[string]interface{}{
			"payment_id": paymentID,
			"error":      auditlog.Clip(pe.Detail, auditlog.MaxFieldLen),
		})
	}
}
