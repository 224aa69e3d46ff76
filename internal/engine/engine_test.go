package engine_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/refund"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/verify"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/engine"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

type fakeVerifier struct {
	rec   *payment.Record
	err   error
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context, id string) (*payment.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.rec
	rec.Identifier = id
	return &rec, nil
}

func newEngine(t *testing.T, v *fakeVerifier) (*engine.Engine, *auditlog.FileStore) {
	t.Helper()
	store := auditlog.NewFileStore(filepath.Join(t.TempDir(), "audit.log"))
	audit := auditlog.NewLogger(store)
	reg := action.NewRegistry()
	reg.Register(verify.New(audit))
	reg.Register(refund.New(audit))
	return engine.New(v, action.NewDispatcher(reg, audit), audit), store
}

func TestProcessVerificationFailure(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		details string
	}{
		{"remote status", payment.RemoteStatusError(404, "{}"), "API returned HTTP 404"},
		{"network", payment.NetworkError(errors.New("context deadline exceeded")), "Network error: context deadline exceeded"},
		{"malformed", payment.MalformedResponseError("<html>", errors.New("bad")), "Invalid response data"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newEngine(t, &fakeVerifier{err: tc.err})
			resp, err := e.Process(context.Background(), &payment.Webhook{PaymentID: "PI404", Action: payment.ActionVerify})
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, resp.Success)
			assert.Equal(t, "Payment validation failed", resp.Error)
			assert.Equal(t, tc.details, resp.Details)
		})
	}
}

func TestProcessInternalVerifierFault(t *testing.T) {
	e, _ := newEngine(t, &fakeVerifier{err: payment.InternalError("bug", nil)})
	resp, err := e.Process(context.Background(), &payment.Webhook{PaymentID: "PI1"})
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestProcessDispatchesVerifiedRecord(t *testing.T) {
	v := &fakeVerifier{rec: &payment.Record{Amount: decimal.NewFromInt(4), Status: payment.StatusCompleted}}
	e, store := newEngine(t, v)

	resp, err := e.Process(context.Background(), &payment.Webhook{PaymentID: "PI55", Action: payment.ActionVerify})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Verified)
	assert.Equal(t, "PI55", resp.PaymentID)
	assert.Equal(t, 1, v.calls)

	var tags []auditlog.Tag
	require.NoError(t, store.Scan(context.Background(), func(ev auditlog.Event) bool {
		tags = append(tags, ev.Message)
		return true
	}))
	assert.Equal(t, []auditlog.Tag{auditlog.TagWebhookReceived, auditlog.TagPaymentVerified}, tags)
}

func TestProcessUnknownAction(t *testing.T) {
	v := &fakeVerifier{rec: &payment.Record{Status: payment.StatusCompleted}}
	e, _ := newEngine(t, v)

	resp, err := e.Process(context.Background(), &payment.Webhook{PaymentID: "PI1", Action: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unknown action", resp.Error)
	assert.Equal(t, 1, v.calls, "verification still happens before dispatch")
}
