package verify_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/verify"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

func TestVerifyReportsRecord(t *testing.T) {
	store := auditlog.NewFileStore(filepath.Join(t.TempDir(), "audit.log"))
	a := verify.New(auditlog.NewLogger(store))
	assert.Equal(t, payment.ActionVerify, a.Type())

	// Verification is read-only, so an unsettled payment still verifies.
	resp, err := a.Execute(context.Background(), &action.Request{
		Record: &payment.Record{Identifier: "PI9", Amount: decimal.RequireFromString("2.5"), Status: payment.StatusPending},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Verified)
	assert.Equal(t, "Payment verified", resp.Message)
	assert.Equal(t, "PI9", resp.PaymentID)
	assert.Equal(t, payment.StatusPending, resp.Status)
	assert.Empty(t, resp.LicenseKey)

	var evs []auditlog.Event
	require.NoError(t, store.Scan(context.Background(), func(ev auditlog.Event) bool {
		evs = append(evs, ev)
		return true
	}))
	require.Len(t, evs, 1)
	assert.Equal(t, auditlog.TagPaymentVerified, evs[0].Message)
	assert.Equal(t, 2.5, evs[0].Data["amount"])
}
