package refund_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/refund"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

func TestRefundIsSimulated(t *testing.T) {
	store := auditlog.NewFileStore(filepath.Join(t.TempDir(), "audit.log"))
	a := refund.New(auditlog.NewLogger(store))
	assert.Equal(t, payment.ActionRefund, a.Type())

	req := &action.Request{Record: &payment.Record{Identifier: "PI77", Status: payment.StatusCompleted}}
	first, err := a.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.Equal(t, "Refund simulated (testnet only)", first.Message)
	assert.Equal(t, refund.StatusRefunded, first.Status)
	assert.Equal(t, "PI77", first.PaymentID)
	assert.Regexp(t, `^REF_[0-9A-F]{32}$`, first.RefundID)
	assert.NotEqual(t, first.RefundID, second.RefundID)

	var evs []auditlog.Event
	require.NoError(t, store.Scan(context.Background(), func(ev auditlog.Event) bool {
		evs = append(evs, ev)
		return true
	}))
	require.Len(t, evs, 2)
	assert.Equal(t, auditlog.TagRefundSimulated, evs[0].Message)
	assert.Equal(t, true, evs[0].Data["simulated"])
	assert.Equal(t, first.RefundID, evs[0].Data["refund_id"])
}
