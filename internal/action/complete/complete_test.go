package complete_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/action/complete"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/catalog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/fulfillment"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

type fixture struct {
	action      *complete.CompletePaymentAction
	audit       *auditlog.FileStore
	receiptPath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	store := auditlog.NewFileStore(filepath.Join(dir, "audit.log"))
	audit := auditlog.NewLogger(store)
	receiptPath := filepath.Join(dir, "deliveries.log")
	cat, err := catalog.NewLoader("")
	require.NoError(t, err)
	svc := fulfillment.New(cat, fulfillment.NewFileReceiptStore(receiptPath), audit, true)
	return fixture{action: complete.New(svc, audit), audit: store, receiptPath: receiptPath}
}

func (f fixture) tags(t *testing.T) []auditlog.Tag {
	t.Helper()
	var out []auditlog.Tag
	require.NoError(t, f.audit.Scan(context.Background(), func(ev auditlog.Event) bool {
		out = append(out, ev.Message)
		return true
	}))
	return out
}

func (f fixture) receiptLines(t *testing.T) int {
	t.Helper()
	fh, err := os.Open(f.receiptPath)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	defer fh.Close()
	n := 0
	for sc := bufio.NewScanner(fh); sc.Scan(); {
		n++
	}
	return n
}

func request(status string) *action.Request {
	return &action.Request{
		Record: &payment.Record{
			Identifier: "PI123",
			Amount:     decimal.NewFromInt(10),
			Status:     status,
			Metadata:   map[string]string{"productId": "DIGITAL_001"},
		},
		Webhook: &payment.Webhook{PaymentID: "PI123", User: &payment.WebhookUser{UID: "pioneer"}},
	}
}

func TestCompleteDelivers(t *testing.T) {
	f := newFixture(t)
	resp, err := f.action.Execute(context.Background(), request(payment.StatusCompleted))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Payment processed successfully", resp.Message)
	assert.Equal(t, "PI123", resp.PaymentID)
	assert.Equal(t, "DIGITAL_001", resp.ProductID)
	assert.Equal(t, "Digital content pack", resp.ProductName)
	assert.Equal(t, "pioneer", resp.UserID)
	assert.Equal(t, fulfillment.StatusDelivered, resp.DeliveryStatus)
	assert.Regexp(t, `^TXN_[0-9A-F]{32}$`, resp.TransactionID)
	assert.Regexp(t, `^LIC-[0-9A-F]{16}$`, resp.LicenseKey)
	require.NotNil(t, resp.Amount)
	assert.True(t, decimal.NewFromInt(10).Equal(*resp.Amount))

	assert.Equal(t, 1, f.receiptLines(t))
	assert.Equal(t, []auditlog.Tag{
		auditlog.TagCompletionStarted,
		auditlog.TagDeliveryStarted,
		auditlog.TagDeliverySucceeded,
		auditlog.TagCompletionSucceeded,
	}, f.tags(t))
}

func TestCompleteRejectsPending(t *testing.T) {
	f := newFixture(t)
	resp, err := f.action.Execute(context.Background(), request(payment.StatusPending))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, payment.IsKind(err, payment.KindNotCompleted))
	assert.Equal(t, 0, f.receiptLines(t))
	assert.Equal(t, []auditlog.Tag{auditlog.TagCompletionStarted, auditlog.TagCompletionNotCompleted}, f.tags(t))
}

func TestCompleteReplayIsNotRedelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.action.Execute(ctx, request(payment.StatusCompleted))
	require.NoError(t, err)
	second, err := f.action.Execute(ctx, request(payment.StatusCompleted))
	require.NoError(t, err)

	assert.True(t, second.Success)
	assert.Equal(t, "Payment already processed", second.Message)
	assert.Equal(t, fulfillment.StatusAlreadyDelivered, second.DeliveryStatus)
	assert.Equal(t, first.LicenseKey, second.LicenseKey)
	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, 1, f.receiptLines(t))

	succeeded := 0
	for _, tag := range f.tags(t) {
		if tag == auditlog.TagCompletionSucceeded {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "history must list the payment once")
	assert.Contains(t, f.tags(t), auditlog.TagCompletionReplayed)
}

func TestCompleteConcurrentDeliversOnce(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var wg sync.WaitGroup
	results := make([]*action.Response, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.action.Execute(context.Background(), request(payment.StatusCompleted))
			assert.NoError(t, err)
			results[i] = resp
		}(i)
	}
	wg.Wait()

	delivered := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, r.Success)
		if r.DeliveryStatus == fulfillment.StatusDelivered {
			delivered++
		}
	}
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, f.receiptLines(t))
}

func TestCompleteSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := f.action.Execute(ctx, request(payment.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, fulfillment.StatusDelivered, resp.DeliveryStatus)
	assert.Equal(t, 1, f.receiptLines(t))
}

// blockingFulfiller holds the first call open so a second caller joins it.
type blockingFulfiller struct {
	inner   complete.Fulfiller
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFulfiller) Fulfill(ctx context.Context, rec *payment.Record, hook *payment.Webhook) (*fulfillment.Result, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.inner.Fulfill(ctx, rec, hook)
}

func TestCompleteFollowerUnaffectedByLeaderCancel(t *testing.T) {
	dir := t.TempDir()
	store := auditlog.NewFileStore(filepath.Join(dir, "audit.log"))
	audit := auditlog.NewLogger(store)
	cat, err := catalog.NewLoader("")
	require.NoError(t, err)
	bf := &blockingFulfiller{
		inner:   fulfillment.New(cat, fulfillment.NewFileReceiptStore(filepath.Join(dir, "deliveries.log")), audit, true),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	a := complete.New(bf, audit)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := a.Execute(leaderCtx, request(payment.StatusCompleted))
		leaderDone <- err
	}()
	<-bf.entered

	followerDone := make(chan *action.Response, 1)
	go func() {
		resp, err := a.Execute(context.Background(), request(payment.StatusCompleted))
		assert.NoError(t, err)
		followerDone <- resp
	}()

	cancelLeader()
	close(bf.release)

	require.NoError(t, <-leaderDone)
	resp := <-followerDone
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
}
