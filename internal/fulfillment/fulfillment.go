// Package fulfillment grants the purchased product once a payment is confirmed
// completed, and writes the delivery receipt.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/catalog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// Delivery status values.
const (
	StatusDelivered        = "delivered"
	StatusAlreadyDelivered = "already_delivered"
)

// DeliveryMethod tags how the product reached the user.
const DeliveryMethod = "instant_digital"

// sandboxNotes is attached to every delivery made against the issuer sandbox.
const sandboxNotes = "This is a testnet delivery. No actual product is delivered."

// Result is the outcome of one fulfillment.
type Result struct {
	Success        bool      `json:"success"`
	Status         string    `json:"status"`
	ProductID      string    `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UserID         string    `json:"user_id"`
	LicenseKey     string    `json:"license_key"`
	ActivationDate time.Time `json:"activation_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	DeliveryMethod string    `json:"delivery_method"`
	Notes          string    `json:"notes,omitempty"`
}

// CatalogSource yields the current product catalog.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

// Service performs deliveries.
type Service struct {
	catalog  CatalogSource
	receipts ReceiptStore
	audit    *auditlog.Logger
	sandbox  bool
	now      func() time.Time
}

// New creates a Service. sandbox marks deliveries as non-production in their notes.
func New(cat CatalogSource, receipts ReceiptStore, audit *auditlog.Logger, sandbox bool) *Service {
	return &Service{
		catalog:  cat,
		receipts: receipts,
		audit:    audit,
		sandbox:  sandbox,
		now:      time.Now,
	}
}

// Expiry returns the end of the entitlement that starts at activation.
func Expiry(activation time.Time) time.Time {
	return activation.AddDate(1, 0, 0)
}

// Fulfill delivers the product referenced by rec. The record must come from the
// verifier; hook only contributes a fallback user reference.
//
// A payment that already has a receipt is not delivered again: the existing
// receipt is returned with status already_delivered and nothing is appended.
func (s *Service) Fulfill(ctx context.Context, rec *payment.Record, hook *payment.Webhook) (*Result, error) {
	if !rec.IsCompleted() {
		return nil, payment.NotCompletedError(rec.Status)
	}

	ctx, span := otel.Tracer("piwebhook/fulfillment").Start(ctx, "fulfill payment")
	defer span.End()

	productID := rec.ProductID()
	userID := payment.ResolveUser(rec, hook)
	productName := s.catalog.Catalog().Name(productID)
	span.SetAttributes(
		attribute.String("payment.id", rec.Identifier),
		attribute.String("product.id", productID),
	)

	prior, err := s.receipts.Find(ctx, rec.Identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, payment.InternalError("receipt lookup failed", err)
	}
	if prior != nil {
		metrics.Deliveries.WithLabelValues(s.productLabel(productID), "duplicate").Inc()
		s.audit.Warn(ctx, auditlog.TagDeliveryDuplicate, map[string]interface{}{
			"payment_id":  rec.Identifier,
			"product_id":  prior.ProductID,
			"license_key": prior.LicenseKey,
			"first_at":    prior.Timestamp,
		})
		return &Result{
			Success:        true,
			Status:         StatusAlreadyDelivered,
			ProductID:      prior.ProductID,
			ProductName:    s.catalog.Catalog().Name(prior.ProductID),
			UserID:         prior.UserID,
			LicenseKey:     prior.LicenseKey,
			ActivationDate: prior.Timestamp,
			ExpiryDate:     Expiry(prior.Timestamp),
			DeliveryMethod: DeliveryMethod,
			Notes:          s.notes(),
		}, nil
	}

	s.audit.Info(ctx, auditlog.TagDeliveryStarted, map[string]interface{}{
		"payment_id": rec.Identifier,
		"product_id": productID,
		"user_id":    userID,
	})

	now := s.now()
	res := &Result{
		Success:        true,
		Status:         StatusDelivered,
		ProductID:      productID,
		ProductName:    productName,
		UserID:         userID,
		LicenseKey:     LicenseKey(userID, productID, now),
		ActivationDate: now,
		ExpiryDate:     Expiry(now),
		DeliveryMethod: DeliveryMethod,
		Notes:          s.notes(),
	}

	err = s.receipts.Append(ctx, Receipt{
		Timestamp:  now,
		ProductID:  productID,
		UserID:     userID,
		PaymentID:  rec.Identifier,
		LicenseKey: res.LicenseKey,
		Amount:     rec.Amount,
	})
	if err != nil {
		metrics.Deliveries.WithLabelValues(s.productLabel(productID), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.audit.Error(ctx, auditlog.TagDeliveryFailed, map[string]interface{}{
			"payment_id": rec.Identifier,
			"product_id": productID,
			"error":      err.Error(),
		})
		return nil, payment.InternalError("delivery receipt could not be written", fmt.Errorf("append receipt: %w", err))
	}

	metrics.Deliveries.WithLabelValues(s.productLabel(productID), "delivered").Inc()
	data := auditlog.Fields(res)
	data["payment_id"] = rec.Identifier
	s.audit.Info(ctx, auditlog.TagDeliverySucceeded, data)
	return res, nil
}

// productLabel keeps metric cardinality bounded by the catalog; product ids come
// from issuer metadata the payer can influence.
func (s *Service) productLabel(id string) string {
	if s.catalog.Catalog().Known(id) {
		return id
	}
	return "other"
}

func (s *Service) notes() string {
	if s.sandbox {
		return sandboxNotes
	}
	return ""
}
