package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gyaneshwarpardhi/piwebhook/internal/action"
	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/catalog"
	"github.com/gyaneshwarpardhi/piwebhook/internal/history"
	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
	"github.com/gyaneshwarpardhi/piwebhook/internal/middleware"
	"github.com/gyaneshwarpardhi/piwebhook/internal/payment"
)

// ServiceVersion is reported by the health endpoints and on exported traces.
const ServiceVersion = "1.0.0"

const (
	serviceName  = "Pi Payment Webhook"
	maxBodyBytes = 1 << 20
)

// Processor runs a webhook through verification and dispatch.
type Processor interface {
	Process(ctx context.Context, hook *payment.Webhook) (*action.Response, error)
}

// HealthChecker reports whether a backing file accepts writes.
type HealthChecker interface {
	Healthy() bool
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Engine      Processor
	History     *history.Reader
	Catalog     *catalog.Loader
	Audit       *auditlog.Logger
	AuditStore  HealthChecker
	Receipts    HealthChecker
	Environment string
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	Deps
	router chi.Router
}

// New creates an HTTP handler and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{Deps: d, router: chi.NewRouter()}
	r := h.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Origin)
	r.Use(middleware.Logging)
	r.Use(middleware.Recover(d.Audit))

	r.Post("/", h.handleWebhook)
	r.Post("/webhook", h.handleWebhook)
	r.Get("/", h.healthz)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Get("/history", h.paymentHistory)
	r.Get("/logs", h.recentLogs)
	r.Get("/v1/products", h.listProducts)
	r.Post("/v1/products/reload", h.reloadProducts)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return otelhttp.NewHandler(r, "piwebhook")
}

// POST / and POST /webhook: verify the referenced payment and run its action.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var hook payment.Webhook
	if err == nil {
		err = json.Unmarshal(body, &hook)
	}
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("invalid_json").Inc()
		h.Audit.Error(ctx, auditlog.TagInvalidJSON, map[string]interface{}{
			"input": auditlog.Clip(string(body), auditlog.MaxFieldLen),
			"error": auditlog.Clip(err.Error(), auditlog.MaxFieldLen),
		})
		writeError(w, http.StatusBadRequest, "Invalid JSON data")
		return
	}
	if hook.PaymentID == "" {
		metrics.WebhooksReceived.WithLabelValues("missing_payment_id").Inc()
		h.Audit.Error(ctx, auditlog.TagMissingPaymentID, map[string]interface{}{
			"action":    auditlog.Clip(hook.Action, auditlog.MaxFieldLen),
			"user_hint": hook.UserHint(),
		})
		writeError(w, http.StatusBadRequest, "Missing paymentId parameter")
		return
	}

	resp, err := h.Engine.Process(ctx, &hook)
	if err != nil {
		middleware.WriteInternalError(w, r, h.Audit, err, "")
		return
	}
	writeJSON(w, resp.StatusCode, resp)
}

// GET /history?limit=N: completed payments reconstructed from the audit log.
func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", history.DefaultCompletionsLimit)
	payments, err := h.History.RecentCompletions(r.Context(), limit)
	if err != nil {
		middleware.WriteInternalError(w, r, h.Audit, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(payments),
		"payments": payments,
	})
}

// GET /logs?lines=N: raw tail of the audit log for operators.
func (h *Handler) recentLogs(w http.ResponseWriter, r *http.Request) {
	lines := intParam(r, "lines", history.DefaultEntriesLimit)
	logs, err := h.History.RecentEntries(r.Context(), lines)
	if err != nil {
		middleware.WriteInternalError(w, r, h.Audit, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(logs),
		"logs":    logs,
	})
}

// GET /v1/products: list the loaded catalog.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	c := h.Catalog.Catalog()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       c.Version,
		"fallback_name": c.FallbackName,
		"products":      c.Products,
	})
}

// POST /v1/products/reload: re-read the catalog from disk.
func (h *Handler) reloadProducts(w http.ResponseWriter, r *http.Request) {
	c, err := h.Catalog.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":       true,
		"products_count": len(c.Products),
	})
}

type healthReport struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components"`
}

func (h *Handler) health() (healthReport, bool) {
	ok := true
	component := func(c HealthChecker) string {
		if c == nil || c.Healthy() {
			return "operational"
		}
		ok = false
		return "error"
	}
	rep := healthReport{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Service:     serviceName,
		Version:     ServiceVersion,
		Environment: h.Environment,
		Components: map[string]string{
			"api":     "operational",
			"logging": component(h.AuditStore),
			"storage": component(h.Receipts),
		},
	}
	if !ok {
		rep.Status = "degraded"
	}
	return rep, ok
}

// GET / and GET /healthz: liveness, always 200.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	rep, _ := h.health()
	writeJSON(w, http.StatusOK, rep)
}

// GET /readyz: 503 when a log file cannot be written.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.health()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
