// Package handler exposes the custody service over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"chainguard/internal/custody/models"
	"chainguard/internal/platform/metrics"
	"chainguard/internal/platform/middleware"
	id "chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	"chainguard/pkg/platform/httputil"
	"chainguard/pkg/platform/middleware/requesttime"
)

// Service is the custody surface the handler drives.
type Service interface {
	CreateEvidence(ctx context.Context, req *models.CreateEvidenceRequest) (*models.EvidenceView, error)
	CheckOutEvidence(ctx context.Context, req *models.CheckOutRequest) (*models.EvidenceView, error)
	TransferEvidence(ctx context.Context, req *models.TransferRequest) (*models.EvidenceView, error)
	CheckInEvidence(ctx context.Context, req *models.CheckInRequest) (*models.EvidenceView, error)
	RemoveEvidence(ctx context.Context, req *models.RemoveRequest) (*models.EvidenceView, error)
	GetEvidence(ctx context.Context, evidenceID string) (*models.EvidenceView, error)
	ListByCaseFingerprint(ctx context.Context, fingerprint string) ([]id.EvidenceID, error)
	ListByStatus(ctx context.Context, status string) ([]id.EvidenceID, error)
	ListByCustodian(ctx context.Context, custodian string) ([]id.EvidenceID, error)
	History(ctx context.Context, evidenceID string) ([]models.AuditEntry, error)
	VerifyCaseLink(ctx context.Context, evidenceID string) (*models.CaseLinkResult, error)
}

// Handler handles custody HTTP endpoints.
type Handler struct {
	custody        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tokenValidator middleware.TokenValidator
	requestTimeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithRequestTimeout bounds each custody request.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a custody handler. metrics may be nil.
func New(custody Service, tokenValidator middleware.TokenValidator, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		custody:        custody,
		logger:         logger,
		metrics:        m,
		tokenValidator: tokenValidator,
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListResponse is returned by the index queries.
type ListResponse struct {
	EvidenceIDs []id.EvidenceID `json:"evidenceIds"`
}

// HistoryResponse is the audit trail of one item, oldest first.
type HistoryResponse struct {
	EvidenceID string              `json:"evidenceId"`
	Entries    []models.AuditEntry `json:"entries"`
}

// Register registers the custody routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	custodyRouter := chi.NewRouter()
	custodyRouter.Use(middleware.Recovery(h.logger))
	custodyRouter.Use(middleware.RequestID)
	custodyRouter.Use(requesttime.Middleware)
	custodyRouter.Use(middleware.Logger(h.logger))
	custodyRouter.Use(middleware.Timeout(h.requestTimeout))
	custodyRouter.Use(middleware.ContentTypeJSON)
	custodyRouter.Use(middleware.LatencyMiddleware(h.metrics))
	custodyRouter.Use(middleware.RequireAuth(h.tokenValidator, h.logger))
	custodyRouter.Use(middleware.CaseKey)

	custodyRouter.Post("/evidence", h.handleCreate)
	custodyRouter.Get("/evidence", h.handleList)
	custodyRouter.Get("/evidence/{id}", h.handleGet)
	custodyRouter.Get("/evidence/{id}/history", h.handleHistory)
	custodyRouter.Post("/evidence/{id}/checkout", h.handleCheckOut)
	custodyRouter.Post("/evidence/{id}/transfer", h.handleTransfer)
	custodyRouter.Post("/evidence/{id}/checkin", h.handleCheckIn)
	custodyRouter.Post("/evidence/{id}/remove", h.handleRemove)
	custodyRouter.Post("/evidence/{id}/verify-case-link", h.handleVerifyCaseLink)

	r.Mount("/", custodyRouter)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[models.CreateEvidenceRequest](r)
	if err != nil {
		h.writeError(w, r, "invalid create evidence request", err)
		return
	}
	view, err := h.custody.CreateEvidence(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, "failed to create evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition[models.CheckOutRequest](h, w, r)
	if !ok {
		return
	}
	req.EvidenceID = evidenceParam(r)
	h.respondView(w, r, "failed to check out evidence")(h.custody.CheckOutEvidence(r.Context(), &req))
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition[models.TransferRequest](h, w, r)
	if !ok {
		return
	}
	req.EvidenceID = evidenceParam(r)
	h.respondView(w, r, "failed to transfer evidence")(h.custody.TransferEvidence(r.Context(), &req))
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition[models.CheckInRequest](h, w, r)
	if !ok {
		return
	}
	req.EvidenceID = evidenceParam(r)
	h.respondView(w, r, "failed to check in evidence")(h.custody.CheckInEvidence(r.Context(), &req))
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransition[models.RemoveRequest](h, w, r)
	if !ok {
		return
	}
	req.EvidenceID = evidenceParam(r)
	h.respondView(w, r, "failed to remove evidence")(h.custody.RemoveEvidence(r.Context(), &req))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, "failed to get evidence")(h.custody.GetEvidence(r.Context(), evidenceParam(r)))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	evidenceID := evidenceParam(r)
	entries, err := h.custody.History(r.Context(), evidenceID)
	if err != nil {
		h.writeError(w, r, "failed to read evidence history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{EvidenceID: evidenceID, Entries: entries})
}

func (h *Handler) handleVerifyCaseLink(w http.ResponseWriter, r *http.Request) {
	result, err := h.custody.VerifyCaseLink(r.Context(), evidenceParam(r))
	if err != nil {
		h.writeError(w, r, "failed to verify case link", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleList serves exactly one of the status, custodian or caseFingerprint filters.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filters int
		list    func(context.Context, string) ([]id.EvidenceID, error)
		value   string
	)
	for _, f := range []struct {
		name string
		fn   func(context.Context, string) ([]id.EvidenceID, error)
	}{
		{"status", h.custody.ListByStatus},
		{"custodian", h.custody.ListByCustodian},
		{"caseFingerprint", h.custody.ListByCaseFingerprint},
	} {
		if q.Has(f.name) {
			filters++
			list, value = f.fn, q.Get(f.name)
		}
	}
	if filters != 1 {
		h.writeError(w, r, "invalid evidence query",
			dErrors.New(dErrors.CodeBadRequest, "exactly one of status, custodian or caseFingerprint is required"))
		return
	}

	ids, err := list(r.Context(), value)
	if err != nil {
		h.writeError(w, r, "failed to list evidence", err)
		return
	}
	if ids == nil {
		ids = []id.EvidenceID{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{EvidenceIDs: ids})
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, failure string) func(*models.EvidenceView, error) {
	return func(view *models.EvidenceView, err error) {
		if err != nil {
			h.writeError(w, r, failure, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view)
	}
}

// writeError logs at a level matching the failure class and writes the mapped
// response. Internal errors were already logged with detail by the service.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"code", string(code),
		"error", err.Error(),
	}
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// decodeTransition decodes an optional JSON body; lifecycle calls other than
// create may be sent without one.
func decodeTransition[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var zero T
	if r.ContentLength == 0 {
		return zero, true
	}
	req, err := httputil.DecodeJSON[T](r)
	if err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, "invalid evidence request", err)
		return zero, false
	}
	return req, true
}

// evidenceParam returns the {id} segment decoded exactly once. chi matches
// against r.URL.RawPath when it is set (the path held an escaped "/" or a
// non-canonical escape) and against the decoded r.URL.Path otherwise.
func evidenceParam(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return raw
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}
