/*
handlers.go - HTTP API handlers for the commission service

PURPOSE:
  Exposes the commission engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and the adapters around it.

ENDPOINTS:
  Policy editor:
    GET    /api/policy                  Active policy (default when none saved)
    PUT    /api/policy                  Validate and save a new version
    DELETE /api/policy                  Reset to the default policy
    GET    /api/policy/default          Default policy document

  Uploads:
    POST   /api/uploads                 Upload a sales CSV, returns its report
    GET    /api/uploads                 List uploads, newest first
    GET    /api/uploads/{id}/report     Report under the current policy
    PUT    /api/uploads/{id}/adjustments Save manual adjustments
    GET    /api/uploads/{id}/export.csv Representative-month summary as CSV

  Samples:
    GET    /api/samples                 List sample datasets
    POST   /api/samples/load            Store a sample dataset as an upload

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Policies, uploads and adjustments
  - PolicyFactory: Policy document to commission.Policy conversion
  - Parser: CSV to sale records
  - The last decoded policy document, reused while it is unchanged

REQUEST FLOW (reports):
  1. Load the stored upload
  2. Re-ingest it with the Parser
  3. Run commission.Calculate under the active policy
  4. Overlay stored adjustments
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed files, invalid policies or adjustments
  - 404: Unknown upload
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - samples.go: Sample datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/export"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
	"github.com/warp/commission-engine/ingest"
	"go.uber.org/zap"
)

// MaxUploadBytes caps the size of an uploaded sales file.
const MaxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         generic.Store
	PolicyFactory *factory.PolicyFactory
	Parser        *ingest.Parser

	logger   *zap.Logger
	validate *validator.Validate

	// Served while no policy has been saved through the editor.
	defaultDoc factory.PolicyJSON

	mu     sync.Mutex
	cached cachedPolicy
}

type cachedPolicy struct {
	raw    string
	doc    factory.PolicyJSON
	policy commission.Policy
}

// policyState is the policy a report is computed under.
type policyState struct {
	doc       factory.PolicyJSON
	policy    commission.Policy
	version   int
	isDefault bool
	updatedAt *time.Time
}

// NewHandler creates a new handler with the given store. A nil logger
// disables logging.
func NewHandler(store generic.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		Store:         store,
		PolicyFactory: factory.NewPolicyFactory(),
		Parser:        ingest.NewParser(),
		logger:        logger,
		validate:      v,
		defaultDoc:    factory.DefaultPolicyJSON(),
	}
}

// SetDefaultPolicy replaces the built-in default, typically with the policy
// file named in the configuration.
func (h *Handler) SetDefaultPolicy(policy commission.Policy) {
	h.defaultDoc = h.PolicyFactory.ToJSON(policy)
}

// activePolicy returns the saved policy, or the default when none is saved.
func (h *Handler) activePolicy(ctx context.Context) (policyState, error) {
	rec, err := h.Store.GetPolicy(ctx, generic.ActivePolicyID)
	if errors.Is(err, generic.ErrPolicyNotFound) {
		return policyState{
			doc:       h.defaultDoc,
			policy:    h.PolicyFactory.FromJSON(h.defaultDoc),
			isDefault: true,
		}, nil
	}
	if err != nil {
		return policyState{}, fmt.Errorf("load policy: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached.raw != rec.ConfigJSON {
		var doc factory.PolicyJSON
		if err := json.Unmarshal([]byte(rec.ConfigJSON), &doc); err != nil {
			// Stored documents were validated on save; this is corruption.
			return policyState{}, fmt.Errorf("decode stored policy: %v", err)
		}
		h.cached = cachedPolicy{
			raw:    rec.ConfigJSON,
			doc:    doc,
			policy: h.PolicyFactory.FromJSON(doc),
		}
	}

	updated := rec.UpdatedAt
	return policyState{
		doc:       h.cached.doc,
		policy:    h.cached.policy,
		version:   rec.Version,
		updatedAt: &updated,
	}, nil
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "n/a"}

	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GET /api/policy
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	state, err := h.activePolicy(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(state))
}

// PUT /api/policy
// Body: a policy document (see factory/policy.go)
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var doc factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.fail(w, r, "Invalid policy document", fmt.Errorf("%w: %v", generic.ErrInvalidPolicy, err))
		return
	}
	if err := h.PolicyFactory.Validate(doc); err != nil {
		h.fail(w, r, "Invalid policy document", err)
		return
	}

	// Round-trip through the engine type so missing IDs are filled in.
	canonical := h.PolicyFactory.ToJSON(h.PolicyFactory.FromJSON(doc))
	raw, err := json.Marshal(canonical)
	if err != nil {
		h.fail(w, r, "Failed to encode policy", err)
		return
	}

	err = h.Store.SavePolicy(r.Context(), generic.PolicyRecord{
		ID:         generic.ActivePolicyID,
		Name:       "Active commission policy",
		ConfigJSON: string(raw),
	})
	if err != nil {
		h.fail(w, r, "Failed to save policy", err)
		return
	}

	state, err := h.activePolicy(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load policy", err)
		return
	}
	h.logger.Info("policy saved", zap.Int("version", state.version))
	writeJSON(w, http.StatusOK, toPolicyDTO(state))
}

// DELETE /api/policy
func (h *Handler) ResetPolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePolicy(r.Context(), generic.ActivePolicyID); err != nil {
		h.fail(w, r, "Failed to reset policy", err)
		return
	}
	h.logger.Info("policy reset to default")
	writeJSON(w, http.StatusOK, PolicyDTO{IsDefault: true, Config: h.defaultDoc})
}

// GET /api/policy/default
func (h *Handler) GetDefaultPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PolicyDTO{IsDefault: true, Config: h.defaultDoc})
}

func toPolicyDTO(s policyState) PolicyDTO {
	return PolicyDTO{
		Version:   s.version,
		IsDefault: s.isDefault,
		UpdatedAt: s.updatedAt,
		Config:    s.doc,
	}
}

// =============================================================================
// UPLOAD HANDLERS
// =============================================================================

// GET /api/uploads
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.Store.ListUploads(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list uploads", err)
		return
	}

	result := make([]UploadDTO, 0, len(uploads))
	for _, u := range uploads {
		result = append(result, toUploadDTO(u))
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /api/uploads
// Body: multipart form with a "file" field, or the raw CSV with
// ?filename=... in the query string.
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	filename, content, err := readUploadBody(w, r)
	if err != nil {
		h.fail(w, r, "Failed to read upload", err)
		return
	}

	upload, err := h.storeUpload(r.Context(), filename, content)
	if err != nil {
		h.fail(w, r, "Failed to ingest sales file", err)
		return
	}

	report, state, err := h.computeReport(r.Context(), upload.ID)
	if err != nil {
		h.fail(w, r, "Failed to compute report", err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Upload: toUploadDTO(upload),
		Report: NewReportDTO(upload.ID, state.version, report),
	})
}

func readUploadBody(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("%w: form field \"file\": %v", generic.ErrMalformedInput, err)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", generic.ErrMalformedInput, err)
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", generic.ErrMalformedInput, err)
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.csv"
	}
	return filename, content, nil
}

// storeUpload ingests the file once to reject malformed input, then stores
// the raw bytes.
func (h *Handler) storeUpload(ctx context.Context, filename string, content []byte) (generic.Upload, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		ingestFailures.Inc()
		return generic.Upload{}, fmt.Errorf("%w: empty file", generic.ErrMalformedInput)
	}

	sales, err := h.Parser.Parse(bytes.NewReader(content))
	if err != nil {
		ingestFailures.Inc()
		return generic.Upload{}, err
	}

	upload := generic.Upload{
		ID:          generic.UploadID(uuid.NewString()),
		Filename:    filename,
		Content:     content,
		RecordCount: len(sales),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveUpload(ctx, upload); err != nil {
		return generic.Upload{}, err
	}
	salesIngested.Add(float64(len(sales)))

	h.logger.Info("upload stored",
		zap.String("upload_id", string(upload.ID)),
		zap.String("filename", filename),
		zap.Int("records", len(sales)),
	)
	return upload, nil
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// computeReport rebuilds an upload's report under the active policy and
// overlays its stored adjustments.
func (h *Handler) computeReport(ctx context.Context, id generic.UploadID) (commission.Report, policyState, error) {
	start := time.Now()

	upload, err := h.Store.GetUpload(ctx, id)
	if err != nil {
		return commission.Report{}, policyState{}, err
	}

	sales, err := h.Parser.Parse(bytes.NewReader(upload.Content))
	if err != nil {
		return commission.Report{}, policyState{}, fmt.Errorf("re-ingest upload %s: %w", id, err)
	}

	state, err := h.activePolicy(ctx)
	if err != nil {
		return commission.Report{}, policyState{}, err
	}

	records, err := h.Store.ListAdjustments(ctx, id)
	if err != nil {
		return commission.Report{}, policyState{}, fmt.Errorf("load adjustments: %w", err)
	}
	overlay := make(map[commission.MonthKey]commission.Adjustment, len(records))
	for _, rec := range records {
		key := commission.MonthKey{Representative: rec.Representative, Period: rec.Month}
		overlay[key] = commission.Adjustment{Amount: rec.Amount, Notes: rec.Notes}
	}

	report := commission.ApplyAdjustments(commission.Calculate(sales, state.policy), overlay)

	reportsComputed.Inc()
	reportComputeSeconds.Observe(time.Since(start).Seconds())
	return report, state, nil
}

// GET /api/uploads/{id}/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := generic.UploadID(chi.URLParam(r, "id"))

	report, state, err := h.computeReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to compute report", err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportDTO(id, state.version, report))
}

// PUT /api/uploads/{id}/adjustments
// Body: {"adjustments": [{"representative": "...", "month": "2025-03", "amount": -200000, "notes": "..."}]}
func (h *Handler) SaveAdjustments(w http.ResponseWriter, r *http.Request) {
	id := generic.UploadID(chi.URLParam(r, "id"))

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, "Invalid request body", fmt.Errorf("%w: %v", generic.ErrInvalidAdjustment, err))
		return
	}

	records, err := h.adjustmentRecords(id, req)
	if err != nil {
		h.fail(w, r, "Invalid adjustments", err)
		return
	}

	if err := h.Store.SaveAdjustments(r.Context(), records); err != nil {
		h.fail(w, r, "Failed to save adjustments", err)
		return
	}
	adjustmentsSaved.Add(float64(len(records)))
	h.logger.Info("adjustments saved",
		zap.String("upload_id", string(id)),
		zap.Int("count", len(records)),
	)

	report, state, err := h.computeReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to compute report", err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportDTO(id, state.version, report))
}

// adjustmentRecords validates a request and converts it to store records.
func (h *Handler) adjustmentRecords(id generic.UploadID, req AdjustmentRequest) ([]generic.AdjustmentRecord, error) {
	verr := &generic.ValidationError{Kind: generic.ErrInvalidAdjustment}

	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("%w: %v", generic.ErrInvalidAdjustment, err)
		}
		for _, fe := range fieldErrs {
			verr.Fields = append(verr.Fields, generic.FieldError{
				Field:   strings.TrimPrefix(fe.Namespace(), "AdjustmentRequest."),
				Message: describeTag(fe),
			})
		}
		return nil, verr
	}

	records := make([]generic.AdjustmentRecord, 0, len(req.Adjustments))
	for i, item := range req.Adjustments {
		month, err := generic.ParseYearMonth(item.Month)
		if err != nil {
			verr.Fields = append(verr.Fields, generic.FieldError{
				Field:   fmt.Sprintf("adjustments[%d].month", i),
				Message: "must be a YYYY-MM month",
			})
			continue
		}
		records = append(records, generic.AdjustmentRecord{
			UploadID:       id,
			Representative: strings.TrimSpace(item.Representative),
			Month:          month,
			Amount:         decimal.NewFromFloat(item.Amount),
			Notes:          item.Notes,
		})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return records, nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be a YYYY-MM month"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// GET /api/uploads/{id}/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id := generic.UploadID(chi.URLParam(r, "id"))

	report, _, err := h.computeReport(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to compute report", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, report.ByRep); err != nil {
		h.fail(w, r, "Failed to export report", err)
		return
	}

	filename := fmt.Sprintf("Bao_cao_hoa_hong_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}

	var verr *generic.ValidationError
	if errors.As(err, &verr) {
		resp := ErrorResponse{Error: message, Details: err.Error()}
		for _, f := range verr.Fields {
			resp.Fields = append(resp.Fields, FieldErrorDTO{Field: f.Field, Message: f.Message})
		}
		writeJSON(w, status, resp)
		return
	}
	writeError(w, status, message, err)
}
