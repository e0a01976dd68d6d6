/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Upload ingestion (raw body, multipart, malformed files)
- Report recomputation and the adjustment overlay
- Policy editor (save, version, reset, validation)
- CSV export, sample datasets, health
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic/store"
	"github.com/warp/commission-engine/store/sqlite"
)

const salesHeader = "Sản phẩm,SKU,Tên khách hàng,Số HĐ,Ngày,Số lượng,Đơn giá,Tổng,Ngày thanh toán,Nhân viên bán hàng\n"

// One standard 70M sale, paid within the month: 700,000 at the 1% tier plus
// a 500,000 new-customer bonus under the default policy.
const singleSaleCSV = salesHeader +
	`Máy siêu âm,SA-1,Phòng khám An Khang,HD1,03/03/2025,1,"70.000.000","70.000.000",05/03/2025,An` + "\n" +
	`,,,,,1,,"70.000.000",,` + "\n"

func newTestRouter(t *testing.T) (*chi.Mux, *Handler) {
	t.Helper()
	h := NewHandler(store.NewMemory(), nil)
	return NewRouter(h, RouterOptions{}), h
}

func do(t *testing.T, router http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return do(t, router, method, path, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func uploadSingleSale(t *testing.T, router http.Handler) UploadResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/uploads?filename=march.csv", []byte(singleSaleCSV), "text/csv")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[UploadResponse](t, rec)
}

// =============================================================================
// UPLOADS AND REPORTS
// =============================================================================

func TestCreateUpload_RawBody(t *testing.T) {
	// GIVEN: A server with no saved policy
	router, _ := newTestRouter(t)

	// WHEN: A one-sale export is posted as the request body
	resp := uploadSingleSale(t, router)

	// THEN: The upload is stored and its report uses the default policy
	assert.NotEmpty(t, resp.Upload.ID)
	assert.Equal(t, "march.csv", resp.Upload.Filename)
	assert.Equal(t, 1, resp.Upload.RecordCount)

	assert.Equal(t, 0, resp.Report.PolicyVersion)
	assert.Equal(t, 1200000.0, resp.Report.Summary.TotalCommission)
	assert.Equal(t, 70000000.0, resp.Report.Summary.TotalRevenue)
	require.Len(t, resp.Report.ByRep, 1)

	bucket := resp.Report.ByRep[0]
	assert.Equal(t, "An", bucket.Representative)
	assert.Equal(t, "2025-03", bucket.Month)
	assert.Equal(t, 0.01, bucket.CommissionRate)
	assert.Equal(t, 700000.0, bucket.BaseCommission)
	assert.Equal(t, 500000.0, bucket.NewCustomerBonus)
	require.Len(t, bucket.Sales, 1)
	assert.Equal(t, "standard", bucket.Sales[0].Category)
	require.NotNil(t, bucket.Sales[0].PaymentDate)
	assert.Equal(t, "2025-03-05", *bucket.Sales[0].PaymentDate)
}

func TestCreateUpload_Multipart(t *testing.T) {
	router, _ := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "ban-hang-thang-3.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(singleSaleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, router, http.MethodPost, "/api/uploads", body.Bytes(), mw.FormDataContentType())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, "ban-hang-thang-3.csv", resp.Upload.Filename)
	assert.Equal(t, 1200000.0, resp.Report.Summary.TotalCommission)
}

func TestCreateUpload_RejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing columns", "Sản phẩm,SKU\nMáy,SA-1\n,\n"},
		{"bad date", salesHeader + `Máy,SA-1,KH,HD1,2025-03-03,1,"1","1",,An` + "\n,,,,,,,,,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			rec := do(t, router, http.MethodPost, "/api/uploads", []byte(tt.body), "text/csv")

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			errResp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, errResp.Details)

			// Nothing was stored
			list := do(t, router, http.MethodGet, "/api/uploads", nil, "")
			assert.Empty(t, decode[[]UploadDTO](t, list))
		})
	}
}

func TestListUploads(t *testing.T) {
	router, _ := newTestRouter(t)
	first := uploadSingleSale(t, router)

	rec := do(t, router, http.MethodGet, "/api/uploads", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	uploads := decode[[]UploadDTO](t, rec)
	require.Len(t, uploads, 1)
	assert.Equal(t, first.Upload.ID, uploads[0].ID)
	assert.Equal(t, 1, uploads[0].RecordCount)
}

func TestGetReport_UnknownUpload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/uploads/does-not-exist/report", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestSaveAdjustments_OverlaysReport(t *testing.T) {
	// GIVEN: An uploaded file
	router, _ := newTestRouter(t)
	up := uploadSingleSale(t, router)
	path := "/api/uploads/" + up.Upload.ID

	// WHEN: A reviewer deducts 200,000 from An's March commission
	rec := doJSON(t, router, http.MethodPut, path+"/adjustments", AdjustmentRequest{
		Adjustments: []AdjustmentItem{
			{Representative: "An", Month: "2025-03", Amount: -200000, Notes: "trả hàng HD1"},
		},
	})

	// THEN: The returned report carries the adjustment
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[ReportDTO](t, rec)
	require.Len(t, report.ByRep, 1)
	assert.Equal(t, -200000.0, report.ByRep[0].Adjustment)
	assert.Equal(t, "trả hàng HD1", report.ByRep[0].Notes)
	assert.Equal(t, 1000000.0, report.ByRep[0].FinalCommission)
	assert.Equal(t, 1000000.0, report.Summary.TotalCommission)

	// AND: It is applied again on the next read
	again := decode[ReportDTO](t, do(t, router, http.MethodGet, path+"/report", nil, ""))
	assert.Equal(t, 1000000.0, again.ByRep[0].FinalCommission)
}

func TestSaveAdjustments_Validation(t *testing.T) {
	tests := []struct {
		name      string
		items     []AdjustmentItem
		wantField string
	}{
		{"no items", []AdjustmentItem{}, "adjustments"},
		{"missing representative", []AdjustmentItem{{Month: "2025-03", Amount: 1}}, "adjustments[0].representative"},
		{"month name", []AdjustmentItem{{Representative: "An", Month: "March", Amount: 1}}, "adjustments[0].month"},
		{"month out of range", []AdjustmentItem{{Representative: "An", Month: "2025-13", Amount: 1}}, "adjustments[0].month"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)
			up := uploadSingleSale(t, router)

			rec := doJSON(t, router, http.MethodPut, "/api/uploads/"+up.Upload.ID+"/adjustments",
				AdjustmentRequest{Adjustments: tt.items})

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			errResp := decode[ErrorResponse](t, rec)
			require.NotEmpty(t, errResp.Fields)
			assert.Equal(t, tt.wantField, errResp.Fields[0].Field)
		})
	}
}

func TestSaveAdjustments_UnknownUpload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/uploads/nope/adjustments", AdjustmentRequest{
		Adjustments: []AdjustmentItem{{Representative: "An", Month: "2025-03", Amount: 1}},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// POLICY EDITOR
// =============================================================================

func TestPolicy_DefaultUntilSaved(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/policy", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[PolicyDTO](t, rec)
	assert.True(t, p.IsDefault)
	assert.Equal(t, 0, p.Version)
	assert.Equal(t, factory.DefaultPolicyJSON(), p.Config)
}

func TestPolicy_SaveRecomputesReports(t *testing.T) {
	// GIVEN: A stored upload computed under the default policy
	router, _ := newTestRouter(t)
	up := uploadSingleSale(t, router)
	require.Equal(t, 1200000.0, up.Report.Summary.TotalCommission)

	// WHEN: The policy is replaced by a flat 2% tier
	doc := factory.DefaultPolicyJSON()
	doc.RevenueTiers = []factory.TierJSON{{Threshold: 0, Rate: 0.02}}
	rec := doJSON(t, router, http.MethodPut, "/api/policy", doc)

	// THEN: A new version is saved with generated tier IDs
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[PolicyDTO](t, rec)
	assert.False(t, saved.IsDefault)
	assert.Equal(t, 1, saved.Version)
	require.Len(t, saved.Config.RevenueTiers, 1)
	assert.Equal(t, "tier-1", saved.Config.RevenueTiers[0].ID)

	// AND: The same upload now reports under the new policy
	report := decode[ReportDTO](t, do(t, router, http.MethodGet, "/api/uploads/"+up.Upload.ID+"/report", nil, ""))
	assert.Equal(t, 1, report.PolicyVersion)
	assert.Equal(t, 1900000.0, report.Summary.TotalCommission)

	// WHEN: Saved again, the version is bumped
	rec = doJSON(t, router, http.MethodPut, "/api/policy", doc)
	assert.Equal(t, 2, decode[PolicyDTO](t, rec).Version)

	// WHEN: Reset
	rec = do(t, router, http.MethodDelete, "/api/policy", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: Reports go back to the default policy
	report = decode[ReportDTO](t, do(t, router, http.MethodGet, "/api/uploads/"+up.Upload.ID+"/report", nil, ""))
	assert.Equal(t, 0, report.PolicyVersion)
	assert.Equal(t, 1200000.0, report.Summary.TotalCommission)
}

func TestPolicy_RejectsInvalidDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	doc := factory.DefaultPolicyJSON()
	doc.RevenueTiers[0].Rate = 2

	rec := doJSON(t, router, http.MethodPut, "/api/policy", doc)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	require.Len(t, errResp.Fields, 1)
	assert.Equal(t, "revenue_tiers[0].rate", errResp.Fields[0].Field)

	// Nothing saved
	p := decode[PolicyDTO](t, do(t, router, http.MethodGet, "/api/policy", nil, ""))
	assert.True(t, p.IsDefault)
}

func TestPolicy_RejectsMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/policy", []byte(`{"revenue_tiers": "lots"}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetDefaultPolicy(t *testing.T) {
	router, h := newTestRouter(t)

	doc := factory.DefaultPolicyJSON()
	doc.Bonuses.NewCustomer.Amount = 0
	h.SetDefaultPolicy(h.PolicyFactory.FromJSON(doc))

	up := uploadSingleSale(t, router)
	assert.Equal(t, 700000.0, up.Report.Summary.TotalCommission)

	p := decode[PolicyDTO](t, do(t, router, http.MethodGet, "/api/policy/default", nil, ""))
	assert.Equal(t, 0.0, p.Config.Bonuses.NewCustomer.Amount)
}

// =============================================================================
// EXPORT, SAMPLES, HEALTH
// =============================================================================

func TestExportCSV(t *testing.T) {
	router, _ := newTestRouter(t)
	up := uploadSingleSale(t, router)

	rec := do(t, router, http.MethodGet, "/api/uploads/"+up.Upload.ID+"/export.csv", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Bao_cao_hoa_hong_")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "An,2025-03,"))
	assert.True(t, strings.HasSuffix(lines[1], ",1200000"))
}

func TestExportCSV_UnknownUpload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/uploads/missing/export.csv", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSamples(t *testing.T) {
	router, _ := newTestRouter(t)

	list := decode[[]SampleDTO](t, do(t, router, http.MethodGet, "/api/samples", nil, ""))
	require.Len(t, list, len(samples))

	for _, s := range list {
		t.Run(s.ID, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/samples/load", LoadSampleRequest{SampleID: s.ID})

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			resp := decode[UploadResponse](t, rec)
			assert.Equal(t, 7, resp.Upload.RecordCount)
			assert.Len(t, resp.Report.ByRep, 3)
			assert.Positive(t, resp.Report.Summary.TotalCommission)
		})
	}
}

func TestLoadSample_Unknown(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/samples/load", LoadSampleRequest{SampleID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/samples/load", LoadSampleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rec := do(t, router, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, HealthResponse{Status: "ok", Database: "n/a"}, decode[HealthResponse](t, rec))
	})

	t.Run("sqlite store", func(t *testing.T) {
		db, err := sqlite.New(":memory:")
		require.NoError(t, err)
		defer db.Close()
		router := NewRouter(NewHandler(db, nil), RouterOptions{})

		rec := do(t, router, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[HealthResponse](t, rec).Database)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	uploadSingleSale(t, router)

	rec := do(t, router, http.MethodGet, "/metrics", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "commission_reports_computed_total")
	assert.Contains(t, rec.Body.String(), "commission_sales_ingested_total")
}

func TestUploadRateLimit(t *testing.T) {
	h := NewHandler(store.NewMemory(), nil)
	router := NewRouter(h, RouterOptions{UploadsPerMinute: 1})

	post := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(singleSaleCSV))
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, post("192.0.2.1:4000").Code)

	limited := post("192.0.2.1:4001")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// Other clients keep their own allowance
	assert.Equal(t, http.StatusCreated, post("192.0.2.2:4000").Code)
}
