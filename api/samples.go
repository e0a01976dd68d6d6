/*
samples.go - Built-in sample datasets for demos and manual testing

PURPOSE:
  Provides ready-made sales exports that exercise the interesting parts of
  the engine. Loading a sample stores it as a regular upload, so its report,
  adjustments and CSV export work exactly like a user's file.

AVAILABLE SAMPLES:
  march-mixed:   One month, every category: standard, hospital channel,
                 imported and commercial equipment, excluded SKU, unpaid,
                 FitMe units, a house sale with no representative
  quarter-tiers: Three months for two representatives, one of them crossing
                 several revenue tiers in a single month

USAGE VIA API:
  POST /api/samples/load
  {"sample_id": "march-mixed"}

ADDING NEW SAMPLES:
  1. Drop the CSV into api/samples/ (accounting export layout)
  2. Add an entry to the 'samples' slice

SEE ALSO:
  - handlers.go: storeUpload, computeReport
  - ingest/csv.go: File layout
*/
package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
)

//go:embed samples/*.csv
var sampleFiles embed.FS

type sample struct {
	SampleDTO
	file string
}

var samples = []sample{
	{
		SampleDTO: SampleDTO{
			ID:          "march-mixed",
			Name:        "March, mixed categories",
			Description: "One month covering every sale category, late payments and an unpaid invoice",
		},
		file: "samples/march-mixed.csv",
	},
	{
		SampleDTO: SampleDTO{
			ID:          "quarter-tiers",
			Name:        "First quarter, revenue tiers",
			Description: "Two representatives over three months, one crossing several revenue tiers",
		},
		file: "samples/quarter-tiers.csv",
	},
}

func findSample(id string) (sample, bool) {
	for _, s := range samples {
		if s.ID == id {
			return s, true
		}
	}
	return sample{}, false
}

// GET /api/samples
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	result := make([]SampleDTO, 0, len(samples))
	for _, s := range samples {
		result = append(result, s.SampleDTO)
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /api/samples/load
func (h *Handler) LoadSample(w http.ResponseWriter, r *http.Request) {
	var req LoadSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "sample_id is required", nil)
		return
	}

	s, ok := findSample(req.SampleID)
	if !ok {
		writeError(w, http.StatusNotFound, "Sample not found", fmt.Errorf("unknown sample %q", req.SampleID))
		return
	}

	content, err := sampleFiles.ReadFile(s.file)
	if err != nil {
		h.fail(w, r, "Failed to read sample", err)
		return
	}

	upload, err := h.storeUpload(r.Context(), s.ID+".csv", content)
	if err != nil {
		h.fail(w, r, "Failed to ingest sample", err)
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
