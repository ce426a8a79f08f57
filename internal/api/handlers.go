package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite/smartlead-tagmapper/internal/ingest"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/httputil"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/logger"
	"github.com/ignite/smartlead-tagmapper/internal/smartlead"
	"github.com/ignite/smartlead-tagmapper/internal/tagmap"
)

// Handlers serves the upload, preview, run and export endpoints.
type Handlers struct {
	pipeline       *tagmap.Pipeline
	maxUploadBytes int64
	previewRows    int
	defaultApply   bool
}

// HandlerOptions bounds uploads and sets run defaults.
type HandlerOptions struct {
	MaxUploadBytes int64
	PreviewRows    int
	DefaultApply   bool
}

// NewHandlers creates handlers over pipeline.
func NewHandlers(pipeline *tagmap.Pipeline, opts HandlerOptions) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = ingest.DefaultPreviewRows
	}
	return &Handlers{
		pipeline:       pipeline,
		maxUploadBytes: opts.MaxUploadBytes,
		previewRows:    opts.PreviewRows,
		defaultApply:   opts.DefaultApply,
	}
}

// HandlePreview shows the first rows of an upload with detected settings.
//
//	POST /api/tagmap/preview (multipart "file", optional "rows")
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	limit := h.previewRows
	if v := r.FormValue("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "invalid_rows", "rows must be a positive integer")
			return
		}
		limit = n
	}

	preview, err := ingest.Preview(data, limit)
	if err != nil {
		writeRunError(w, err)
		return
	}
	httputil.OK(w, preview)
}

// HandleRun runs the full pipeline. Dry-run unless dry_run=false is sent
// (or applying is the configured default).
//
//	POST /api/tagmap/runs[?format=csv]
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	in, ok := h.runInput(w, r)
	if !ok {
		return
	}
	dryRun, err := h.dryRun(r.FormValue("dry_run"))
	if err != nil {
		httputil.BadRequest(w, "invalid_dry_run", err.Error())
		return
	}
	in.DryRun = dryRun

	result, err := h.pipeline.Run(r.Context(), in)
	if err != nil {
		writeRunError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		httputil.Attachment(w, tagmap.ResultsFilename, tagmap.CSVContentType, result.ResultsCSV)
		return
	}
	httputil.OK(w, result)
}

// HandleExport runs a dry run and returns the mapped CSV.
//
//	POST /api/tagmap/export
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	in, ok := h.runInput(w, r)
	if !ok {
		return
	}
	in.DryRun = true

	result, err := h.pipeline.Run(r.Context(), in)
	if err != nil {
		writeRunError(w, err)
		return
	}
	httputil.Attachment(w, tagmap.MappedFilename, tagmap.CSVContentType, result.MappedCSV)
}

func (h *Handlers) runInput(w http.ResponseWriter, r *http.Request) (tagmap.RunInput, bool) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return tagmap.RunInput{}, false
	}
	return tagmap.RunInput{
		Data: data,
		Mapping: ingest.ColumnMapping{
			EmailColumn: r.FormValue("email_column"),
			TagColumn:   r.FormValue("tag_column"),
		},
	}, true
}

func (h *Handlers) dryRun(v string) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return !h.defaultApply, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("dry_run must be true or false, got %q", v)
	}
	return b, nil
}

// readUpload reads the multipart "file" field, bounded by maxUploadBytes.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes), nil)
			return nil, false
		}
		httputil.BadRequest(w, "invalid_form", "expected multipart/form-data with a file field")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file_required", "file is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.BadRequest(w, "invalid_file", "could not read uploaded file")
		return nil, false
	}
	return data, true
}

// writeRunError maps pipeline errors onto HTTP responses.
func writeRunError(w http.ResponseWriter, err error) {
	var (
		decodeErr  *ingest.DecodeError
		mappingErr *ingest.ColumnMappingError
		vendorErr  *smartlead.VendorCallError
		tagErr     *tagmap.TagFetchError
	)

	switch {
	case errors.Is(err, ingest.ErrEmptyFile):
		httputil.BadRequest(w, "empty_file", err.Error())
	case errors.As(err, &decodeErr):
		httputil.BadRequest(w, "decode_error", err.Error())
	case errors.As(err, &mappingErr):
		httputil.Error(w, http.StatusBadRequest, "column_mapping", err.Error(), map[string]interface{}{
			"field":     mappingErr.Field,
			"column":    mappingErr.Column,
			"available": mappingErr.Available,
		})
	case errors.Is(err, tagmap.ErrApplyInProgress):
		httputil.Error(w, http.StatusConflict, "apply_in_progress", err.Error(), nil)
	case errors.Is(err, tagmap.ErrNoTagger):
		httputil.Error(w, http.StatusServiceUnavailable, "apply_unavailable", err.Error(), nil)
	case errors.As(err, &vendorErr):
		code := "vendor_error"
		if errors.As(err, &tagErr) {
			code = "tag_fetch_failed"
		}
		logger.Warn("vendor call failed", "endpoint", vendorErr.Endpoint, "status", vendorErr.Status, "error", err)
		httputil.Error(w, http.StatusBadGateway, code, err.Error(), map[string]interface{}{
			"endpoint": vendorErr.Endpoint,
			"status":   vendorErr.Status,
		})
	case errors.As(err, &tagErr):
		httputil.Error(w, http.StatusBadGateway, "tag_fetch_failed", err.Error(), nil)
	default:
		httputil.InternalError(w, err)
	}
}
