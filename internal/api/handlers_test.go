package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/smartlead-tagmapper/internal/domain"
	"github.com/ignite/smartlead-tagmapper/internal/ingest"
	"github.com/ignite/smartlead-tagmapper/internal/pkg/distlock"
	"github.com/ignite/smartlead-tagmapper/internal/smartlead"
	"github.com/ignite/smartlead-tagmapper/internal/tagmap"
)

const uploadCSV = "email,tag\nalice@x.com,Sales\nbob@x.com,promo\ncarol@x.com,Sales\n"

type mockDirectory struct {
	tagsErr error
}

func (d *mockDirectory) FetchAccounts(ctx context.Context) ([]domain.Account, error) {
	return []domain.Account{{ID: 10, Email: "alice@x.com"}, {ID: 11, Email: "bob@x.com"}}, nil
}

func (d *mockDirectory) FetchAccountsFallback(ctx context.Context) ([]domain.Account, error) {
	return nil, errors.New("not used")
}

func (d *mockDirectory) FetchTags(ctx context.Context) ([]domain.Tag, error) {
	if d.tagsErr != nil {
		return nil, d.tagsErr
	}
	return []domain.Tag{{ID: 1, Name: "promo"}, {ID: 2, Name: "Promo"}, {ID: 3, Name: "Sales"}}, nil
}

type mockTagger struct {
	calls int
}

func (m *mockTagger) ApplyTags(ctx context.Context, tagID int64, accountIDs []int64) error {
	m.calls++
	return nil
}

func setupTestServer(t *testing.T, dir tagmap.Directory, tagger tagmap.Tagger, opts ...tagmap.Option) http.Handler {
	t.Helper()
	pipeline := tagmap.NewPipeline(dir, tagger, 25, opts...)
	handlers := NewHandlers(pipeline, HandlerOptions{})
	health := NewHealthChecker(nil, Credentials{HasBearer: true, HasAPIKey: true})
	return NewServer(handlers, health, nil).Handler()
}

func multipartRequest(t *testing.T, target, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if content != "" {
		fw, err := mw.CreateFormFile("file", "upload.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "up", resp.Checks["smartlead"].Status)
	assert.Equal(t, "down", resp.Checks["redis"].Status)
}

func TestHealthCheck_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	health := NewHealthChecker(client, Credentials{HasBearer: true})
	rr := httptest.NewRecorder()
	health.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "up", resp.Checks["redis"].Status)
	assert.Equal(t, "degraded", resp.Status, "api key missing")
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{
		"smartlead": {Status: "down", Message: "no credentials set"},
	}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"smartlead": {Status: "up"},
		"redis":     {Status: "down", Message: "ping failed: refused"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"smartlead": {Status: "up"},
		"redis":     {Status: "down", Message: notConfigured},
	}))
}

func TestPreview(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	req := multipartRequest(t, "/api/tagmap/preview", "Email Address;Label\na@x.com;Sales\nb@x.com;Promo\n", map[string]string{"rows": "1"})
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ingest.PreviewResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, ";", resp.Delimiter)
	assert.Equal(t, []string{"Email Address", "Label"}, resp.Headers)
	assert.Equal(t, [][]string{{"a@x.com", "Sales"}}, resp.Rows)
	assert.Equal(t, 2, resp.TotalRows)
	assert.Equal(t, "Email Address", resp.SuggestedEmailColumn)
	assert.Equal(t, "Label", resp.SuggestedTagColumn)
}

func TestPreview_MissingFile(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/preview", "", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "file_required", decodeError(t, rr)["code"])
}

func TestRun_DefaultsToDryRun(t *testing.T) {
	tagger := &mockTagger{}
	srv := setupTestServer(t, &mockDirectory{}, tagger)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, tagger.calls)

	var resp tagmap.RunResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Summary.DryRun)
	assert.Equal(t, 3, resp.Summary.TotalRows)
	assert.Equal(t, 1, resp.Summary.Matched)
	assert.Equal(t, 1, resp.Summary.AmbiguousTag)
	assert.Equal(t, 1, resp.Summary.UnmatchedEmail)
}

func TestRun_Apply(t *testing.T) {
	tagger := &mockTagger{}
	srv := setupTestServer(t, &mockDirectory{}, tagger)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, map[string]string{"dry_run": "false"}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, tagger.calls)

	var resp tagmap.RunResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.AppliedBatches)
}

func TestRun_ResultsCSV(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs?format=csv", uploadCSV, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), tagmap.ResultsFilename)

	rows, err := csv.NewReader(bytes.NewReader(rr.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, tagmap.ResultsHeader, rows[0])
}

func TestRun_ColumnMappingError(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, map[string]string{"tag_column": "segment"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "column_mapping", resp["code"])
	details := resp["details"].(map[string]interface{})
	assert.Equal(t, "segment", details["column"])
	assert.Equal(t, []interface{}{"email", "tag"}, details["available"])
}

func TestRun_InvalidDryRun(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, map[string]string{"dry_run": "maybe"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_dry_run", decodeError(t, rr)["code"])
}

func TestRun_TagFetchFailure(t *testing.T) {
	vendorErr := &smartlead.VendorCallError{Endpoint: "graphql tags", Status: http.StatusUnauthorized, Message: "invalid token"}
	srv := setupTestServer(t, &mockDirectory{tagsErr: vendorErr}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "tag_fetch_failed", resp["code"])
	details := resp["details"].(map[string]interface{})
	assert.Equal(t, "graphql tags", details["endpoint"])
	assert.Equal(t, float64(http.StatusUnauthorized), details["status"])
}

func TestRun_ApplyInProgress(t *testing.T) {
	const key = "api-test-apply"
	held := distlock.NewLocalLock(key)
	ok, err := held.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Release(context.Background())

	srv := setupTestServer(t, &mockDirectory{}, &mockTagger{},
		tagmap.WithApplyLock(func() distlock.DistLock { return distlock.NewLocalLock(key) }))

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, map[string]string{"dry_run": "false"}))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "apply_in_progress", decodeError(t, rr)["code"])
}

func TestRun_ApplyWithoutTagger(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/runs", uploadCSV, map[string]string{"dry_run": "false"}))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestExport(t *testing.T) {
	tagger := &mockTagger{}
	srv := setupTestServer(t, &mockDirectory{}, tagger)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/export", uploadCSV, map[string]string{"dry_run": "false"}))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Zero(t, tagger.calls, "export never applies")
	assert.Equal(t, `attachment; filename="mapped_emails_tags.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "email,tag,email_account_id,tag_id\nalice@x.com,Sales,10,3\n", rr.Body.String())
}

func TestExport_DecodeError(t *testing.T) {
	srv := setupTestServer(t, &mockDirectory{}, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, multipartRequest(t, "/api/tagmap/export", "email,tag\x00\n", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "decode_error", decodeError(t, rr)["code"])
}
