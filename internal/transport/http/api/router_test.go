package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chromalyzer/internal/chart"
	"chromalyzer/internal/config"
	"chromalyzer/internal/importer"
	"chromalyzer/internal/integrate"
	"chromalyzer/internal/session"
	"chromalyzer/internal/store"
	"chromalyzer/internal/trace"
)

// fakeCatalog keeps sessions in a map so handler tests stay off disk.
type fakeCatalog struct {
	sessions map[string]*session.Session
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{sessions: make(map[string]*session.Session)}
}

func (f *fakeCatalog) Save(_ context.Context, s *session.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeCatalog) List(_ context.Context) ([]store.SessionSummary, error) {
	out := make([]store.SessionSummary, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, store.SessionSummary{ID: s.ID, Name: s.Name, TraceCount: len(s.Traces)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCatalog) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeCatalog) Close() error { return nil }

// stubImporter emits a fixed pair of traces regardless of input.
type stubImporter struct{}

func (stubImporter) Import(_ io.Reader, source string) (*importer.Result, error) {
	uv, err := trace.New("UV", "mAU", []trace.Sample{{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 0}})
	if err != nil {
		return nil, err
	}
	return &importer.Result{Traces: []*trace.Trace{uv}, Source: source}, nil
}

func newTestServer(t *testing.T) (*Server, *trace.MemoryStore, *fakeCatalog) {
	t.Helper()
	traces := trace.NewMemoryStore()

	uv, err := trace.New("UV", "mAU", []trace.Sample{
		{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 0}, {X: 3, Y: 0},
	})
	require.NoError(t, err)
	require.NoError(t, traces.Put(uv))

	registry := importer.NewRegistry()
	registry.Register("stub", stubImporter{})

	catalog := newFakeCatalog()
	router := &Router{
		Traces:     traces,
		Importers:  registry,
		Integrator: integrate.NewService(traces),
		Catalog:    catalog,
		Defaults:   *config.Default(),
	}
	srv, err := NewServer(ServerConfig{Addr: ":0", Router: router})
	require.NoError(t, err)
	return srv, traces, catalog
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestListTraces(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/traces", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Traces []traceSummary `json:"traces"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Traces, 1)
	assert.Equal(t, "UV", resp.Traces[0].Name)
	assert.Equal(t, 4, resp.Traces[0].Samples)
	assert.Equal(t, 3.0, resp.Traces[0].MaxX)
}

func TestGetTraceNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/traces/Nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_variable")
}

func TestIntegrateTriangle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/integrate", integrateRequest{
		Region: integrate.Region{Variable: "UV", Start: 0, End: 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var m integrate.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.InDelta(t, 10.0, m.Area, 1e-9)
	assert.InDelta(t, 2.0, m.Volume, 1e-9)
	assert.Equal(t, 1.0, m.Apex.X)
}

func TestIntegrateInvalidInterval(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/integrate", integrateRequest{
		Region: integrate.Region{Variable: "UV", Start: 2, End: 2},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_interval")
}

func TestIntegrateUnknownVariable(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/integrate", integrateRequest{
		Region: integrate.Region{Variable: "Ghost", Start: 0, End: 2},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown_variable")
}

func TestDetectPeaks(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/peaks/detect", detectRequest{Variable: "UV"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Peaks []struct {
			ApexX float64 `json:"apex_x"`
		} `json:"peaks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Peaks, 1)
	assert.Equal(t, 1.0, resp.Peaks[0].ApexX)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) RenderHTML(input chart.Input) ([]byte, error) {
	args := m.Called(input)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockRenderer) RenderPNG(ctx context.Context, input chart.Input) (chart.ImageResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(chart.ImageResult), args.Error(1)
}

func TestChartRendersHTML(t *testing.T) {
	_, traces, _ := newTestServer(t)

	renderer := &mockRenderer{}
	renderer.On("RenderHTML", mock.MatchedBy(func(in chart.Input) bool {
		return len(in.Traces) == 1 && in.Traces[0].Name == "UV"
	})).Return([]byte("<html>chromatogram</html>"), nil)

	// rebuild the server with the renderer mounted
	router := &Router{
		Traces:     traces,
		Importers:  importer.NewRegistry(),
		Integrator: integrate.NewService(traces),
		Renderer:   renderer,
		Defaults:   *config.Default(),
	}
	srv, err := NewServer(ServerConfig{Addr: ":0", Router: router})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chart", chartRequest{
		Title:     "Run",
		Variables: []string{"UV"},
		Format:    "html",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "chromatogram")
	renderer.AssertExpectations(t)
}

func TestRemoveTrace(t *testing.T) {
	srv, traces, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/traces/UV", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, traces.Names())

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/traces/UV", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportTraceCSV(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/export/traces/UV", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "UV.csv")
	assert.Contains(t, rec.Body.String(), "mL,value")
}

func TestImportMultipart(t *testing.T) {
	srv, traces, _ := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("mode", "stub"))
	part, err := w.CreateFormFile("file", "run9.asc")
	require.NoError(t, err)
	fmt.Fprint(part, "ignored")
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "run9.asc")
	assert.Equal(t, []string{"UV"}, traces.Names())
}

func TestSessionLifecycle(t *testing.T) {
	srv, traces, catalog := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", saveSessionRequest{
		Name:    "triangle run",
		Regions: []integrate.Region{{Variable: "UV", Start: 0, End: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Len(t, catalog.sessions, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "triangle run")

	// wipe the workspace, then load the session back
	traces.ReplaceAll(nil, nil)
	assert.Empty(t, traces.Names())
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+created.ID+"/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"UV"}, traces.Names())

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_not_found")
}

func TestSaveSessionWithoutTraces(t *testing.T) {
	srv, traces, _ := newTestServer(t)
	traces.ReplaceAll(nil, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", saveSessionRequest{Name: "empty"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_session")
}

func TestErrorStatusMapping(t *testing.T) {
	status, code := errorStatus(integrate.ErrMissingBaseline)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "missing_baseline", code)

	status, code = errorStatus(fmt.Errorf("wrapped: %w", integrate.ErrUnknownVariable))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "unknown_variable", code)

	status, code = errorStatus(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", code)
}
