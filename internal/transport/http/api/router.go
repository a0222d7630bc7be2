package apihttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"chromalyzer/internal/analysis/peakfind"
	"chromalyzer/internal/analysis/smooth"
	"chromalyzer/internal/chart"
	"chromalyzer/internal/config"
	"chromalyzer/internal/export"
	"chromalyzer/internal/importer"
	"chromalyzer/internal/integrate"
	"chromalyzer/internal/logger"
	"chromalyzer/internal/session"
	"chromalyzer/internal/store"
	"chromalyzer/internal/trace"
)

// maxUploadBytes caps import uploads. Raw runs rarely exceed a few MB.
const maxUploadBytes = 64 << 20

// Router exposes the analyzer operations over /api/v1.
type Router struct {
	Traces     trace.Store
	Importers  *importer.Registry
	Profiles   *importer.ProfileStore
	Integrator *integrate.Service
	Renderer   chart.Renderer
	Catalog    store.Catalog
	Styles     func() config.StyleSnapshot
	Defaults   config.Config

	mu         sync.RWMutex
	lastSource string
}

// Register mounts all routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/import", r.handleImport)
	group.GET("/import/modes", r.handleImportModes)

	group.GET("/traces", r.handleListTraces)
	group.GET("/traces/:name", r.handleGetTrace)
	group.DELETE("/traces/:name", r.handleRemoveTrace)

	group.POST("/integrate", r.handleIntegrate)
	group.POST("/peaks/detect", r.handleDetectPeaks)

	if r.Renderer != nil {
		group.POST("/chart", r.handleChart)
	}

	group.GET("/export/traces/:name", r.handleExportTrace)
	group.POST("/export/report", r.handleExportReport)

	if r.Catalog != nil {
		group.POST("/sessions", r.handleSaveSession)
		group.GET("/sessions", r.handleListSessions)
		group.GET("/sessions/:id", r.handleGetSession)
		group.POST("/sessions/:id/load", r.handleLoadSession)
		group.DELETE("/sessions/:id", r.handleDeleteSession)
	}

	if r.Profiles != nil {
		group.GET("/profiles", r.handleListProfiles)
		group.POST("/profiles", r.handleSaveProfile)
		group.DELETE("/profiles/:name", r.handleDeleteProfile)
	}
}

// ---------------------------- import --------------------------------

func (r *Router) handleImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	mode := strings.TrimSpace(c.DefaultPostForm("mode", "akta"))

	imp, err := r.resolveImporter(mode, c.PostForm("profile"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "unknown_mode", err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		abortError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()

	result, err := imp.Import(f, fileHeader.Filename)
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}

	r.Traces.ReplaceAll(result.Traces, result.Fractions)
	r.mu.Lock()
	r.lastSource = result.Source
	r.mu.Unlock()
	logger.Infof("imported %d traces from %s (mode=%s)", len(result.Traces), result.Source, mode)

	c.JSON(http.StatusOK, gin.H{
		"source":    result.Source,
		"traces":    traceSummaries(r.Traces),
		"fractions": result.Fractions,
	})
}

// resolveImporter picks a registered importer, or builds a custom one from
// a saved column-mapping profile.
func (r *Router) resolveImporter(mode, profileName string) (importer.Importer, error) {
	if mode == "custom" && strings.TrimSpace(profileName) != "" {
		if r.Profiles == nil {
			return nil, fmt.Errorf("profiles are not configured")
		}
		p, err := r.Profiles.Get(strings.TrimSpace(profileName))
		if err != nil {
			return nil, err
		}
		return importer.NewCustom(p.Options)
	}
	return r.Importers.Get(mode)
}

func (r *Router) handleImportModes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modes": r.Importers.Modes()})
}

// ---------------------------- traces --------------------------------

type traceSummary struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Samples int     `json:"samples"`
	MinX    float64 `json:"min_x"`
	MaxX    float64 `json:"max_x"`
}

func traceSummaries(s trace.Store) []traceSummary {
	names := s.Names()
	out := make([]traceSummary, 0, len(names))
	for _, name := range names {
		t, err := s.Get(name)
		if err != nil {
			continue
		}
		lo, hi, _ := t.Domain()
		out = append(out, traceSummary{
			Name:    t.Name,
			Unit:    t.Unit,
			Samples: t.Len(),
			MinX:    lo,
			MaxX:    hi,
		})
	}
	return out
}

func (r *Router) handleListTraces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"traces":    traceSummaries(r.Traces),
		"fractions": r.Traces.Fractions(),
	})
}

func (r *Router) handleGetTrace(c *gin.Context) {
	t, err := r.Traces.Get(c.Param("name"))
	if err != nil {
		abortError(c, http.StatusNotFound, "unknown_variable", err)
		return
	}
	if method := strings.TrimSpace(c.Query("smooth")); method != "" {
		window := intQuery(c, "window", 5)
		t, err = smooth.Apply(t, smooth.Method(method), window)
		if err != nil {
			abortError(c, http.StatusBadRequest, "invalid_smoothing", err)
			return
		}
	}
	c.JSON(http.StatusOK, t)
}

func (r *Router) handleRemoveTrace(c *gin.Context) {
	if err := r.Traces.Remove(c.Param("name")); err != nil {
		abortError(c, http.StatusNotFound, "unknown_variable", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --------------------------- integrate ------------------------------

type integrateRequest struct {
	Region integrate.Region  `json:"region"`
	Params *integrate.Params `json:"params,omitempty"`
}

func (r *Router) handleIntegrate(c *gin.Context) {
	var req integrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	metrics, err := r.Integrator.Evaluate(req.Region, r.effectiveParams(req.Params))
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// effectiveParams overlays request params on the configured defaults.
func (r *Router) effectiveParams(req *integrate.Params) integrate.Params {
	params := integrate.Params{ColumnLengthCm: r.Defaults.Column.LengthCm}
	if def := r.Defaults.Concentration; def.ExtinctionCoeff > 0 {
		params.Concentration = &integrate.ConcentrationParams{
			ExtinctionCoeff: def.ExtinctionCoeff,
			PathLengthCm:    def.PathLengthCm,
			MolecularWeight: def.MolecularWeight,
		}
	}
	if req == nil {
		return params
	}
	if req.ColumnLengthCm != 0 {
		params.ColumnLengthCm = req.ColumnLengthCm
	}
	if req.Concentration != nil {
		params.Concentration = req.Concentration
	}
	return params
}

// ----------------------------- peaks --------------------------------

type detectRequest struct {
	Variable      string  `json:"variable"`
	SmoothWindow  int     `json:"smooth_window"`
	MinProminence float64 `json:"min_prominence"`
	MaxPeaks      int     `json:"max_peaks"`
}

func (r *Router) handleDetectPeaks(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	t, err := r.Traces.Get(req.Variable)
	if err != nil {
		abortError(c, http.StatusNotFound, "unknown_variable", err)
		return
	}
	candidates, err := peakfind.Detect(t, peakfind.Options{
		SmoothWindow:  req.SmoothWindow,
		MinProminence: req.MinProminence,
		MaxPeaks:      req.MaxPeaks,
	})
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"peaks": candidates})
}

// ----------------------------- chart --------------------------------

type chartRequest struct {
	Title     string            `json:"title"`
	Variables []string          `json:"variables"`
	Region    *integrate.Region `json:"region,omitempty"`
	Format    string            `json:"format"`
}

func (r *Router) handleChart(c *gin.Context) {
	var req chartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Variables) == 0 {
		req.Variables = r.Traces.Names()
	}
	traces := make([]*trace.Trace, 0, len(req.Variables))
	for _, name := range req.Variables {
		t, err := r.Traces.Get(name)
		if err != nil {
			abortError(c, http.StatusNotFound, "unknown_variable", err)
			return
		}
		traces = append(traces, t)
	}

	input := chart.Input{
		Title:     req.Title,
		Traces:    traces,
		Fractions: r.Traces.Fractions(),
		Region:    req.Region,
		Style:     r.styleSnapshot(),
	}
	if req.Region != nil {
		metrics, err := r.Integrator.Evaluate(*req.Region, r.effectiveParams(nil))
		if err == nil {
			input.Metrics = &metrics
		}
	}

	switch strings.ToLower(req.Format) {
	case "", "html":
		html, err := r.Renderer.RenderHTML(input)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "render_failed", err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
	case "png":
		img, err := r.Renderer.RenderPNG(c.Request.Context(), input)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "render_failed", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Filename))
		c.Data(http.StatusOK, "image/png", img.Bytes)
	default:
		abortError(c, http.StatusBadRequest, "unknown_format", fmt.Errorf("format %q not supported", req.Format))
	}
}

func (r *Router) styleSnapshot() config.StyleSnapshot {
	if r.Styles != nil {
		return r.Styles()
	}
	return config.StyleSnapshot{Chart: r.Defaults.Chart, Variables: r.Defaults.Variables}
}

// ----------------------------- export -------------------------------

func (r *Router) handleExportTrace(c *gin.Context) {
	t, err := r.Traces.Get(c.Param("name"))
	if err != nil {
		abortError(c, http.StatusNotFound, "unknown_variable", err)
		return
	}
	precision := export.PrecisionAuto
	if c.Query("precision") == "raw" {
		precision = export.PrecisionRaw
	}
	body := export.BuildTraceCSV(t, export.CSVOptions{Precision: precision})
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", t.Name+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}

func (r *Router) handleExportReport(c *gin.Context) {
	var req integrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	metrics, err := r.Integrator.Evaluate(req.Region, r.effectiveParams(req.Params))
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	report := export.BuildMetricsReport(req.Region, metrics)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

// ---------------------------- sessions ------------------------------

type saveSessionRequest struct {
	Name     string             `json:"name"`
	Selected []string           `json:"selected,omitempty"`
	Primary  string             `json:"primary,omitempty"`
	XRange   *session.XRange    `json:"x_range,omitempty"`
	Regions  []integrate.Region `json:"regions,omitempty"`
	Params   *integrate.Params  `json:"params,omitempty"`
}

func (r *Router) handleSaveSession(c *gin.Context) {
	var req saveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	names := r.Traces.Names()
	traces := make([]*trace.Trace, 0, len(names))
	for _, name := range names {
		if t, err := r.Traces.Get(name); err == nil {
			traces = append(traces, t)
		}
	}
	r.mu.RLock()
	source := r.lastSource
	r.mu.RUnlock()

	s, err := session.New(req.Name, source, traces, r.Traces.Fractions())
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	s.Params = r.effectiveParams(req.Params)
	if len(req.Selected) > 0 {
		s.Selected = req.Selected
	}
	if req.Primary != "" {
		s.Primary = req.Primary
	}
	s.XRange = req.XRange
	s.Regions = req.Regions
	if err := s.Validate(); err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}

	if err := r.Catalog.Save(c.Request.Context(), s); err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "name": s.Name})
}

func (r *Router) handleListSessions(c *gin.Context) {
	list, err := r.Catalog.List(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (r *Router) handleGetSession(c *gin.Context) {
	s, err := r.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// handleLoadSession makes the stored session the active workspace.
func (r *Router) handleLoadSession(c *gin.Context) {
	s, err := r.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	r.Traces.ReplaceAll(s.Traces, s.Fractions)
	r.mu.Lock()
	r.lastSource = s.Source
	r.mu.Unlock()
	logger.Infof("loaded session %s (%s), %d traces", s.ID, s.Name, len(s.Traces))
	c.JSON(http.StatusOK, gin.H{
		"id":     s.ID,
		"name":   s.Name,
		"traces": traceSummaries(r.Traces),
	})
}

func (r *Router) handleDeleteSession(c *gin.Context) {
	if err := r.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status, code := errorStatus(err)
		abortError(c, status, code, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------------------------- profiles ------------------------------

func (r *Router) handleListProfiles(c *gin.Context) {
	profiles, err := r.Profiles.List()
	if err != nil {
		abortError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

func (r *Router) handleSaveProfile(c *gin.Context) {
	var p importer.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := r.Profiles.Save(p); err != nil {
		abortError(c, http.StatusUnprocessableEntity, "invalid_profile", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": p.Name})
}

func (r *Router) handleDeleteProfile(c *gin.Context) {
	if err := r.Profiles.Delete(c.Param("name")); err != nil {
		abortError(c, http.StatusNotFound, "profile_not_found", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ----------------------------- errors -------------------------------

// errorStatus maps domain sentinels onto HTTP codes. Bad analysis input
// is the caller's problem (4xx), never a 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, integrate.ErrUnknownVariable), errors.Is(err, trace.ErrNotFound):
		return http.StatusNotFound, "unknown_variable"
	case errors.Is(err, integrate.ErrInvalidInterval):
		return http.StatusUnprocessableEntity, "invalid_interval"
	case errors.Is(err, integrate.ErrMissingBaseline):
		return http.StatusUnprocessableEntity, "missing_baseline"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrInvalid):
		return http.StatusUnprocessableEntity, "invalid_session"
	case errors.Is(err, importer.ErrNoData), errors.Is(err, trace.ErrEmpty):
		return http.StatusUnprocessableEntity, "no_data"
	}
	return http.StatusInternalServerError, "internal_error"
}

func abortError(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Warnf("%s %s rejected: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "detail": err.Error()})
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v <= 0 {
		return def
	}
	return v
}
