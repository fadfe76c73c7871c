package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/adapter/store/catalog"
	"go.ngs.io/grace-api/internal/domain"
	"go.ngs.io/grace-api/internal/usecase"
)

// SampleCatalogs lists and reads sample point files in the workspace.
type SampleCatalogs interface {
	store.SampleLoader
	ListCatalogs() ([]string, error)
}

// Purger drops cached rasters after a rescan.
type Purger interface {
	Purge()
}

// Deps are the collaborators a Handler serves.
type Deps struct {
	Engine    *usecase.Engine
	Catalog   *catalog.Catalog
	Samples   SampleCatalogs // Optional.
	Rasters   Purger         // Optional.
	Workspace string
	Logger    zerolog.Logger
}

// Handler handles HTTP requests for raster extraction and point series.
type Handler struct {
	Deps
}

// NewHandler creates a new HTTP handler.
func NewHandler(d Deps) *Handler {
	d.Logger = d.Logger.With().Str("component", "http").Logger()
	return &Handler{Deps: d}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	snap := h.Catalog.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"epochs":  snap.Len(),
		"catalog": snap.Dir(),
	})
}

// GetEpochs handles GET /v1/epochs.
func (h *Handler) GetEpochs(c *gin.Context) {
	codec := h.Engine.Codec()
	start, err := requiredDate(c, codec, "start")
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := requiredDate(c, codec, "end")
	if err != nil {
		badRequest(c, err)
		return
	}
	normalize, err := optionalBool(c, "normalize")
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.Engine.Epochs(start, end, normalize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start":  list.Start,
		"end":    list.End,
		"epochs": list.Epochs,
		"count":  len(list.Epochs),
	})
}

// GetCatalog handles GET /v1/catalog.
func (h *Handler) GetCatalog(c *gin.Context) {
	snap := h.Catalog.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"dir":     snap.Dir(),
		"count":   snap.Len(),
		"entries": snap.Entries(),
	})
}

// ScanCatalog handles POST /v1/catalog/scan.
func (h *Handler) ScanCatalog(c *gin.Context) {
	snap, err := h.Catalog.Scan(h.Workspace)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Rasters != nil {
		h.Rasters.Purge()
	}
	h.logger(c).Info().Int("entries", snap.Len()).Msg("workspace rescanned")
	c.JSON(http.StatusOK, gin.H{
		"dir":   snap.Dir(),
		"count": snap.Len(),
	})
}

// GetSnapshot handles GET /v1/snapshot.
func (h *Handler) GetSnapshot(c *gin.Context) {
	box, err := parseBox(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	e, err := requiredEpoch(c, h.Engine.Codec(), "date")
	if err != nil {
		badRequest(c, err)
		return
	}
	frame, err := h.Engine.Extractor.ExtractSnapshot(box, e)
	if err != nil {
		h.fail(c, err)
		return
	}
	if frame.Missing() {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  domain.ErrMissingEpochData.Error(),
			"epoch":  frame.Epoch,
			"date":   frame.Date,
			"status": frame.Status,
		})
		return
	}
	c.JSON(http.StatusOK, frame)
}

// GetAOISeries handles GET /v1/aoi/series.
func (h *Handler) GetAOISeries(c *gin.Context) {
	box, err := parseBox(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	codec := h.Engine.Codec()
	start, err := requiredEpoch(c, codec, "start")
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := requiredEpoch(c, codec, "end")
	if err != nil {
		badRequest(c, err)
		return
	}
	frames, err := h.Engine.Extractor.ExtractSeries(box, domain.EpochRange{Start: start, End: end})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, framesResponse(frames))
}

// GetAOICatalog handles GET /v1/aoi/all.
func (h *Handler) GetAOICatalog(c *gin.Context) {
	box, err := parseBox(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	frames, err := h.Engine.Extractor.ExtractCatalog(box)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, framesResponse(frames))
}

func framesResponse(frames []domain.Frame) gin.H {
	missing := 0
	for _, f := range frames {
		if f.Missing() {
			missing++
		}
	}
	return gin.H{
		"frames":  frames,
		"count":   len(frames),
		"missing": missing,
	}
}

// GetSampleCatalogs handles GET /v1/samples.
func (h *Handler) GetSampleCatalogs(c *gin.Context) {
	if h.Samples == nil {
		c.JSON(http.StatusOK, gin.H{"catalogs": []string{}})
		return
	}
	names, err := h.Samples.ListCatalogs()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalogs": names})
}

// PointInput is one sample point of a request body. Every field is required;
// an omitted coordinate must not decode to zero.
type PointInput struct {
	ID  *int     `json:"id" binding:"required"`
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// PointSeriesRequest is the body of POST /v1/points/series.
type PointSeriesRequest struct {
	Start  string       `json:"start"`
	End    string       `json:"end"`
	Points []PointInput `json:"points" binding:"dive"`
}

// SamplePoints returns the request points.
func (r PointSeriesRequest) SamplePoints() []domain.SamplePoint {
	out := make([]domain.SamplePoint, len(r.Points))
	for i, p := range r.Points {
		out[i] = domain.SamplePoint{ID: *p.ID, Lat: *p.Lat, Lon: *p.Lon}
	}
	return out
}

// PostPointSeries handles POST /v1/points/series. Points come from the JSON
// body, or from a workspace CSV named by the csv query parameter.
func (h *Handler) PostPointSeries(c *gin.Context) {
	var req PointSeriesRequest
	var points []domain.SamplePoint
	if name := c.Query("csv"); name != "" {
		if h.Samples == nil {
			badRequest(c, errors.New("sample catalogs are not configured"))
			return
		}
		if filepath.Base(name) != name {
			badRequest(c, fmt.Errorf("csv must name a file in the workspace, got %q", name))
			return
		}
		var err error
		points, err = h.Samples.LoadSamples(name)
		if err != nil {
			badRequest(c, err)
			return
		}
		req = PointSeriesRequest{Start: c.Query("start"), End: c.Query("end")}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, fmt.Errorf("invalid request body: %w", err))
			return
		}
		points = req.SamplePoints()
	}

	if len(points) == 0 {
		badRequest(c, errors.New("at least one sample point is required"))
		return
	}
	codec := h.Engine.Codec()
	start, err := parseDate(codec, "start", req.Start)
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := parseDate(codec, "end", req.End)
	if err != nil {
		badRequest(c, err)
		return
	}
	ts, err := h.Engine.Points.Build(points, start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

// GetDiff handles GET /v1/diff.
func (h *Handler) GetDiff(c *gin.Context) {
	box, err := parseBox(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	codec := h.Engine.Codec()
	start, err := requiredEpoch(c, codec, "start")
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := requiredEpoch(c, codec, "end")
	if err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.Engine.Diffs.Diff(box, start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// fail maps engine errors onto status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	body := gin.H{"error": err.Error()}
	var merr *domain.MissingEpochError
	if errors.As(err, &merr) {
		body = gin.H{
			"error":  domain.ErrMissingEpochData.Error(),
			"epoch":  merr.Epoch,
			"date":   merr.Epoch.Date().Format(domain.DateLayout),
			"role":   merr.Role,
			"detail": err.Error(),
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger(c).Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, body)
}

// StatusOf returns the HTTP status for an engine error.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingEpochData):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrOutOfBounds),
		errors.Is(err, domain.ErrDegenerateBoundingBox),
		errors.Is(err, domain.ErrDuplicateSampleID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) logger(c *gin.Context) *zerolog.Logger {
	l := h.Logger.With().Str("request_id", c.GetString(requestIDKey)).Logger()
	return &l
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseBox reads either bbox=ul_lat,ul_lon,lr_lat,lr_lon or the four
// separate corner parameters.
func parseBox(c *gin.Context) (domain.BoundingBox, error) {
	if bbox := c.Query("bbox"); bbox != "" {
		return domain.ParseBoundingBox(bbox)
	}
	names := []string{"ul_lat", "ul_lon", "lr_lat", "lr_lon"}
	raw := make([]string, len(names))
	for i, name := range names {
		raw[i] = c.Query(name)
		if raw[i] == "" {
			return domain.BoundingBox{}, fmt.Errorf("%s parameter is required", name)
		}
	}
	return domain.ParseCorners(raw[0], raw[1], raw[2], raw[3])
}

// requiredEpoch accepts a YYYY-MM-DD date or a YYYYDDD epoch key.
func requiredEpoch(c *gin.Context, codec domain.DateCodec, name string) (domain.Epoch, error) {
	s := c.Query(name)
	if s == "" {
		return domain.Epoch{}, fmt.Errorf("%s parameter is required", name)
	}
	e, err := codec.ParseKey(s)
	if err != nil {
		return domain.Epoch{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return e, nil
}

func requiredDate(c *gin.Context, codec domain.DateCodec, name string) (time.Time, error) {
	return parseDate(codec, name, c.Query(name))
}

func parseDate(codec domain.DateCodec, name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s parameter is required", name)
	}
	t, err := codec.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}

func optionalBool(c *gin.Context, name string) (bool, error) {
	s := c.Query(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}
