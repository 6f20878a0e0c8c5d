package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/stockboard/internal/cache"
	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/mauv0809/stockboard/internal/views"
	"github.com/rs/zerolog"
)

type Handler struct {
	dashboards *dashboard.Set
	fetchers   *cache.Fetchers
	log        zerolog.Logger
}

func New(dashboards *dashboard.Set, fetchers *cache.Fetchers, log zerolog.Logger) *Handler {
	return &Handler{
		dashboards: dashboards,
		fetchers:   fetchers,
		log:        log,
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.GET("/d/:variant", h.Variant)

	api := e.Group("/api")
	api.GET("/variants", h.Variants)
	api.GET("/dashboard/:symbol", h.Dashboard)
	api.GET("/cache/status", h.CacheStatus)
	api.DELETE("/cache", h.FlushCache)
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Index renders the default dashboard.
func (h *Handler) Index(c echo.Context) error {
	return h.page(c, h.dashboards.Default(), "/")
}

// Variant renders a named dashboard.
func (h *Handler) Variant(c echo.Context) error {
	d, err := h.dashboards.Get(c.Param("variant"))
	if err != nil {
		return httpError(err)
	}
	return h.page(c, d, "/d/"+d.Variant().Name)
}

// page handles the symbol and period query parameters shared by the HTML routes.
func (h *Handler) page(c echo.Context, d *dashboard.Dashboard, path string) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		symbol = d.DefaultSymbol()
	}

	view, err := d.Render(c.Request().Context(), symbol, c.QueryParam("period"))
	if err != nil {
		return httpError(err)
	}
	return Render(c, http.StatusOK, views.Page(views.PageData{
		View:     view,
		Variants: h.dashboards.Variants(),
		Path:     path,
	}))
}

// Variants lists the configured dashboards
// @Summary List dashboard variants
// @Tags dashboard
// @Produce json
// @Success 200 {array} dashboard.Variant
// @Router /api/variants [get]
func (h *Handler) Variants(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dashboards.Variants())
}

// Dashboard returns the rendered view for one symbol as JSON
// @Summary Dashboard view
// @Tags dashboard
// @Produce json
// @Param symbol path string true "Ticker symbol"
// @Param period query string false "quarterly or annual"
// @Param variant query string false "Dashboard variant"
// @Success 200 {object} dashboard.View
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/dashboard/{symbol} [get]
func (h *Handler) Dashboard(c echo.Context) error {
	d := h.dashboards.Default()
	if name := c.QueryParam("variant"); name != "" {
		var err error
		if d, err = h.dashboards.Get(name); err != nil {
			return httpError(err)
		}
	}

	view, err := d.Render(c.Request().Context(), c.Param("symbol"), c.QueryParam("period"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// CacheStatus reports the memo store size and the active provider.
func (h *Handler) CacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries":  h.fetchers.Store().Len(),
		"provider": h.fetchers.ProviderName(),
	})
}

// FlushCache empties the memo store. This is an operator action; the cache
// never invalidates itself.
func (h *Handler) FlushCache(c echo.Context) error {
	store := h.fetchers.Store()
	n := store.Len()
	store.Flush()
	h.log.Info().Int("entries", n).Msg("cache flushed")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"flushed": n,
	})
}

// httpError maps pipeline errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, dashboard.ErrUnknownVariant), errors.Is(err, dashboard.ErrUnknownSymbol):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, models.ErrInvalidGranularity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "data source timed out").SetInternal(err)
	default:
		return err
	}
}
