package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/internal/service/ratelimit"
	"MarketOverlay/internal/usecase"
	xhttp "MarketOverlay/pkg/http"
	xlogger "MarketOverlay/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Forward-test starts per symbol: a small burst, then one per startRefill.
const (
	startBurst  = 3
	startRefill = 10 * time.Second
)

// ChartEchoHandler serves chart settings, overlays, forward-test controls and
// trade plans.
type ChartEchoHandler struct {
	logger   *xlogger.Logger
	settings *usecase.SettingsStore
	overlay  *usecase.OverlayService
	hub      *usecase.ChartHub
	forward  *usecase.ForwardTestService
	plans    *usecase.TradePlanService
	starts   *ratelimit.Limiter
}

func NewChartEchoHandler(logger *xlogger.Logger, settings *usecase.SettingsStore, overlay *usecase.OverlayService,
	hub *usecase.ChartHub, forward *usecase.ForwardTestService, plans *usecase.TradePlanService) *ChartEchoHandler {
	return &ChartEchoHandler{
		logger:   logger,
		settings: settings,
		overlay:  overlay,
		hub:      hub,
		forward:  forward,
		plans:    plans,
		starts:   ratelimit.New(startBurst, startRefill),
	}
}

func (h *ChartEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	g.GET("/chart/settings", h.GetSettings)
	g.PATCH("/chart/settings", h.PatchSettings)
	g.GET("/chart/overlay", h.Overlay)
	g.GET("/chart/instances", h.Instances)
	g.DELETE("/chart/instances/:id", h.Unmount)

	g.POST("/forward-test/start", h.StartForwardTest)
	g.GET("/forward-test/run", h.ForwardTestRun)
	g.DELETE("/forward-test/run", h.ClearForwardTestRun)
	g.GET("/forward-test/status", h.ForwardTestStatus)
	g.GET("/forward-test/trades", h.ForwardTestTrades)

	g.GET("/trade-plan", h.TradePlan)
}

func (h *ChartEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":    "ok",
		"instances": len(h.hub.List()),
	})
}

func (h *ChartEchoHandler) GetSettings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.settings.Read(c.Request().Context()))
}

func (h *ChartEchoHandler) PatchSettings(c echo.Context) error {
	patch := &models.ChartSettingsPatch{}
	if verr := xhttp.ReadAndValidateRequest(c, patch); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if patch.IsEmpty() {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("patch must set at least one toggle"))
	}
	return xhttp.SuccessResponse(c, h.settings.Update(c.Request().Context(), *patch))
}

func (h *ChartEchoHandler) Overlay(c echo.Context) error {
	req := &models.OverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := string(drepo.NormalizeTimeframe(req.TF))

	res, err := h.overlay.Overlay(c.Request().Context(), req.Symbol, tf)
	if err != nil {
		return h.upstream(c, "overlay", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartEchoHandler) Instances(c echo.Context) error {
	list := h.hub.List()
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *ChartEchoHandler) Unmount(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.hub.Get(id); !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("chart instance not found").WithParam("id", id))
	}
	h.hub.Unmount(id)
	return xhttp.NoContentResponse(c)
}

func (h *ChartEchoHandler) StartForwardTest(c echo.Context) error {
	req := &models.ForwardTestStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.starts.Allow(req.Symbol) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "symbol",
			"forward test started too often for "+req.Symbol, http.StatusTooManyRequests))
	}
	run, err := h.forward.Start(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.upstream(c, "forward test start", err)
	}
	return xhttp.CreatedResponse(c, run)
}

func (h *ChartEchoHandler) ForwardTestRun(c echo.Context) error {
	id, err := h.forward.RunID(c.Request().Context())
	if err != nil {
		return h.forwardTestError(c, "forward test run", err)
	}
	return xhttp.SuccessResponse(c, map[string]int64{"test_run_id": id})
}

func (h *ChartEchoHandler) ClearForwardTestRun(c echo.Context) error {
	if err := h.forward.Clear(c.Request().Context()); err != nil {
		h.logger.Error("forward test clear error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not clear forward test run").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *ChartEchoHandler) ForwardTestStatus(c echo.Context) error {
	st, err := h.forward.Status(c.Request().Context())
	if err != nil {
		return h.forwardTestError(c, "forward test status", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *ChartEchoHandler) ForwardTestTrades(c echo.Context) error {
	trades, err := h.forward.Trades(c.Request().Context())
	if err != nil {
		return h.forwardTestError(c, "forward test trades", err)
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

func (h *ChartEchoHandler) TradePlan(c echo.Context) error {
	req := &models.TradePlanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	plan, err := h.plans.Plan(c.Request().Context(), req.Symbol, req.ValidCandles)
	if err != nil {
		return h.upstream(c, "trade plan", err)
	}
	if plan == nil {
		plan = &models.TradePlan{Side: models.SideNone, ValidCandles: req.ValidCandles}
	}
	return xhttp.SuccessResponse(c, plan)
}

func (h *ChartEchoHandler) forwardTestError(c echo.Context, op string, err error) error {
	if errors.Is(err, usecase.ErrNoForwardTestRun) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no forward test run"))
	}
	return h.upstream(c, op, err)
}

// upstream maps a backend failure to 502. A request abandoned by the client
// is logged at debug only.
func (h *ChartEchoHandler) upstream(c echo.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		h.logger.Debug(op+" aborted", xlogger.Error(err))
	} else {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()).WithError(err))
}

var _ xhttp.Handler = (*ChartEchoHandler)(nil)
