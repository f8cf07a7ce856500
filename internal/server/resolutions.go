package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
	"github.com/Jaden-Nix/swarmverify/internal/store"
)

// Resolver is the slice of the orchestrator the handlers consume.
type Resolver interface {
	Resolve(ctx context.Context, market core.Market) (core.Resolution, error)
	SecondPass(ctx context.Context, market core.Market, first core.Resolution) core.SecondPassResult
}

// ResolutionsHandler exposes the market and resolution endpoints.
type ResolutionsHandler struct {
	Store *store.Store
	Orch  Resolver
}

func (h *ResolutionsHandler) Register(g *echo.Group) {
	g.POST("/markets", h.createMarket)
	g.GET("/markets/due", h.listDue)
	g.GET("/markets/:id/resolutions", h.listByMarket)
	g.POST("/markets/:id/resolve", h.resolve)
	g.POST("/resolve/batch", h.resolveBatch)
	g.GET("/resolutions/:id", h.getResolution)
}

type createMarketRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	ResolutionDate time.Time `json:"resolution_date"`
}

func (h *ResolutionsHandler) createMarket(c echo.Context) error {
	var req createMarketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if req.ResolutionDate.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "resolution_date is required")
	}
	id, err := h.Store.CreateMarket(c.Request().Context(), core.Market{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		ResolutionDate: req.ResolutionDate,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *ResolutionsHandler) listDue(c echo.Context) error {
	markets, err := h.Store.ListDueMarkets(c.Request().Context(), 50)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if markets == nil {
		markets = []core.Market{}
	}
	return c.JSON(http.StatusOK, markets)
}

func (h *ResolutionsHandler) listByMarket(c echo.Context) error {
	list, err := h.Store.ListResolutionsByMarket(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if list == nil {
		list = []core.Resolution{}
	}
	return c.JSON(http.StatusOK, list)
}

// resolveResponse is the full result of one resolution call, including the
// second-pass record when the router selected that path.
type resolveResponse struct {
	Resolution core.Resolution        `json:"resolution"`
	SecondPass *core.SecondPassResult `json:"second_pass,omitempty"`
}

func (h *ResolutionsHandler) resolve(c echo.Context) error {
	resp, err := h.resolveOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "market not found")
		}
		if errors.Is(err, core.ErrProviderUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// resolveOne runs the full flow for a market: resolve, persist, then act on
// the routed path (second-pass evidence record or auto-resolve transition).
func (h *ResolutionsHandler) resolveOne(ctx context.Context, marketID string) (resolveResponse, error) {
	market, err := h.Store.GetMarket(ctx, marketID)
	if err != nil {
		return resolveResponse{}, err
	}
	res, err := h.Orch.Resolve(ctx, market)
	if err != nil {
		return resolveResponse{}, err
	}
	if err := h.Store.SaveResolution(ctx, res); err != nil {
		return resolveResponse{}, err
	}
	out := resolveResponse{Resolution: res}
	switch res.Path {
	case core.PathSecondPass:
		sp := h.Orch.SecondPass(ctx, market, res)
		if err := h.Store.SaveSecondPass(ctx, res.ID, sp); err != nil {
			return resolveResponse{}, err
		}
		out.SecondPass = &sp
	case core.PathAutoResolve:
		if err := h.Store.MarkMarketResolved(ctx, market.ID, res.Outcome); err != nil {
			return resolveResponse{}, err
		}
	}
	return out, nil
}

type batchRequest struct {
	MarketIDs []string `json:"market_ids"`
}

// batchItem is one market's outcome in a batch run. Failures are recorded in
// place; they never abort the remaining markets.
type batchItem struct {
	MarketID   string              `json:"market_id"`
	Status     string              `json:"status"`
	Outcome    core.Outcome        `json:"outcome,omitempty"`
	Confidence int                 `json:"confidence,omitempty"`
	Path       core.ResolutionPath `json:"path,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func (h *ResolutionsHandler) resolveBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.MarketIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "market_ids is required")
	}

	ctx := c.Request().Context()
	items := make([]batchItem, 0, len(req.MarketIDs))
	for _, id := range req.MarketIDs {
		resp, err := h.resolveOne(ctx, id)
		if err != nil {
			items = append(items, batchItem{MarketID: id, Status: "failed", Error: err.Error()})
			continue
		}
		items = append(items, batchItem{
			MarketID:   id,
			Status:     "success",
			Outcome:    resp.Resolution.Outcome,
			Confidence: resp.Resolution.Confidence,
			Path:       resp.Resolution.Path,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": items})
}

func (h *ResolutionsHandler) getResolution(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.Store.GetResolution(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "resolution not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := resolveResponse{Resolution: res}
	if sp, err := h.Store.GetSecondPass(ctx, res.ID); err == nil {
		out.SecondPass = &sp
	}
	return c.JSON(http.StatusOK, out)
}
