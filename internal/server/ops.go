package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jaden-Nix/swarmverify/internal/resolver/telemetry"
)

// OpsHandler exposes operational endpoints. Caller applies authentication.
type OpsHandler struct {
	Telemetry *telemetry.Telemetry
}

func (h *OpsHandler) Register(g *echo.Group) {
	g.GET("/summary", h.summary)
}

// summary returns the in-process aggregate counters since start. Prometheus
// scraping stays on /metrics; this is the human-readable view.
func (h *OpsHandler) summary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Telemetry.GetMetrics())
}
