package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/domain/conversation"
)

// clearCache empties every cache tier; used after upstream agent-knowledge
// updates so stale replies stop being served.
func (s *Server) clearCache(c echo.Context) error {
	s.cache.ClearAll()
	if s.logger != nil {
		s.logger.WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Info("admin cleared all cache tiers")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// pruneCache applies the memory-pressure valve on demand.
func (s *Server) pruneCache(c echo.Context) error {
	removed := s.cache.Prune()
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "pruned", "removed": removed})
}

// stats exposes cache and pool statistics for dashboards.
func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cache": s.cache.Stats(),
		"pool":  s.pool.Stats(),
	})
}

// usageLogs lists recent per-turn usage records.
func (s *Server) usageLogs(c echo.Context) error {
	filter := &conversation.UsageFilter{
		SessionID: c.QueryParam("session_id"),
		Kind:      conversation.TurnKind(c.QueryParam("kind")),
		Limit:     50,
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if v := c.QueryParam("since"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = ts
		}
	}

	records, err := s.usage.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list usage records")
	}
	if records == nil {
		records = []*conversation.UsageRecord{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"records": records})
}
