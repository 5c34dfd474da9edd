package http

import (
	"net/http"
	"strconv"

	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/repository"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func supplierHistoryHandler(history repository.HistoryRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if history == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history not configured"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		entries, err := history.ListBySupplier(c.Request().Context(), c.Param("id"), limit, offset)
		if err != nil {
			logger.Log.Error("clickhouse history list failed", zap.String("supplier_id", c.Param("id")), zap.Error(err))

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(entries),
			"results": entries,
		})
	}
}
