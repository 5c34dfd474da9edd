package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
	"github.com/labstack/echo/v4"
)

type updateReq struct {
	ID      string       `json:"id"`
	Updates model.Fields `json:"updates"`
}

// updateSupplierHandler merges {updates} into the supplier {id}.
// A body that does not decode is an unexpected failure (500).
func updateSupplierHandler(svc *suppliers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateReq
		if err := decodeBody(c.Request().Body, &req); err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			return writeServiceError(c, "update", err)
		}

		rec, err := svc.Update(c.Request().Context(), req.ID, req.Updates)
		if err != nil {
			return writeServiceError(c, "update", err)
		}

		return c.JSON(http.StatusOK, map[string]any{"data": rec})
	}
}
