package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
	"github.com/labstack/echo/v4"
)

func createSupplierHandler(svc *suppliers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var fields model.Fields
		if err := decodeBody(c.Request().Body, &fields); err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return he
			}
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		rec, err := svc.Create(c.Request().Context(), fields)
		if err != nil {
			return writeServiceError(c, "create", err)
		}

		return c.JSON(http.StatusCreated, map[string]any{"data": rec})
	}
}

func getSupplierHandler(svc *suppliers.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rec, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeServiceError(c, "get", err)
		}
		return c.JSON(http.StatusOK, map[string]any{"data": rec})
	}
}
