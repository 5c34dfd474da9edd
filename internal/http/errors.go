package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorHandler keeps the {"error": ...} body for router-level failures
// (unknown route, wrong method, body too large).
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, map[string]string{"error": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

// writeServiceError renders a supplier service failure with its status.
func writeServiceError(c echo.Context, op string, err error) error {
	var se *suppliers.Error
	if !errors.As(err, &se) {
		se = &suppliers.Error{Kind: suppliers.KindInternal, Message: err.Error(), Err: err}
	}
	if se.Kind == suppliers.KindInternal || se.Kind == suppliers.KindUnavailable {
		logger.Log.Error("supplier "+op+" failed",
			zap.String("kind", se.Kind.String()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}
	return c.JSON(se.Kind.Status(), map[string]string{"error": se.Message})
}
