package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"socialrelay/internal/model"
)

// ErrorHandler is the one place errors become responses. Bodies are
// {"error": msg}, except the upload checks which keep {"message": msg}.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, key, msg := classify(err)

		attrs := []any{
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path", c.Path(),
			"status", status,
			"error", err.Error(),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request error", attrs...)
		} else {
			logger.Debug("request error", attrs...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, map[string]string{key: msg})
		}
		if err != nil {
			logger.Error("write error response", "error", err.Error())
		}
	}
}

func classify(err error) (status int, key, msg string) {
	var (
		ue *model.UpstreamError
		he *echo.HTTPError
	)
	switch {
	case errors.Is(err, model.ErrMissingParams),
		errors.Is(err, model.ErrMissingText),
		errors.Is(err, model.ErrMissingReplies):
		return http.StatusBadRequest, "error", rootMessage(err)
	case errors.Is(err, model.ErrBearerMissing),
		errors.Is(err, model.ErrNotAuthenticated):
		return http.StatusUnauthorized, "error", rootMessage(err)
	case errors.Is(err, model.ErrNoSelectedFile),
		errors.Is(err, model.ErrFileNotAllowed):
		return http.StatusBadRequest, "message", rootMessage(err)
	case errors.As(err, &ue):
		status = ue.Status
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		return status, "error", ue.Error()
	case errors.As(err, &he):
		return he.Code, "error", fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, "error", err.Error()
	}
}

// rootMessage drops wrapping context so the caller sees the sentinel text.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		model.ErrMissingParams, model.ErrMissingText, model.ErrMissingReplies,
		model.ErrBearerMissing, model.ErrNotAuthenticated,
		model.ErrNoSelectedFile, model.ErrFileNotAllowed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
