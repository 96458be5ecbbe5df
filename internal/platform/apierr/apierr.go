// Package apierr defines the request-facing error taxonomy and renders it as
// JSON through echo's error handler.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ValidationError reports missing or malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("El campo '%s' %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("El campo '%s' es requerido", e.Field)
}

// Required builds the ValidationError for a missing field.
func Required(field string) error {
	return &ValidationError{Field: field}
}

// Invalid builds the ValidationError for a malformed field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing or inactive entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

// feminine entity names take the "encontrada" form.
var feminine = map[string]bool{
	"Emergencia":   true,
	"Notificación": true,
}

func (e *NotFoundError) Error() string {
	if feminine[e.Entity] {
		return fmt.Sprintf("%s no encontrada", e.Entity)
	}
	return fmt.Sprintf("%s no encontrado", e.Entity)
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ForbiddenTransitionError reports a role that may not move an emergency to Target.
type ForbiddenTransitionError struct {
	Role   string
	Target string
}

func (e *ForbiddenTransitionError) Error() string {
	return "No tiene permisos para realizar este cambio de estado"
}

// ForbiddenError reports a caller outside the scope of the resource.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func Forbidden(msg string) error {
	return &ForbiddenError{Message: msg}
}

// InvalidStateError reports an unrecognised emergency state value.
type InvalidStateError struct {
	Value string
}

func (e *InvalidStateError) Error() string {
	return "Estado no válido"
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		ft *ForbiddenTransitionError
		fb *ForbiddenError
		is *InvalidStateError
		he *echo.HTTPError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &is):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ft), errors.As(err, &fb):
		return http.StatusForbidden
	case errors.As(err, &he):
		return he.Code
	}
	return http.StatusInternalServerError
}

// Response is the error body written to clients.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HTTPErrorHandler replaces echo's default handler. Domain errors keep their
// message, unclassified errors are logged and hidden behind a generic one.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := Status(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprintf("%v", he.Message)
		}
		if code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			if he == nil {
				msg = "Error interno del servidor"
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, Response{Status: "error", Error: msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
