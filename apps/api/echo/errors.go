package echoapi

import (
	"database/sql"
	"database/sql/driver"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	errNoFile  = core.NewValidationError(errors.New("no file received"), core.FieldError{Field: "file", Error: "this field is required"})
	errNoFiles = core.NewValidationError(errors.New("no files received"), core.FieldError{Field: "files", Error: "this field is required"})
)

func badUpload(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "could not read the uploaded file").SetInternal(err)
}

// serviceError wraps an import service error. A lost database connection becomes a shutdown error:
// the server cannot serve imports without it.
func serviceError(err error, msg string) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return errors.Wrap(core.NewShutdownError("database connection lost: "+err.Error()), msg)
	}
	return errors.Wrap(err, msg)
}

func fieldErrorsMap(fields []core.FieldError) map[string]string {
	fldErrs := make(map[string]string, len(fields))
	for _, fErr := range fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = fieldErrorsMap(core.ValidationFieldErrors(origErr, translator))
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = fieldErrorsMap(origErr.Fields)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"path":       ctx.Path(),
				"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
