package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
)

var (
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := resolveError(err, translator)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg))
			if ctx.Echo().Debug {
				message = err.Error()
			}
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

func resolveError(err error, translator ut.Translator) (int, interface{}) {
	// clients get the domain message, not the handler's wrapping
	for _, sentinel := range []error{session.ErrInvalidCredentials, session.ErrWrongPassword, session.ErrInvalidResetLink} {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, sentinel.Error()
		}
	}
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, session.ErrNotAuthenticated.Error()
	case errors.Is(err, user.ErrEmailExists):
		return http.StatusBadRequest, map[string]string{"email": user.ErrEmailExists.Error()}
	}

	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
