package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "participant not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	jwtConf middleware.JWTConfig,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateFieldErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError, *core.InvalidStateError, *core.ThrottleError:
			code = http.StatusConflict
			message = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
		case *core.AuthorizationError:
			code = http.StatusForbidden
			message = origErr.Error()
		case *core.DependencyError:
			code = http.StatusServiceUnavailable
			message = "service temporarily unavailable, please retry"
			logger.Warn(origErr.Error(), err, contextParticipant(ctx, jwtConf))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextParticipant(ctx, jwtConf))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
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

// contextParticipant is the acting participant as far as the token tells, for error reports.
func contextParticipant(ctx echo.Context, jwtConf middleware.JWTConfig) participant.Participant {
	var p participant.Participant
	if claims, err := getContextClaims(ctx, jwtConf); err == nil {
		p.ID = claims.Subject
		p.Email = claims.Email
		p.IsManager = claims.IsManager
	}
	return p
}
