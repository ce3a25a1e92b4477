package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core/participant"
)

// managerMiddleware lets managers through. The role is read from the store, not the token.
func managerMiddleware(svc participant.Service, jwtConf middleware.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextParticipant(ctx, svc, jwtConf)
			if err != nil {
				return errors.Wrap(err, "getting context participant")
			}
			if !p.IsManager {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// selfOrManagerMiddleware lets through the participant named by the :participantId param and managers.
func selfOrManagerMiddleware(svc participant.Service, jwtConf middleware.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextParticipant(ctx, svc, jwtConf)
			if err != nil {
				return errors.Wrap(err, "getting context participant")
			}
			if p.ID != ctx.Param("participantId") && !p.IsManager {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}
