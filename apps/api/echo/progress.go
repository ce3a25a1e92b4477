package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/progress"
)

type progressApi struct {
	svc            progress.Service
	participantSvc participant.Service
	validate       *validator.Validate
	jwt            middleware.JWTConfig
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, jwtConf middleware.JWTConfig) {
	api := progressApi{
		svc:            deps.ProgressSvc,
		participantSvc: deps.ParticipantSvc,
		validate:       deps.Validate,
		jwt:            jwtConf,
	}
	mgr := managerMiddleware(api.participantSvc, jwtConf)

	g.GET("/board", api.myBoard, jwt)

	pg := g.Group("/progress/:participantId", jwt, selfOrManagerMiddleware(api.participantSvc, jwtConf))
	pg.GET("", api.retrieve)
	pg.GET("/board", api.board)
	pg.POST("/toggle", api.toggle, mgr)
	pg.GET("/lock", api.lock, mgr)
	pg.POST("/release-lock", api.releaseLock, mgr)

	g.GET("/progress-log/:participantId", api.logs, jwt, mgr)
}

// intQueryParam parses an optional integer query parameter; missing means 0.
func intQueryParam(ctx echo.Context, name string) (int, error) {
	raw := core.CleanString(ctx.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}

// Handlers

func (api *progressApi) myBoard(ctx echo.Context) error {
	p, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}
	return api.renderBoard(ctx, p.ID, false)
}

func (api *progressApi) board(ctx echo.Context) error {
	viewer, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}
	// managers also see when each tile was last checked
	return api.renderBoard(ctx, ctx.Param("participantId"), viewer.IsManager)
}

func (api *progressApi) renderBoard(ctx echo.Context, participantID string, withHistory bool) error {
	columns, err := intQueryParam(ctx, "columns")
	if err != nil {
		return err
	}
	b, err := api.svc.Board(ctx.Request().Context(), participantID, columns, withHistory)
	if err != nil {
		return errors.Wrap(err, "building board")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.Get(ctx.Request().Context(), ctx.Param("participantId"))
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) toggle(ctx echo.Context) error {
	mgr, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}

	var data progress.ToggleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ToggleRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.ParticipantID = ctx.Param("participantId")
	data.ManagerID = mgr.ID

	prog, err := api.svc.Toggle(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "toggling square")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *progressApi) lock(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.Get(reqCtx, ctx.Param("participantId")); err != nil {
		return errors.Wrap(err, "getting progress")
	}
	lock, err := api.svc.Lock(reqCtx, ctx.Param("participantId"))
	if err != nil {
		return errors.Wrap(err, "getting lock")
	}
	return ctx.JSON(http.StatusOK, lock)
}

func (api *progressApi) releaseLock(ctx echo.Context) error {
	mgr, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}
	lock, err := api.svc.ReleaseLock(ctx.Request().Context(), ctx.Param("participantId"), mgr.ID)
	if err != nil {
		return errors.Wrap(err, "releasing lock")
	}
	return ctx.JSON(http.StatusOK, lock)
}

func (api *progressApi) logs(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if _, err = api.svc.Get(reqCtx, ctx.Param("participantId")); err != nil {
		return errors.Wrap(err, "getting progress")
	}
	logs, err := api.svc.Logs(reqCtx, ctx.Param("participantId"), limit)
	if err != nil {
		return errors.Wrap(err, "querying logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}
