package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core/support"
)

type supportApi struct {
	svc      *support.Service
	validate *validator.Validate
}

func registerSupportAPI(g *echo.Group, deps ServerDeps) {
	api := supportApi{
		svc:      deps.SupportSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	g.POST("/support", api.support)
	g.POST("/bug-report", api.bugReport)
}

func (api *supportApi) support(ctx echo.Context) error {
	var data support.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to support.Request")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.Send(data); err != nil {
		return errors.Wrap(err, "sending support request")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your message has been sent. We will get back to you soon."})
}

func (api *supportApi) bugReport(ctx echo.Context) error {
	var data support.BugReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to support.BugReport")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.svc.Report(data); err != nil {
		return errors.Wrap(err, "sending bug report")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Thanks! Your report has been sent."})
}

type SuccessResponse struct {
	Success string `json:"success"`
}
