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
	"github.com/reelbingo/promo/core/proof"
)

type participantApi struct {
	conf       *core.Config
	svc        participant.Service
	proofSvc   proof.Service
	validate   *validator.Validate
	translator ut.Translator
	jwt        middleware.JWTConfig
}

func registerParticipantAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, jwtConf middleware.JWTConfig) {
	api := participantApi{
		conf:       deps.Conf,
		svc:        deps.ParticipantSvc,
		proofSvc:   deps.ProofSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
		jwt:        jwtConf,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	// manager endpoints
	pg := g.Group("/participants", jwt, managerMiddleware(api.svc, jwtConf))
	pg.GET("", api.findByEmail)
	pg.GET("/:participantId/submissions", api.submissions)
}

// Handlers

func (api *participantApi) signup(ctx echo.Context) error {
	var data participant.NewParticipant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParticipant")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	token, err := GenerateToken(api.conf, GetParticipantClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, Participant: &p})
}

func (api *participantApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetParticipantClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Participant: &p})
}

func (api *participantApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *participantApi) findByEmail(ctx echo.Context) error {
	var query SearchRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to SearchRequest")
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.FindByEmail(ctx.Request().Context(), query.Email)
	if err != nil {
		return errors.Wrap(err, "finding participant by email")
	}
	return ctx.JSON(http.StatusOK, p.Summary())
}

func (api *participantApi) submissions(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetByID(reqCtx, ctx.Param("participantId")); err != nil {
		return errors.Wrap(err, "finding participant by ID")
	}
	subs, err := api.proofSvc.ListForParticipant(reqCtx, ctx.Param("participantId"))
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token       string                   `json:"token"`
		Participant *participant.Participant `json:"participant,omitempty"`
	}

	SearchRequest struct {
		Email string `query:"email" json:"email" validate:"required,email"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (sr *SearchRequest) Validate(validate *validator.Validate) error {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}
