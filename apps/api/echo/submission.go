package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/proof"
)

// extra room for the other form fields and multipart framing
const uploadOverhead = 512 * 1024

type submissionApi struct {
	conf           *core.Config
	svc            proof.Service
	participantSvc participant.Service
	mailSvc        core.EmailService
	logger         core.Logger
	validate       *validator.Validate
	jwt            middleware.JWTConfig
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, jwtConf middleware.JWTConfig) {
	api := submissionApi{
		conf:           deps.Conf,
		svc:            deps.ProofSvc,
		participantSvc: deps.ParticipantSvc,
		mailSvc:        deps.MailSvc,
		logger:         deps.Logger,
		validate:       deps.Validate,
		jwt:            jwtConf,
	}

	maxBody := api.maxImageBytes() + uploadOverhead
	sg := g.Group("/submissions", jwt)
	sg.POST("", api.create, middleware.BodyLimit(fmt.Sprintf("%dK", maxBody/1024)))
	sg.GET("/mine", api.mine)

	// manager endpoints
	mgr := managerMiddleware(api.participantSvc, jwtConf)
	sg.GET("", api.query, mgr)
	sg.POST("/:id/review", api.review, mgr)
}

func (api *submissionApi) maxImageBytes() int64 {
	if api.conf.Storage.MaxUploadBytes > 0 {
		return api.conf.Storage.MaxUploadBytes
	}
	return proof.DefaultMaxImageBytes
}

// Handlers

func (api *submissionApi) create(ctx echo.Context) error {
	p, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}

	data := proof.NewSubmission{
		ParticipantID: p.ID,
		TaskField:     ctx.FormValue("task_field"),
		Message:       ctx.FormValue("message"),
		ReceiptNumber: ctx.FormValue("receipt_number"),
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if data.Image, err = api.readImage(ctx); err != nil {
		return err
	}

	sub, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}

	api.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: p.Email}},
		Subject:      "We received your proof",
		TemplateName: "submission_received",
		TemplateData: sub,
	})
	return ctx.JSON(http.StatusCreated, sub)
}

// readImage reads the "image" file, refusing more than the configured maximum.
func (api *submissionApi) readImage(ctx echo.Context) ([]byte, error) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "image", Error: "this field is required"})
		}
		return nil, errors.Wrap(err, "reading image")
	}
	maxBytes := api.maxImageBytes()
	if fh.Size > maxBytes {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "image", Error: fmt.Sprintf("image must be at most %d MB", maxBytes/(1024*1024)),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()

	// one byte over the limit is enough for the size check downstream
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	return data, nil
}

func (api *submissionApi) mine(ctx echo.Context) error {
	p, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}
	subs, err := api.svc.ListForParticipant(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

// query lists submissions by status. Only the pending review queue is exposed.
func (api *submissionApi) query(ctx echo.Context) error {
	status := core.CleanString(ctx.QueryParam("status"), true /* lower */)
	if status != "" && proof.Status(status) != proof.StatusPending {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "only pending submissions can be listed"})
	}
	subs, err := api.svc.ListPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) review(ctx echo.Context) error {
	mgr, err := getContextParticipant(ctx, api.participantSvc, api.jwt)
	if err != nil {
		return errors.Wrap(err, "getting context participant")
	}

	var data proof.ReviewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.SubmissionID = ctx.Param("id")
	data.ManagerID = mgr.ID

	reqCtx := ctx.Request().Context()
	sub, err := api.svc.Review(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}

	if notice, err := api.svc.Notice(reqCtx, sub); err != nil {
		api.logger.Warn(fmt.Sprintf("preparing review notice: %v", err), err, mgr)
	} else {
		api.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Address: notice.ParticipantEmail}},
			Subject:      "Your proof was reviewed",
			TemplateName: "submission_reviewed",
			TemplateData: notice,
		})
	}
	return ctx.JSON(http.StatusOK, sub)
}
