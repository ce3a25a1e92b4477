// Package support forwards help requests and bug reports to the support inbox.
package support

import (
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
)

var nowFunc = time.Now // mockable

var errNoInbox = errors.New("support inbox is not configured")

type (
	Request struct {
		Subject string `json:"subject" validate:"max=200"`
		Message string `json:"message" validate:"required,notblank,max=5000"`
		Email   string `json:"email" validate:"omitempty,email"`
	}

	BugReport struct {
		Description string `json:"description" validate:"required,notblank,max=5000"`
		Email       string `json:"email" validate:"omitempty,email"`
		BrowserInfo string `json:"browser_info" validate:"max=500"`
		URL         string `json:"url" validate:"omitempty,url,max=2000"`
	}

	// templateData is what the email templates see: the request plus when it was received.
	templateData struct {
		Subject     string
		Message     string
		Description string
		Email       string
		BrowserInfo string
		URL         string
		Timestamp   string
	}

	Service struct {
		inbox   string
		mailSvc core.EmailService
	}
)

func (r *Request) Validate(validate *validator.Validate) error {
	r.Subject = core.CleanString(r.Subject)
	r.Message = core.CleanString(r.Message)
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (br *BugReport) Validate(validate *validator.Validate) error {
	br.Description = core.CleanString(br.Description)
	br.Email = core.CleanString(br.Email, true /* lower */)
	br.BrowserInfo = core.CleanString(br.BrowserInfo)
	br.URL = core.CleanString(br.URL)
	return validate.Struct(br)
}

func NewService(conf *core.Config, mailSvc core.EmailService) *Service {
	return &Service{inbox: conf.SupportEmail, mailSvc: mailSvc}
}

// Send forwards a validated support request.
func (svc *Service) Send(r Request) error {
	subject := "Support Request"
	if r.Subject != "" {
		subject += ": " + r.Subject
	}
	return svc.send(subject, "support_request", r.Email, templateData{
		Subject: r.Subject,
		Message: r.Message,
		Email:   r.Email,
	})
}

// Report forwards a validated bug report.
func (svc *Service) Report(br BugReport) error {
	return svc.send("Bug Report", "bug_report", br.Email, templateData{
		Description: br.Description,
		Email:       br.Email,
		BrowserInfo: br.BrowserInfo,
		URL:         br.URL,
	})
}

func (svc *Service) send(subject, tmpl, replyTo string, data templateData) error {
	if svc.inbox == "" {
		return core.NewDependencyError("sending support email", errNoInbox)
	}
	data.Timestamp = nowFunc().UTC().Format(time.RFC3339)
	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: svc.inbox}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	}
	if replyTo != "" {
		msg.ReplyTo = &mail.Address{Address: replyTo}
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}
