package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
)

type consoleService struct {
	from          mail.Address
	subjPrefix    string
	logger        core.Logger
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints messages to the std logger instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

// sendMessage reports whether the message was rendered and output.
func (svc *consoleService) sendMessage(msg *core.EmailMessage) bool {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), errors.Wrap(err, "rendering email"))
		return false
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return false
	}
	body, err := svc.format(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("formatting email: %v", err), err)
		return false
	}
	if !svc.disableOutput {
		log.Println(body)
	}
	return true
}

func (svc *consoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}
	if msg.ReplyTo != nil {
		_, _ = fmt.Fprintf(body, "Reply-To: %s\r\n", msg.ReplyTo.String())
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock sends synchronously and keeps what it sent.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
}

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			from:          conf.DefaultFromEmail(),
			subjPrefix:    "[" + conf.AppName + "] ",
			logger:        logger,
			disableOutput: true,
		},
	}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		if svc.sendMessage(msg) {
			svc.mu.Lock()
			svc.sent = append(svc.sent, *msg)
			svc.mu.Unlock()
		}
	}
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
}
