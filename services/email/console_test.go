package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/tests"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	svc := NewConsoleServiceMock(conf, logger)

	to := []mail.Address{{Address: "jane@test.test"}}
	tests := []struct {
		name     string
		msg      core.EmailMessage
		wantSent bool
		wantText string
		wantHTML bool
		wantURL  bool
	}{
		{
			name: "approved",
			msg: core.EmailMessage{
				To:           to,
				Subject:      "Proof reviewed",
				TemplateName: "submission_reviewed",
				TemplateData: proof.Notice{ParticipantEmail: "jane@test.test", TaskLabel: "Purchase Any Candy", Status: proof.StatusApproved},
			},
			wantSent: true,
			wantText: `Good news! Your proof for "Purchase Any Candy" was approved`,
			wantHTML: true,
			wantURL:  true,
		},
		{
			name: "rejected",
			msg: core.EmailMessage{
				To:           to,
				Subject:      "Proof reviewed",
				TemplateName: "submission_reviewed",
				TemplateData: proof.Notice{TaskLabel: "Purchase Any Candy", Status: proof.StatusRejected},
			},
			wantSent: true,
			wantText: "was not approved",
			wantHTML: true,
			wantURL:  true,
		},
		{
			name:     "plain body",
			msg:      core.EmailMessage{To: to, Subject: "Hi", BodyStr: "hello"},
			wantSent: true,
			wantText: "hello",
		},
		{
			name: "no recipient",
			msg:  core.EmailMessage{Subject: "Hi", BodyStr: "hello"},
		},
		{
			name: "unknown template",
			msg:  core.EmailMessage{To: to, Subject: "Hi", TemplateName: "nope"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.Reset()
			msg := tt.msg
			svc.SendMessages(&msg)

			sent := svc.SentMessages()
			if !tt.wantSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			assert.Contains(t, sent[0].TextContent, tt.wantText)
			if tt.wantURL {
				assert.Contains(t, sent[0].TextContent, conf.FrontendBaseURL)
			} else {
				assert.NotContains(t, sent[0].TextContent, conf.FrontendBaseURL)
			}
			assert.Equal(t, tt.wantHTML, sent[0].HTMLContent != "")
		})
	}
}

func TestConsoleService_format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger())

	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@test.test"}},
		ReplyTo:     &mail.Address{Address: "john@test.test"},
		Subject:     "Support",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Support")
	assert.Contains(t, body, `To: "Jane" <jane@test.test>`)
	assert.Contains(t, body, "Reply-To: <john@test.test>")
	assert.Contains(t, body, "text/html")
	assert.NotContains(t, body, "CC:")
}

func TestConsoleService_noLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	svc := NewConsoleService(conf, logger).(*consoleService)
	svc.disableOutput = true

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "a@test.test"}}, Subject: "a", BodyStr: "a"},
		&core.EmailMessage{To: []mail.Address{{Address: "b@test.test"}}, Subject: "b", BodyStr: "b"},
	)
}
