package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/reelbingo/promo/apps/api/echo"
)

func Test_supportApi(t *testing.T) {
	e := setup(t)

	tests := []httpTest{
		{
			name: "message required", method: http.MethodPost, path: "/v1/support",
			body:     marchallObj(t, map[string]string{"subject": "hi", "message": "   "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "bad reply email", method: http.MethodPost, path: "/v1/support",
			body:     marchallObj(t, map[string]string{"message": "help", "email": "jane"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "description required", method: http.MethodPost, path: "/v1/bug-report",
			body:     marchallObj(t, map[string]string{"url": "http://localhost:5173/board"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"description": "this field is required"}),
		},
		{
			name: "bad url", method: http.MethodPost, path: "/v1/bug-report",
			body:     marchallObj(t, map[string]string{"description": "board is blank", "url": "board"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"url": "url must be a valid URL"}),
		},
	}
	runHTTPTests(t, e.app, tests)
	assert.Empty(t, e.mailSvc.SentMessages())

	t.Run("support request", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"subject": "Lost card", "message": "I cannot log in", "email": "Jane@Test.test"})
		req, rec := newRequest(http.MethodPost, "/v1/support", body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Your message has been sent. We will get back to you soon."}),
		}, rec)

		sent := e.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, e.conf.SupportEmail, sent[0].To[0].Address)
		assert.Equal(t, "Support Request: Lost card", sent[0].Subject)
		require.NotNil(t, sent[0].ReplyTo)
		assert.Equal(t, "jane@test.test", sent[0].ReplyTo.Address)
		assert.Contains(t, sent[0].TextContent, "I cannot log in")
	})

	t.Run("bug report", func(t *testing.T) {
		e.mailSvc.Reset()
		body := marchallObj(t, map[string]string{"description": "board is blank", "browser_info": "Firefox 131"})
		req, rec := newRequest(http.MethodPost, "/v1/bug-report", body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Thanks! Your report has been sent."}),
		}, rec)

		sent := e.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "Bug Report", sent[0].Subject)
		assert.Nil(t, sent[0].ReplyTo)
		assert.Contains(t, sent[0].TextContent, "Firefox 131")
	})
}
