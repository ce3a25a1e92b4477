package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/tests"
)

func Test_submissionApi_create(t *testing.T) {
	e := setup(t)
	p := e.createParticipant(t, "jane@test.test")
	token := e.getToken(t, p)
	img := testutil.PNG(t)

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		image    []byte
		wantCode int
		wantData []byte
	}{
		{
			name: "auth required", fields: map[string]string{"task_field": "square_1"}, image: img,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "task required", token: token, image: img,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"task_field": "this field is required"}),
		},
		{
			name: "unknown task", token: token, fields: map[string]string{"task_field": "square_0"}, image: img,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"task_field": `unknown challenge "square_0"`}),
		},
		{
			name: "image required", token: token, fields: map[string]string{"task_field": "square_1"},
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"image": "this field is required"}),
		},
		{
			name: "not an image", token: token, fields: map[string]string{"task_field": "square_1"}, image: []byte("hello, world"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"image": "unsupported image type text/plain; charset=utf-8; use JPEG, PNG or WebP"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, "/v1/submissions", tt.token, tt.fields, tt.image)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
	assert.Equal(t, 0, e.blobs.Len())
	assert.Empty(t, e.mailSvc.SentMessages())

	t.Run("ok", func(t *testing.T) {
		fields := map[string]string{"task_field": "square_5", "message": " two scoops ", "receipt_number": "R-42"}
		req, rec := newUploadRequest(t, "/v1/submissions", token, fields, img)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var sub proof.Submission
		unmarshall(t, rec, &sub)
		assert.Equal(t, p.ID, sub.ParticipantID)
		assert.Equal(t, board.Square5, sub.TaskField)
		assert.Equal(t, "Purchase Any Ice Cream", sub.TaskLabel)
		assert.Equal(t, "two scoops", sub.Message.String)
		assert.Equal(t, "R-42", sub.ReceiptNumber.String)
		assert.Equal(t, proof.StatusPending, sub.Status)
		assert.Contains(t, sub.ImageURL, e.conf.Storage.PublicBaseURL+"/"+e.conf.Storage.ProofPathPrefix+"/"+p.ID+"/")
		assert.Equal(t, 1, e.blobs.Len())

		sent := e.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "jane@test.test", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Purchase Any Ice Cream")
	})

	t.Run("duplicate", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/submissions", token, map[string]string{"task_field": "square_5"}, img)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "a submission for this task is already pending review"}),
		}, rec)
		assert.Equal(t, 1, e.blobs.Len())
	})
}

func Test_submissionApi_mine(t *testing.T) {
	e := setup(t)
	jane := e.createParticipant(t, "jane@test.test")
	john := e.createParticipant(t, "john@test.test")
	sub := e.submit(t, jane, "square_1")
	e.submit(t, john, "square_1")

	tests := []httpTest{
		{name: "auth required", path: "/v1/submissions/mine", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own only", path: "/v1/submissions/mine", token: e.getToken(t, jane), wantCode: http.StatusOK, wantData: marchallObj(t, []proof.Submission{sub})},
	}
	runHTTPTests(t, e.app, tests)
}

func Test_submissionApi_query(t *testing.T) {
	e := setup(t)
	jane := e.createParticipant(t, "jane@test.test")
	john := e.createParticipant(t, "john@test.test")
	mgr := e.createManager(t, "mgr@test.test")
	mgrToken := e.getToken(t, mgr)

	first := e.submit(t, jane, "square_1")
	rejected := e.submit(t, john, "square_2")
	last := e.submit(t, john, "square_3")
	_, err := e.proofSvc.Review(context.Background(), proof.ReviewRequest{SubmissionID: rejected.ID, ManagerID: mgr.ID, Decision: proof.StatusRejected})
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "manager required", path: "/v1/submissions?status=pending", token: e.getToken(t, jane),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "bad status", path: "/v1/submissions?status=approved", token: mgrToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "only pending submissions can be listed"}),
		},
	}
	runHTTPTests(t, e.app, tests)

	t.Run("pending, oldest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/submissions?status=pending", mgrToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var subs []proof.Submission
		unmarshall(t, rec, &subs)
		require.Len(t, subs, 2)
		assert.Equal(t, first.ID, subs[0].ID)
		assert.Equal(t, last.ID, subs[1].ID)
	})
}

func Test_submissionApi_review(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.createParticipant(t, "jane@test.test")
	mgr := e.createManager(t, "mgr@test.test")
	mgrToken := e.getToken(t, mgr)

	first := e.submit(t, p, "square_1")
	second := e.submit(t, p, "square_2")
	third := e.submit(t, p, "square_3")
	reviewPath := func(id string) string { return "/v1/submissions/" + id + "/review" }
	approve := marchallObj(t, map[string]interface{}{"decision": "approved"})

	tests := []httpTest{
		{
			name: "manager required", method: http.MethodPost, path: reviewPath(first.ID), body: approve, token: e.getToken(t, p),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "bad decision", method: http.MethodPost, path: reviewPath(first.ID), token: mgrToken,
			body:     marchallObj(t, map[string]interface{}{"decision": "maybe"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"decision": "decision must be one of [approved rejected]"}),
		},
		{
			name: "unknown submission", method: http.MethodPost, path: reviewPath("nope"), body: approve, token: mgrToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "submission not found"}),
		},
	}
	runHTTPTests(t, e.app, tests)

	t.Run("approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, reviewPath(first.ID), mgrToken, approve)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sub proof.Submission
		unmarshall(t, rec, &sub)
		assert.Equal(t, proof.StatusApproved, sub.Status)
		assert.Equal(t, mgr.ID, sub.ReviewedBy.String)
		assert.False(t, e.blobs.Has(first.ImagePath))

		prog, err := e.progressSvc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, prog.Squares.Checked(board.Square1))

		sent := e.mailSvc.SentMessages()
		require.NotEmpty(t, sent)
		assert.Equal(t, "jane@test.test", sent[len(sent)-1].To[0].Address)
		assert.Contains(t, sent[len(sent)-1].TextContent, "was approved")
	})

	t.Run("already reviewed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, reviewPath(first.ID), mgrToken, approve)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "submission has already been approved"}),
		}, rec)
	})

	t.Run("one tile per visit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, reviewPath(second.ID), mgrToken, approve)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: `Limit 1 tile per visit. Tap "Start Next Visit" once the guest returns.`}),
		}, rec)

		sub, err := e.proofSvc.Get(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, proof.StatusPending, sub.Status)
	})

	t.Run("next visit", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"decision": "approved", "next_visit": true})
		req, rec := newAuthRequest(http.MethodPost, reviewPath(second.ID), mgrToken, body)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("reject is never throttled", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"decision": "rejected"})
		req, rec := newAuthRequest(http.MethodPost, reviewPath(third.ID), mgrToken, body)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		sent := e.mailSvc.SentMessages()
		assert.Contains(t, sent[len(sent)-1].TextContent, "was not approved")
	})
}
