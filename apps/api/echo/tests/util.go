package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/reelbingo/promo/apps/api/echo"
	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/progress"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/core/support"
	"github.com/reelbingo/promo/services/blob"
	"github.com/reelbingo/promo/services/email"
	"github.com/reelbingo/promo/storage/database/inmem"
	"github.com/reelbingo/promo/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app         Server
	conf        *core.Config
	db          *inmemdb.DB
	partRepo    participant.Repository
	progRepo    progress.Repository
	progressSvc progress.Service
	proofSvc    proof.Service
	blobs       *blobsvc.MemoryStore
	mailSvc     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) env {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	participant.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	// set up DB & repos
	db := inmemdb.Open()
	partRepo := inmemdb.NewParticipantRepository(db)
	progRepo := inmemdb.NewProgressRepository(db)

	// set up services
	blobs := blobsvc.NewMemoryStore(conf.Storage.PublicBaseURL)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	partSvc := participant.NewService(db, partRepo, progRepo)
	progSvc := progress.NewService(db, progRepo, partSvc, logger)
	proofSvc := proof.NewService(
		db, inmemdb.NewSubmissionRepository(db), blobs, progSvc, partSvc, partSvc, logger,
		proof.Options{MaxImageBytes: conf.Storage.MaxUploadBytes, PathPrefix: conf.Storage.ProofPathPrefix},
	)

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		ParticipantSvc: partSvc,
		ProgressSvc:    progSvc,
		ProofSvc:       proofSvc,
		SupportSvc:     support.NewService(conf, mailSvc),
		MailSvc:        mailSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return env{
		app:         app,
		conf:        conf,
		db:          db,
		partRepo:    partRepo,
		progRepo:    progRepo,
		progressSvc: progSvc,
		proofSvc:    proofSvc,
		blobs:       blobs,
		mailSvc:     mailSvc,
	}
}

func (e env) createParticipant(t *testing.T, email string) participant.Participant {
	return testutil.CreateParticipant(t, e.partRepo, e.progRepo, email, "Passw0rd!")
}

func (e env) createManager(t *testing.T, email string) participant.Participant {
	return testutil.CreateManager(t, e.partRepo, email, "Passw0rd!")
}

func (e env) getToken(t *testing.T, p participant.Participant) string {
	token, err := GenerateToken(e.conf, GetParticipantClaims(e.conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// submit stores a pending submission directly through the service.
func (e env) submit(t *testing.T, p participant.Participant, task string) proof.Submission {
	sub, err := e.proofSvc.Create(context.Background(), proof.NewSubmission{ParticipantID: p.ID, TaskField: task, Image: testutil.PNG(t)})
	if err != nil {
		t.Fatalf("submit() failed: %v", err)
	}
	return sub
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request; image is skipped when nil.
func newUploadRequest(t *testing.T, path, token string, fields map[string]string, image []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "proof.png")
		if err != nil {
			t.Fatalf("newUploadRequest() failed: %v", err)
		}
		_, _ = fw.Write(image)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
