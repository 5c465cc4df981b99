package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	echoapi "github.com/funnelseye/backoffice/apps/api/echo"
	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
	"github.com/funnelseye/backoffice/core/settlement"
	emailsvc "github.com/funnelseye/backoffice/services/email"
	gatewaysvc "github.com/funnelseye/backoffice/services/gateway"
	dummydb "github.com/funnelseye/backoffice/storage/database/dummy"
	testutil "github.com/funnelseye/backoffice/tests"
)

type fixture struct {
	conf      *core.Config
	app       echoapi.Server
	coachRepo coach.Repository
	payments  interface{ AddPayment(ledger.Payment) }
	stlRepo   settlement.Repository
}

func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	coachRepo := dummydb.NewCoachRepository(db)
	payRepo := dummydb.NewPaymentRepository(db)
	stlRepo := dummydb.NewSettlementRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	gw := gatewaysvc.NewConsoleGateway(logger)
	reader := ledger.NewReader(payRepo, logger)
	stlSvc := settlement.NewService(stlRepo, coachRepo, reader, gw, mailSvc, logger, validate, conf)
	coachSvc := coach.NewService(coachRepo)

	// set up server
	app := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			SettlementSvc: stlSvc,
			CoachSvc:      coachSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	return &fixture{
		conf:      conf,
		app:       app,
		coachRepo: coachRepo,
		payments:  payRepo,
		stlRepo:   stlRepo,
	}
}

func itoa(id int) string {
	return strconv.Itoa(id)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
