package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/cohort"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	customerrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/forecast"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ingest"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	ledgerrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/repository"
	ledgerservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	organizationrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/repository"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	snapshotrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/repository"
	snapshotservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/service"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	subscriptionrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	clk    *clock.FakeClock
	node   *snowflake.Node
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&organizationdomain.Organization{},
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
		&ledgerdomain.Movement{},
		&snapshotdomain.MRRSnapshot{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	ledgerRepo := ledgerrepository.Provide()
	customerRepo := customerrepository.Provide()
	subRepo := subscriptionrepository.Provide()
	snapshotRepo := snapshotrepository.Provide()
	orgRepo := organizationrepository.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:               conn,
		Log:              log,
		GenID:            node,
		Clock:            clk,
		Repo:             ledgerRepo,
		CustomerRepo:     customerRepo,
		SubscriptionRepo: subRepo,
	})
	snapshotSvc := snapshotservice.NewService(snapshotservice.ServiceParam{
		DB:               conn,
		Log:              log,
		GenID:            node,
		Clock:            clk,
		Repo:             snapshotRepo,
		LedgerRepo:       ledgerRepo,
		SubscriptionRepo: subRepo,
	})
	cohortSvc := cohort.NewService(cohort.ServiceParam{
		DB:         conn,
		Log:        log,
		Clock:      clk,
		LedgerRepo: ledgerRepo,
		LedgerSvc:  ledgerSvc,
	})
	forecastSvc := forecast.NewService(forecast.ServiceParam{
		DB:               conn,
		Log:              log,
		Clock:            clk,
		SnapshotRepo:     snapshotRepo,
		SubscriptionRepo: subRepo,
	})
	ingestSvc := ingest.NewService(ingest.ServiceParam{
		DB:           conn,
		Log:          log,
		Clock:        clk,
		GenID:        node,
		Serializer:   ingest.NewSerializer(config.Config{}),
		Ledger:       ledgerSvc,
		SubRepo:      subRepo,
		CustomerRepo: customerRepo,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	server := NewServer(ServerParams{
		Gin:   engine,
		Cfg:   config.Config{},
		DB:    conn,
		GenID: node,
		Clock: clk,

		IngestSvc:   ingestSvc,
		LedgerSvc:   ledgerSvc,
		SnapshotSvc: snapshotSvc,
		CohortSvc:   cohortSvc,
		ForecastSvc: forecastSvc,

		OrgRepo:      orgRepo,
		CustomerRepo: customerRepo,
		SubRepo:      subRepo,
	})

	return &testServer{
		t:      t,
		db:     conn,
		clk:    clk,
		node:   node,
		server: server,
	}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) decode(rec *httptest.ResponseRecorder, out any) {
	ts.t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		ts.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (ts *testServer) createOrg(name string) snowflake.ID {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/v1/orgs", gin.H{"name": name})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("create org status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			ID snowflake.ID `json:"id"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if body.Data.ID == 0 {
		ts.t.Fatal("create org returned zero id")
	}
	return body.Data.ID
}

func (ts *testServer) syncCustomer(orgID snowflake.ID, billingID string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, fmt.Sprintf("/v1/orgs/%d/customers", orgID), gin.H{
		"billing_customer_id": billingID,
		"name":                "Acme",
		"email":               "ops@acme.test",
	})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("sync customer status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func (ts *testServer) postEvent(orgID snowflake.ID, body gin.H) *httptest.ResponseRecorder {
	ts.t.Helper()
	return ts.do(http.MethodPost, fmt.Sprintf("/v1/orgs/%d/subscription-events", orgID), body)
}

func activeEvent(amount int64) gin.H {
	return gin.H{
		"external_subscription_id": "sub_1",
		"external_customer_id":     "cus_1",
		"status":                   "active",
		"amount":                   amount,
		"interval":                 "month",
		"interval_count":           1,
	}
}

func TestCreateOrganizationValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/orgs", gin.H{"name": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	ts.decode(rec, &body)
	if body.Error.Type != "validation_error" {
		t.Fatalf("error type = %q", body.Error.Type)
	}
	if len(body.Error.Errors) != 1 || body.Error.Errors[0].Field != "name" {
		t.Fatalf("errors = %+v", body.Error.Errors)
	}
}

func TestUnknownOrganizationIs404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postEvent(123456789, activeEvent(10000))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	ts.decode(rec, &body)
	if body.Error.Type != "not_found" {
		t.Fatalf("error type = %q", body.Error.Type)
	}
}

func TestIngestEventEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")

	rec := ts.postEvent(orgID, activeEvent(10000))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Skipped  bool  `json:"skipped"`
			MRR      int64 `json:"mrr"`
			Movement *struct {
				Type string `json:"type"`
			} `json:"movement"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if body.Data.Skipped {
		t.Fatal("event skipped unexpectedly")
	}
	if body.Data.MRR != 10000 {
		t.Fatalf("mrr = %d, want 10000", body.Data.MRR)
	}
	if body.Data.Movement == nil || body.Data.Movement.Type != "new" {
		t.Fatalf("movement = %+v", body.Data.Movement)
	}
}

func TestIngestEventUnknownCustomerIsAccepted(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")

	rec := ts.postEvent(orgID, activeEvent(10000))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Skipped bool `json:"skipped"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if !body.Data.Skipped {
		t.Fatal("expected skipped result")
	}
}

func TestIngestEventValidation(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")

	event := activeEvent(-100)
	rec := ts.postEvent(orgID, event)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	ts.decode(rec, &body)
	if body.Error.Type != "validation_error" {
		t.Fatalf("error type = %q", body.Error.Type)
	}
	if len(body.Error.Errors) != 1 || body.Error.Errors[0].Code != "invalid_amount" {
		t.Fatalf("errors = %+v", body.Error.Errors)
	}
}

func TestSubscriptionMRRAsOf(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")

	rec := ts.postEvent(orgID, activeEvent(10000))
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}
	var ingested struct {
		Data struct {
			SubscriptionID snowflake.ID `json:"subscription_id"`
		} `json:"data"`
	}
	ts.decode(rec, &ingested)

	path := fmt.Sprintf("/v1/orgs/%d/subscriptions/%d/mrr?date=2024-07-01", orgID, ingested.Data.SubscriptionID)
	rec = ts.do(http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			MRR int64 `json:"mrr"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if body.Data.MRR != 10000 {
		t.Fatalf("mrr = %d, want 10000", body.Data.MRR)
	}

	before := fmt.Sprintf("/v1/orgs/%d/subscriptions/%d/mrr?date=2024-01-01", orgID, ingested.Data.SubscriptionID)
	rec = ts.do(http.MethodGet, before, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	ts.decode(rec, &body)
	if body.Data.MRR != 0 {
		t.Fatalf("mrr before first event = %d, want 0", body.Data.MRR)
	}
}

func TestSubscriptionMRRDefaultsToClockNow(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")

	rec := ts.postEvent(orgID, activeEvent(10000))
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}
	var ingested struct {
		Data struct {
			SubscriptionID snowflake.ID `json:"subscription_id"`
		} `json:"data"`
	}
	ts.decode(rec, &ingested)

	path := fmt.Sprintf("/v1/orgs/%d/subscriptions/%d/mrr", orgID, ingested.Data.SubscriptionID)
	rec = ts.do(http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Date time.Time `json:"date"`
			MRR  int64     `json:"mrr"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if body.Data.MRR != 10000 {
		t.Fatalf("mrr = %d, want 10000", body.Data.MRR)
	}
	if !body.Data.Date.Equal(ts.clk.Now()) {
		t.Fatalf("default date = %v, want clock now %v", body.Data.Date, ts.clk.Now())
	}
}

func TestSubscriptionMRRUnknownSubscriptionIs404(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/subscriptions/42/mrr", orgID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSnapshotBuildAndList(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")
	if rec := ts.postEvent(orgID, activeEvent(10000)); rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	rec := ts.do(http.MethodPost, fmt.Sprintf("/v1/orgs/%d/snapshots:build", orgID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/snapshots", orgID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []struct {
			TotalMRR int64 `json:"total_mrr"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if len(body.Data) != 1 || body.Data[0].TotalMRR != 10000 {
		t.Fatalf("snapshots = %+v", body.Data)
	}
}

func TestCohortAndForecastEndpoints(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")
	if rec := ts.postEvent(orgID, activeEvent(10000)); rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	for _, path := range []string{
		fmt.Sprintf("/v1/orgs/%d/cohorts/revenue", orgID),
		fmt.Sprintf("/v1/orgs/%d/cohorts/customers", orgID),
		fmt.Sprintf("/v1/orgs/%d/forecast", orgID),
	} {
		rec := ts.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d body = %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/forecast?months=oops", orgID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad months status = %d", rec.Code)
	}
}

func TestForecastUsesLiveMRRAsFirstPoint(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")
	if rec := ts.postEvent(orgID, activeEvent(10000)); rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/forecast?months=3", orgID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Moderate []struct {
				MRR  int64  `json:"mrr"`
				Kind string `json:"kind"`
			} `json:"moderate"`
		} `json:"data"`
	}
	ts.decode(rec, &body)
	if len(body.Data.Moderate) != 4 {
		t.Fatalf("moderate points = %d, want 4", len(body.Data.Moderate))
	}
	if body.Data.Moderate[0].MRR != 10000 || body.Data.Moderate[0].Kind != "historical" {
		t.Fatalf("first point = %+v", body.Data.Moderate[0])
	}
}

func TestListCustomers(t *testing.T) {
	ts := newTestServer(t)
	orgID := ts.createOrg("acme")
	ts.syncCustomer(orgID, "cus_1")
	ts.syncCustomer(orgID, "cus_2")

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/orgs/%d/customers", orgID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	ts.decode(rec, &body)
	if len(body.Data) != 2 {
		t.Fatalf("customers = %d, want 2", len(body.Data))
	}
}
