package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
	"github.com/Jaden-Nix/swarmverify/internal/store"
)

// stubResolver returns a canned resolution per market id.
type stubResolver struct {
	resolutions map[string]core.Resolution
	secondPass  core.SecondPassResult
}

func (s *stubResolver) Resolve(_ context.Context, market core.Market) (core.Resolution, error) {
	return s.resolutions[market.ID], nil
}

func (s *stubResolver) SecondPass(_ context.Context, _ core.Market, first core.Resolution) core.SecondPassResult {
	sp := s.secondPass
	sp.FirstPassConfidence = first.Confidence
	return sp
}

func newTestHandler(t *testing.T) (*ResolutionsHandler, sqlmock.Sqlmock, *stubResolver) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	stub := &stubResolver{resolutions: map[string]core.Resolution{}}
	return &ResolutionsHandler{Store: store.NewWithDB(db), Orch: stub}, mock, stub
}

func expectMarket(mock sqlmock.Sqlmock, id string) {
	mock.ExpectQuery("SELECT id, title, description, category, resolution_date FROM markets WHERE id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "category", "resolution_date"}).
			AddRow(id, "q", "", "", time.Now()))
}

func expectMissingMarket(mock sqlmock.Sqlmock, id string) {
	mock.ExpectQuery("SELECT id, title, description, category, resolution_date FROM markets WHERE id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "category", "resolution_date"}))
}

func TestResolveEndpointAutoResolve(t *testing.T) {
	h, mock, stub := newTestHandler(t)
	stub.resolutions["m1"] = core.Resolution{
		ID: "r1", MarketID: "m1", Outcome: core.OutcomeYes, Confidence: 95,
		Path: core.PathAutoResolve, Timestamp: time.Now(),
	}
	expectMarket(mock, "m1")
	mock.ExpectExec("INSERT INTO resolutions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE markets SET").WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("m1")

	if err := h.resolve(c); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out resolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Resolution.Path != core.PathAutoResolve || out.SecondPass != nil {
		t.Fatalf("response = %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveEndpointSecondPassPersisted(t *testing.T) {
	h, mock, stub := newTestHandler(t)
	stub.resolutions["m1"] = core.Resolution{
		ID: "r1", MarketID: "m1", Outcome: core.OutcomeYes, Confidence: 87,
		Path: core.PathSecondPass, Timestamp: time.Now(),
	}
	stub.secondPass = core.SecondPassResult{Outcome: core.OutcomeYes, Confidence: 82, IsSecondPass: true}
	expectMarket(mock, "m1")
	mock.ExpectExec("INSERT INTO resolutions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO second_passes").WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("m1")

	if err := h.resolve(c); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var out resolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SecondPass == nil || out.SecondPass.FirstPassConfidence != 87 {
		t.Fatalf("second pass = %+v", out.SecondPass)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveEndpointMarketNotFound(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	expectMissingMarket(mock, "nope")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.resolve(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	h, mock, stub := newTestHandler(t)
	// First market does not exist; second resolves to manual review.
	expectMissingMarket(mock, "m1")
	expectMarket(mock, "m2")
	stub.resolutions["m2"] = core.Resolution{
		ID: "r2", MarketID: "m2", Outcome: core.OutcomeNo, Confidence: 60,
		Path: core.PathManualReview, Timestamp: time.Now(),
	}
	mock.ExpectExec("INSERT INTO resolutions").WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	body := `{"market_ids":["m1","m2"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.resolveBatch(c); err != nil {
		t.Fatalf("batch: %v", err)
	}
	var out struct {
		Results []batchItem `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %+v", out.Results)
	}
	if out.Results[0].Status != "failed" || out.Results[0].Error == "" {
		t.Fatalf("first item = %+v", out.Results[0])
	}
	if out.Results[1].Status != "success" || out.Results[1].Path != core.PathManualReview {
		t.Fatalf("second item = %+v", out.Results[1])
	}
}

func TestBatchRejectsEmptyRequest(t *testing.T) {
	h, _, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.resolveBatch(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}
