package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/service"
)

type stubSource struct {
	trades    []domain.ClosedTrade
	err       error
	gotSymbol string
	gotLimit  int
	gotWindow time.Duration
}

func (s *stubSource) Status() domain.BotStatus {
	return domain.BotStatus{Mode: "paper", Symbols: []string{"HYPE"}, OpenPositions: 1, RealizedPnL: 2.5}
}

func (s *stubSource) Positions() []service.PositionView {
	u := 1.5
	return []service.PositionView{{Position: domain.Position{ID: "p1", Symbol: "HYPE", Direction: domain.ShortBLongA}, UnrealizedPnL: &u}}
}

func (s *stubSource) Trades(_ context.Context, symbol string, limit int) ([]domain.ClosedTrade, error) {
	s.gotSymbol, s.gotLimit = symbol, limit
	return s.trades, s.err
}

func (s *stubSource) Prices(_ context.Context, symbol string) ([]service.VenuePrice, error) {
	return []service.VenuePrice{{Venue: "paradex", Price: 10.05}}, nil
}

func (s *stubSource) PnL(_ context.Context, window time.Duration) (float64, string, error) {
	s.gotWindow = window
	return 4.25, "journal", nil
}

func (s *stubSource) Audit(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.gotLimit = limit
	return []domain.AuditEntry{{ID: 1, Event: "session.started"}}, nil
}

func logger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestGetStatus(t *testing.T) {
	h := NewStatusHandler(&stubSource{}, logger())
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var got domain.BotStatus
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || got.Mode != "paper" || got.RealizedPnL != 2.5 {
		t.Fatalf("status %d body %+v", rec.Code, got)
	}
}

func TestListPositions(t *testing.T) {
	h := NewStatusHandler(&stubSource{}, logger())
	rec := httptest.NewRecorder()
	h.ListPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	var body struct {
		Positions []struct {
			ID            string  `json:"id"`
			Direction     string  `json:"direction"`
			UnrealizedPnL float64 `json:"unrealized_pnl_usd"`
		} `json:"positions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Positions) != 1 || body.Positions[0].Direction != "ShortB_LongA" || body.Positions[0].UnrealizedPnL != 1.5 {
		t.Fatalf("body = %+v", body)
	}
}

func TestListTradesQuery(t *testing.T) {
	src := &stubSource{}
	h := NewStatusHandler(src, logger())
	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades?symbol=hype&limit=9999", nil))

	if rec.Code != http.StatusOK || src.gotSymbol != "HYPE" || src.gotLimit != 500 {
		t.Fatalf("code=%d symbol=%q limit=%d", rec.Code, src.gotSymbol, src.gotLimit)
	}
	if body := rec.Body.String(); body != `{"trades":[]}` {
		t.Fatalf("body = %s", body)
	}
}

func TestListTradesError(t *testing.T) {
	h := NewStatusHandler(&stubSource{err: errors.New("db")}, logger())
	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := NewHealthHandler([]Check{{Name: "redis", Ping: func(context.Context) error { return nil }}}, logger())
	rec := httptest.NewRecorder()
	healthy.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy code = %d", rec.Code)
	}

	failing := NewHealthHandler([]Check{{Name: "postgres", Ping: func(context.Context) error { return errors.New("refused") }}}, logger())
	rec = httptest.NewRecorder()
	failing.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing code = %d", rec.Code)
	}
}

func TestGetPrices(t *testing.T) {
	h := NewStatusHandler(&stubSource{}, logger())

	rec := httptest.NewRecorder()
	h.GetPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing symbol code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices?symbol=hype", nil))
	var body struct {
		Symbol string `json:"symbol"`
		Prices []struct {
			Venue string  `json:"venue"`
			Price float64 `json:"price"`
		} `json:"prices"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Symbol != "HYPE" || len(body.Prices) != 1 || body.Prices[0].Price != 10.05 {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetPnL(t *testing.T) {
	src := &stubSource{}
	h := NewStatusHandler(src, logger())

	rec := httptest.NewRecorder()
	h.GetPnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?window=1h", nil))
	if rec.Code != http.StatusOK || src.gotWindow != time.Hour {
		t.Fatalf("code=%d window=%v", rec.Code, src.gotWindow)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["realized_pnl_usd"] != 4.25 || body["source"] != "journal" || body["window"] != "1h0m0s" {
		t.Fatalf("body = %v", body)
	}

	rec = httptest.NewRecorder()
	h.GetPnL(rec, httptest.NewRequest(http.MethodGet, "/api/pnl?window=-1h", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative window code = %d", rec.Code)
	}
}

func TestListAudit(t *testing.T) {
	src := &stubSource{}
	h := NewStatusHandler(src, logger())
	rec := httptest.NewRecorder()
	h.ListAudit(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=5", nil))
	if rec.Code != http.StatusOK || src.gotLimit != 5 {
		t.Fatalf("code=%d limit=%d", rec.Code, src.gotLimit)
	}
	if !strings.Contains(rec.Body.String(), `"event":"session.started"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
