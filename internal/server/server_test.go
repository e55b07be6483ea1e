package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/server/handler"
	"github.com/alanyoungcy/spreadbot/internal/service"
)

type emptySource struct{}

func (emptySource) Status() domain.BotStatus          { return domain.BotStatus{Mode: "monitor"} }
func (emptySource) Positions() []service.PositionView { return nil }
func (emptySource) Trades(context.Context, string, int) ([]domain.ClosedTrade, error) {
	return nil, nil
}

func (emptySource) Prices(context.Context, string) ([]service.VenuePrice, error) {
	return []service.VenuePrice{}, nil
}
func (emptySource) PnL(context.Context, time.Duration) (float64, string, error) {
	return 0, "session", nil
}
func (emptySource) Audit(context.Context, int) ([]domain.AuditEntry, error) { return nil, nil }

func TestRoutesAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := routes(Config{APIKey: "secret"}, Handlers{
		Health: handler.NewHealthHandler(nil, logger),
		Status: handler.NewStatusHandler(emptySource{}, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		}),
	}, nil, logger)

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{"/api/health", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
		{"/api/status", "", http.StatusUnauthorized},
		{"/api/status", "secret", http.StatusOK},
		{"/api/positions", "secret", http.StatusOK},
		{"/api/trades", "secret", http.StatusOK},
		{"/api/prices?symbol=HYPE", "secret", http.StatusOK},
		{"/api/pnl", "secret", http.StatusOK},
		{"/api/audit", "secret", http.StatusOK},
		{"/api/nope", "secret", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("GET %s (token %q) = %d, want %d", tt.path, tt.token, rec.Code, tt.status)
		}
	}
}

func TestRoutesRejectWrites(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := routes(Config{}, Handlers{
		Health: handler.NewHealthHandler(nil, logger),
		Status: handler.NewStatusHandler(emptySource{}, logger),
	}, nil, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/status = %d", rec.Code)
	}
}
