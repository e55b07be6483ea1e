package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/service"
)

// StatusSource is the read model behind the API.
type StatusSource interface {
	Status() domain.BotStatus
	Positions() []service.PositionView
	Trades(ctx context.Context, symbol string, limit int) ([]domain.ClosedTrade, error)
	Prices(ctx context.Context, symbol string) ([]service.VenuePrice, error)
	PnL(ctx context.Context, window time.Duration) (float64, string, error)
	Audit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// StatusHandler serves status, positions and trades.
type StatusHandler struct {
	src    StatusSource
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler over src.
func NewStatusHandler(src StatusSource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{src: src, logger: logger.With(slog.String("handler", "status"))}
}

// GetStatus GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.src.Status())
}

// ListPositions GET /api/positions
func (h *StatusHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"positions": h.src.Positions()})
}

// symbolParam reads ?symbol=, upper-cased.
func symbolParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
}

// ListTrades GET /api/trades?symbol=HYPE&limit=50
func (h *StatusHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.src.Trades(r.Context(), symbolParam(r), parseLimit(r))
	if err != nil {
		h.logger.Error("list trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.ClosedTrade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// GetPrices GET /api/prices?symbol=HYPE
func (h *StatusHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	prices, err := h.src.Prices(r.Context(), symbol)
	if err != nil {
		h.logger.Error("get prices failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read prices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "prices": prices})
}

// GetPnL GET /api/pnl?window=24h
func (h *StatusHandler) GetPnL(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	pnl, source, err := h.src.PnL(r.Context(), window)
	if err != nil {
		h.logger.Error("pnl failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute pnl")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":           window.String(),
		"realized_pnl_usd": pnl,
		"source":           source,
	})
}

// ListAudit GET /api/audit?limit=50
func (h *StatusHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.src.Audit(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
