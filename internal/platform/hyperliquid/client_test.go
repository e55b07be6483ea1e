package hyperliquid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

const metaBody = `[
  {"universe":[{"name":"BTC","szDecimals":5},{"name":"HYPE","szDecimals":2}]},
  [
    {"midPx":"97000.5","markPx":"97001.0","funding":"0.0000125"},
    {"midPx":"10.00","markPx":"10.01","funding":"0.00001"}
  ]
]`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/info" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		reqBody, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(reqBody), `"metaAndAssetCtxs"`) {
			t.Errorf("unexpected request body %s", reqBody)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuoteFindsCoinByIndex(t *testing.T) {
	srv := newServer(t, http.StatusOK, metaBody)
	c := NewClient(srv.URL+"/", time.Second)

	q, err := c.Quote(context.Background(), "hype")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Mid != 10.00 || q.Last != 10.01 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if p, ok := q.Price(); !ok || p != 10.00 {
		t.Fatalf("Price() = %v, %v", p, ok)
	}
}

func TestQuoteNullMidFallsBackToMark(t *testing.T) {
	body := `[{"universe":[{"name":"HYPE"}]},[{"midPx":null,"markPx":"10.5"}]]`
	c := NewClient(newServer(t, http.StatusOK, body).URL, time.Second)

	q, err := c.Quote(context.Background(), "HYPE")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if p, ok := q.Price(); !ok || p != 10.5 {
		t.Fatalf("Price() = %v, %v; want mark fallback", p, ok)
	}
}

func TestQuoteErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"missing coin", http.StatusOK, `[{"universe":[{"name":"BTC"}]},[{"midPx":"1"}]]`},
		{"bad status", http.StatusInternalServerError, `oops`},
		{"malformed json", http.StatusOK, `{"universe":`},
		{"wrong shape", http.StatusOK, `[{"universe":[]}]`},
		{"unparsable price", http.StatusOK, `[{"universe":[{"name":"HYPE"}]},[{"midPx":"abc"}]]`},
		{"missing ctx", http.StatusOK, `[{"universe":[{"name":"HYPE"}]},[]]`},
	}
	for _, tc := range cases {
		c := NewClient(newServer(t, tc.status, tc.body).URL, time.Second)
		if _, err := c.Quote(context.Background(), "HYPE"); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	c := NewClient(newServer(t, http.StatusOK, `[{"universe":[{"name":"BTC"}]},[{"midPx":"1"}]]`).URL, time.Second)
	if _, err := c.Quote(context.Background(), "HYPE"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing coin err = %v, want ErrNotFound", err)
	}
}

func TestQuoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	start := time.Now()
	if _, err := c.Quote(context.Background(), "HYPE"); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not enforced")
	}
}
