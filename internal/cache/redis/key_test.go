package redis

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestJoinKey(t *testing.T) {
	cases := []struct {
		prefix string
		parts  []string
		want   string
	}{
		{"spreadbot", []string{"price", "paradex", "HYPE"}, "spreadbot:price:paradex:HYPE"},
		{"", []string{"lock", "HYPE"}, "lock:HYPE"},
		{"sb", []string{"trades"}, "sb:trades"},
	}
	for _, tc := range cases {
		if got := joinKey(tc.prefix, tc.parts...); got != tc.want {
			t.Fatalf("joinKey(%q, %v) = %q, want %q", tc.prefix, tc.parts, got, tc.want)
		}
	}
}

func TestDecodePrice(t *testing.T) {
	price, ts, err := decodePrice(map[string]string{"price": "10.25", "ts": "1700000000000000000"})
	if err != nil || price != 10.25 || ts.Unix() != 1700000000 {
		t.Fatalf("decodePrice = %v, %v, %v", price, ts, err)
	}

	if _, _, err := decodePrice(map[string]string{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty hash err = %v, want ErrNotFound", err)
	}
	if _, _, err := decodePrice(map[string]string{"price": "x", "ts": "1"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
