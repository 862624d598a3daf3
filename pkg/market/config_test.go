package market_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	market "tradeboard-api/pkg/market"
)

type stubAdapter struct{ name string }

func (s *stubAdapter) Capabilities() market.CapabilitySet {
	return market.Capabilities(market.CapFetchTicker)
}

func (s *stubAdapter) FetchQuote(context.Context, string) (*market.RawQuote, error) {
	return &market.RawQuote{Mark: "1"}, nil
}

func (s *stubAdapter) FetchFunding(context.Context, string) (*market.RawFunding, error) {
	return nil, market.ErrUnsupported
}

func (s *stubAdapter) ListMarkets(context.Context) ([]market.MarketDescriptor, error) {
	return nil, market.ErrUnsupported
}

func (s *stubAdapter) Close() error { return nil }

func init() {
	market.RegisterAdapter("stub", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		return &stubAdapter{name: name}, nil
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMarketConfig(t *testing.T) {
	path := writeConfig(t, `
default: Alpha
task_timeout: 3s
exchanges:
  Alpha:
    type: stub
    base_url: https://alpha.example/api
    timeout: 6s
    http_timeout: 12s
    rate_limit: 20
    burst: 5
  beta:
    type: stub
`)

	cfg, err := market.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Default != "alpha" {
		t.Fatalf("unexpected default: %s", cfg.Default)
	}
	if cfg.TaskTimeout != 3*time.Second {
		t.Fatalf("unexpected task timeout: %s", cfg.TaskTimeout)
	}
	alpha := cfg.Exchanges["alpha"]
	if alpha == nil || alpha.RateLimit != 20 || alpha.Burst != 5 {
		t.Fatalf("alpha exchange not parsed: %+v", alpha)
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry error: %v", err)
	}
	defer registry.Close()
	if got := registry.Exchanges(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("unexpected exchanges: %v", got)
	}
	adapter, err := registry.Acquire(context.Background(), "ALPHA")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if adapter.(*stubAdapter).name != "alpha" {
		t.Fatalf("adapter built with wrong name: %s", adapter.(*stubAdapter).name)
	}
}

func TestMarketConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
exchanges:
  stub: {}
`)
	cfg, err := market.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.TaskTimeout != 10*time.Second {
		t.Fatalf("expected default task timeout, got %s", cfg.TaskTimeout)
	}
	if cfg.Exchanges["stub"].Type != "stub" {
		t.Fatalf("type should default to the exchange key, got %q", cfg.Exchanges["stub"].Type)
	}
}

func TestMarketConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unsupported type", body: "exchanges:\n  demo:\n    type: foobar\n", wantErr: "unsupported"},
		{name: "empty", body: "default: x\n", wantErr: "cannot be empty"},
		{name: "unknown default", body: "default: nope\nexchanges:\n  a:\n    type: stub\n", wantErr: "not defined"},
		{name: "bad timeout", body: "task_timeout: soon\nexchanges:\n  a:\n    type: stub\n", wantErr: "invalid task_timeout"},
		{name: "negative timeout", body: "exchanges:\n  a:\n    type: stub\n    timeout: -1s\n", wantErr: "must be positive"},
		{name: "negative rate", body: "exchanges:\n  a:\n    type: stub\n    rate_limit: -2\n", wantErr: "cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := market.LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
