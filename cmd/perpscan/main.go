package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradeboard-api/pkg/market"

	// Import for side-effects: registers the exchange adapters
	_ "tradeboard-api/pkg/market/exchanges/binance"
	_ "tradeboard-api/pkg/market/exchanges/bybit"
	_ "tradeboard-api/pkg/market/exchanges/deribit"
	_ "tradeboard-api/pkg/market/exchanges/hyperliquid"
	_ "tradeboard-api/pkg/market/exchanges/kucoin"
	_ "tradeboard-api/pkg/market/exchanges/okx"
)

var (
	configFile = flag.String("f", "", "market config file (default etc/market.yaml under the project root)")
	exchanges  = flag.String("exchanges", "", "comma-separated exchange ids (default: every configured exchange)")
	symbols    = flag.String("symbols", "BTC,ETH", "comma-separated symbols")
	interval   = flag.Duration("interval", 0, "poll interval; zero runs a single scan")
)

// row is one JSON line of output.
type row struct {
	Time            string   `json:"time"`
	Exchange        string   `json:"exchange"`
	Symbol          string   `json:"symbol"`
	Native          string   `json:"native"`
	MarkPrice       float64  `json:"markPrice"`
	IndexPrice      float64  `json:"indexPrice"`
	Premium         string   `json:"premium"`
	FundingRate     *float64 `json:"fundingRate"`
	NextFundingTime *string  `json:"nextFundingTime"`
	Volume24h       float64  `json:"volume24h"`
	OpenInterest    float64  `json:"openInterest"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("[main] load market config: %v", err)
	}
	registry, err := cfg.BuildRegistry()
	if err != nil {
		log.Fatalf("[main] build registry: %v", err)
	}
	defer registry.Close()

	ids := split(strings.ToLower(*exchanges))
	if len(ids) == 0 {
		ids = registry.Exchanges()
	}
	pairs := market.Pairs(ids, split(*symbols))
	if len(pairs) == 0 {
		log.Fatalf("[main] nothing to scan: exchanges=%q symbols=%q", *exchanges, *symbols)
	}
	scheduler := market.NewScheduler(registry, market.WithTaskTimeout(cfg.TaskTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	scan(ctx, scheduler, pairs, enc)
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[main] stopping")
			return
		case <-ticker.C:
			scan(ctx, scheduler, pairs, enc)
		}
	}
}

func loadConfig(path string) (*market.Config, error) {
	if strings.TrimSpace(path) == "" {
		return market.MustLoad(), nil
	}
	return market.LoadConfig(path)
}

// scan runs one fan-out and writes every successful entry as a JSON line.
func scan(ctx context.Context, scheduler *market.Scheduler, pairs []market.InstrumentID, out *json.Encoder) {
	start := time.Now()
	results := scheduler.FanOut(ctx, pairs)
	entries := market.Assemble(ctx, results)
	log.Printf("[scan] %d of %d instruments, took %dms", len(entries), len(pairs), time.Since(start).Milliseconds())

	stamp := scheduler.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if err := out.Encode(toRow(stamp, e)); err != nil {
			log.Printf("[scan] write: %v", err)
			return
		}
	}
}

func toRow(stamp string, e market.Entry) row {
	q := e.Quote
	return row{
		Time:            stamp,
		Exchange:        q.Instrument.Exchange,
		Symbol:          q.Instrument.Symbol,
		Native:          q.Native,
		MarkPrice:       q.MarkPrice,
		IndexPrice:      q.IndexPrice,
		Premium:         market.FormatSignedPercent(e.Metrics.PremiumPct),
		FundingRate:     q.FundingRate,
		NextFundingTime: q.NextFundingTime,
		Volume24h:       q.Volume24h,
		OpenInterest:    q.OpenInterest,
	}
}

func split(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
