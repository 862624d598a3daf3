package cache

import (
	"strconv"
	"strings"
	"time"

	"tradeboard-api/internal/config"
)

// Namespace is the Redis key prefix for the service.
const Namespace = "tradeboard"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.ToLower(strings.TrimSpace(part))
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Market Keys ------------------------------------------------------------

// MarketsKey holds the active market listing of one exchange.
func MarketsKey(exchange string) string {
	return formatKey("markets", exchange)
}

// FundingHistoryKey holds one funding history window.
func FundingHistoryKey(exchange, symbol string, days int) string {
	return formatKey("funding", exchange, symbol, strconv.Itoa(days)+"d")
}

// --- Dashboard Keys ---------------------------------------------------------

// DashboardKey caches one stored dashboard. Names are case-sensitive.
func DashboardKey(name string) string {
	return Namespace + ":dashboard:" + strings.TrimSpace(name)
}

// DashboardNamesKey caches the dashboard name listing.
func DashboardNamesKey() string {
	return formatKey("dashboards")
}

// --- TTL Helpers ------------------------------------------------------------

// MarketsTTL returns the TTL for market listings.
func MarketsTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// FundingHistoryTTL returns the TTL for funding history windows.
func FundingHistoryTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// DashboardTTL returns the TTL for cached dashboards.
func DashboardTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}
