package market

import (
	"fmt"
	"math"
	"time"
)

const (
	perpetualTenor = "-"
	daysPerYear    = 365.0
)

// Compute derives premium, tenor and APR for quote. anchor is the perpetual of
// the same underlying when quote is a dated future, and nil when quote is itself
// the perpetual (its premium is then measured against the index price).
func Compute(quote NormalizedQuote, anchor *NormalizedQuote, now time.Time) DerivedMetrics {
	if anchor == nil {
		return DerivedMetrics{
			PremiumAbs: PremiumAbs(quote.MarkPrice, quote.IndexPrice),
			PremiumPct: PremiumPct(quote.MarkPrice, quote.IndexPrice),
			Tenor:      perpetualTenor,
		}
	}

	m := DerivedMetrics{
		PremiumAbs: PremiumAbs(quote.MarkPrice, anchor.MarkPrice),
		PremiumPct: PremiumPct(quote.MarkPrice, anchor.MarkPrice),
		Tenor:      perpetualTenor,
	}
	if quote.Expiry != nil {
		days := DaysToExpiry(*quote.Expiry, now)
		m.DaysToExpiry = &days
		m.Tenor = FormatTenor(days)
		m.APR = APR(anchor.MarkPrice, quote.MarkPrice, days)
	}
	return m
}

// PremiumPct returns (price/ref - 1) * 100, or 0 when ref is not positive.
func PremiumPct(price, ref float64) float64 {
	if ref <= 0 || math.IsNaN(ref) {
		return 0
	}
	return (price/ref - 1) * 100
}

// PremiumAbs returns |price - ref|, or 0 when ref is not positive.
func PremiumAbs(price, ref float64) float64 {
	if ref <= 0 || math.IsNaN(ref) {
		return 0
	}
	return math.Abs(price - ref)
}

// APR annualises the spread of a future over its perpetual.
func APR(perpPrice, futurePrice, daysToExpiry float64) float64 {
	if daysToExpiry <= 0 || perpPrice <= 0 {
		return 0
	}
	return (futurePrice/perpPrice - 1) * (daysPerYear / daysToExpiry) * 100
}

// DaysToExpiry returns the fractional number of days between now and expiry.
func DaysToExpiry(expiry, now time.Time) float64 {
	return expiry.Sub(now).Hours() / 24
}

// FormatTenor renders fractional days as "Xd Yh Zm", "Yh Zm" or "Zm".
// Non-positive input renders as "0m".
func FormatTenor(days float64) string {
	if days <= 0 || math.IsNaN(days) {
		return "0m"
	}
	// truncate to whole minutes; the epsilon absorbs float error such as 121.99999 hours
	minutes := int64(math.Floor(days*24*60 + 1e-6))
	d := minutes / (24 * 60)
	h := (minutes % (24 * 60)) / 60
	m := minutes % 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// FormatPercent renders v as "x.xx%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// FormatSignedPercent renders v as "+x.xx%" / "-x.xx%".
func FormatSignedPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
