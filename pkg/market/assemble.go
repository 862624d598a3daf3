package market

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/zeromicro/go-zero/core/errorx"
	"github.com/zeromicro/go-zero/core/logx"
)

// Assemble keeps the successful results and orders them perpetual first, then
// dated futures by days to expiry. Failed tasks never produce a row; each cause
// is logged.
func Assemble(ctx context.Context, results []TaskResult) []Entry {
	entries := make([]Entry, 0, len(results))
	var failures errorx.BatchError
	for _, res := range results {
		if res.OK() {
			entries = append(entries, *res.Entry)
			continue
		}
		err := res.Err
		if err == nil {
			err = &InternalError{Msg: "task produced no result"}
		}
		logx.WithContext(ctx).Errorf("assemble: drop %s: %v", res.Instrument, err)
		failures.Add(err)
	}
	if failures.NotNil() {
		logx.WithContext(ctx).Infof("assemble: %d of %d tasks failed: %v", len(results)-len(entries), len(results), failures.Err())
	}
	SortEntries(entries)
	return entries
}

// SortEntries applies the curve ordering in place. The sort is stable so
// entries with equal keys keep their fan-out order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ri, di := sortKey(entries[i])
		rj, dj := sortKey(entries[j])
		if ri != rj {
			return ri < rj
		}
		return di < dj
	})
}

func sortKey(e Entry) (int, float64) {
	rank := 1
	if e.IsPerpetual() {
		rank = 0
	}
	return rank, TenorDays(e.Metrics.Tenor)
}

// TenorDays parses the day count before "d" in a tenor, or 0 when there is none.
func TenorDays(tenor string) float64 {
	head, _, found := strings.Cut(strings.TrimSpace(tenor), "d")
	if !found {
		return 0
	}
	days, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
	if err != nil {
		return 0
	}
	return days
}
