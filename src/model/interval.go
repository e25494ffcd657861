package model

import "fmt"

// Interval is one of the closed set of candle durations the service collects.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

// intervalMillis holds the fixed millisecond duration for every supported
// interval. 1M is approximated as 30 days, documented in spec.md §9: true
// calendar month boundaries would need calendar math the gap-fill alignment
// doesn't care about, since the store's identity key is the venue's own
// reported open timestamp rather than our computed alignment.
var intervalMillis = map[Interval]int64{
	Interval1m:  60_000,
	Interval3m:  180_000,
	Interval5m:  300_000,
	Interval15m: 900_000,
	Interval30m: 1_800_000,
	Interval1h:  3_600_000,
	Interval2h:  7_200_000,
	Interval4h:  14_400_000,
	Interval6h:  21_600_000,
	Interval8h:  28_800_000,
	Interval12h: 43_200_000,
	Interval1d:  86_400_000,
	Interval3d:  259_200_000,
	Interval1w:  604_800_000,
	Interval1M:  2_592_000_000,
}

// ValidIntervals is the closed vocabulary in canonical order.
var ValidIntervals = []Interval{
	Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval2h, Interval4h, Interval6h, Interval8h, Interval12h,
	Interval1d, Interval3d, Interval1w, Interval1M,
}

// IsValidInterval reports whether s belongs to the closed interval set.
func IsValidInterval(s string) bool {
	_, ok := intervalMillis[Interval(s)]
	return ok
}

// IntervalMillis returns the fixed duration of interval in milliseconds.
// Callers must only pass intervals that passed IsValidInterval.
func IntervalMillis(interval Interval) (int64, error) {
	ms, ok := intervalMillis[interval]
	if !ok {
		return 0, fmt.Errorf("model: unknown interval %q", interval)
	}
	return ms, nil
}

// AlignDown floors tsMs to the nearest lower multiple of the interval's
// duration, used by gap-fill to compute the aligned window start.
func AlignDown(tsMs int64, interval Interval) int64 {
	ms, err := IntervalMillis(interval)
	if err != nil || ms <= 0 {
		return tsMs
	}
	if tsMs < 0 {
		return tsMs - (ms + tsMs%ms)%ms
	}
	return tsMs - tsMs%ms
}
