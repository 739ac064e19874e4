// Package reconcile keeps the displayed series consistent with the metrics
// service's downsampling while two differently timed sources feed it: a
// frequent latest-sample poll and an occasional full history fetch.
package reconcile

import (
	"math"
	"time"
)

// Policy holds the thresholds that decide between appending a live sample
// and reloading history. The zero value is not useful; start from
// DefaultPolicy.
type Policy struct {
	// NearRawMinBucket is the smallest bucket size always treated as near-raw.
	NearRawMinBucket int
	// NearRawFactor scales the sampling interval into the near-raw cutoff.
	NearRawFactor float64
	// ReloadMin and ReloadMax clamp the bucket-derived reload throttle.
	ReloadMin time.Duration
	ReloadMax time.Duration
}

// DefaultPolicy returns the thresholds the dashboard ships with.
func DefaultPolicy() Policy {
	return Policy{
		NearRawMinBucket: 2,
		NearRawFactor:    2,
		ReloadMin:        10 * time.Second,
		ReloadMax:        300 * time.Second,
	}
}

// NearRawCutoff is the largest bucket size, in seconds, for which appending
// one raw sample is visually equivalent to reloading:
// max(NearRawMinBucket, ceil(interval * NearRawFactor)).
func (p Policy) NearRawCutoff(interval time.Duration) int {
	cutoff := int(math.Ceil(interval.Seconds() * p.NearRawFactor))
	if cutoff < p.NearRawMinBucket {
		cutoff = p.NearRawMinBucket
	}
	return cutoff
}

// IsNearRaw reports whether a buffer of bucketSeconds may take live appends.
func (p Policy) IsNearRaw(bucketSeconds int, interval time.Duration) bool {
	return bucketSeconds <= p.NearRawCutoff(interval)
}

// ReloadWindow is the minimum spacing of background reloads for a buffer of
// bucketSeconds: the bucket size clamped to [ReloadMin, ReloadMax].
func (p Policy) ReloadWindow(bucketSeconds int) time.Duration {
	w := time.Duration(bucketSeconds) * time.Second
	if w < p.ReloadMin {
		w = p.ReloadMin
	}
	if w > p.ReloadMax {
		w = p.ReloadMax
	}
	return w
}

// ShouldReload reports whether a background reload may be issued at now,
// given the time of the previous one (zero if none).
func (p Policy) ShouldReload(now, lastReload time.Time, bucketSeconds int) bool {
	if lastReload.IsZero() {
		return true
	}
	return now.Sub(lastReload) >= p.ReloadWindow(bucketSeconds)
}
