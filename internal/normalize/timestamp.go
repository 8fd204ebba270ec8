// Package normalize holds the pure request/response normalization helpers
// shared by the clients and the tool layer: timestamp unit detection,
// channel alignment, display-price derivation, and binary-payload stripping.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	microsPerSecond      = 1_000_000
	microsPerMillisecond = 1_000

	// Digit-count thresholds for the unit heuristic.
	maxSecondsValue      = 9_999_999_999         // 10 digits
	maxMillisecondsValue = 9_999_999_999_999     // 13 digits
)

// TimestampToMicros converts a positive Unix timestamp of unknown unit to
// microseconds by inspecting its digit count: up to 10 digits is treated as
// seconds, 11-13 digits as milliseconds, 14 or more as microseconds.
//
// The heuristic is ambiguous at unit boundaries (an 11-digit value could be
// far-future seconds) and deliberately stays that way; realistic inputs sit
// far from the boundaries and callers rely on the documented digit ranges.
func TimestampToMicros(ts int64) int64 {
	switch {
	case ts <= maxSecondsValue:
		return ts * microsPerSecond
	case ts <= maxMillisecondsValue:
		return ts * microsPerMillisecond
	default:
		return ts
	}
}

var fixedRatePattern = regexp.MustCompile(`^fixed_rate@(\d+)ms$`)

// ChannelPeriodMicros returns the sampling period of a fixed-rate channel in
// microseconds. Real-time and unrecognized channels have no period and
// return 0.
func ChannelPeriodMicros(channel string) int64 {
	m := fixedRatePattern.FindStringSubmatch(channel)
	if m == nil {
		return 0
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return ms * microsPerMillisecond
}

// AlignToChannel rounds a microsecond timestamp down to the nearest multiple
// of the channel's period. Alignment is always toward the past and is a
// no-op for already-aligned values and for channels without a fixed period.
func AlignToChannel(micros int64, channel string) int64 {
	period := ChannelPeriodMicros(channel)
	if period <= 0 {
		return micros
	}
	return micros - micros%period
}

// ResolveChannel picks the per-call channel when one was supplied and falls
// back to the configured default otherwise.
func ResolveChannel(requested, configured string) string {
	if c := strings.TrimSpace(requested); c != "" {
		return c
	}
	return configured
}
