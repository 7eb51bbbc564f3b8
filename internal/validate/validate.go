// Package validate applies the sanity checks and quality weighting
// described in spec.md §4.6.
package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

var macPattern = regexp.MustCompile(`^([0-9a-fA-F]{2}:){5}[0-9a-fA-F]{2}$`)

const (
	allZeroBSSID   = "00:00:00:00:00:00"
	broadcastBSSID = "ff:ff:ff:ff:ff:ff"
)

// Limits bundles the configurable bounds used across validation checks.
type Limits struct {
	MaxAccuracyMeters float64
	RSSIMin           int
	RSSIMax           int
	MaxPastAge        time.Duration
	FutureSkew        time.Duration
}

// Coords validates a (latitude, longitude) pair against I1.
func Coords(lat, lon float64) error {
	if lat == 0 && lon == 0 {
		return ingesterr.Reject(ingesterr.ReasonMissingCoords, "latitude,longitude")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ingesterr.Reject(ingesterr.ReasonCoordsOutOfRange, "latitude,longitude")
	}
	return nil
}

// RSSI validates rssi against I2 and the configured bounds.
func RSSI(rssi int, lim Limits) error {
	if rssi < lim.RSSIMin || rssi > lim.RSSIMax {
		return ingesterr.Reject(ingesterr.ReasonRSSIOutOfRange, "rssi")
	}
	return nil
}

// Accuracy validates locationAccuracy against I3, when present.
func Accuracy(accuracy *float64, lim Limits) error {
	if accuracy == nil {
		return nil
	}
	if *accuracy > lim.MaxAccuracyMeters {
		return ingesterr.Reject(ingesterr.ReasonAccuracyTooHigh, "location.accuracy")
	}
	return nil
}

// BSSID validates and normalizes a MAC address against I4, returning the
// lowercased, colon-separated form on success.
func BSSID(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ingesterr.Reject(ingesterr.ReasonMissingBSSID, "bssid")
	}
	if !macPattern.MatchString(raw) {
		return "", ingesterr.Reject(ingesterr.ReasonMalformedBSSID, "bssid")
	}
	lower := strings.ToLower(raw)
	if lower == allZeroBSSID {
		return "", ingesterr.Reject(ingesterr.ReasonZeroBSSID, "bssid")
	}
	if lower == broadcastBSSID {
		return "", ingesterr.Reject(ingesterr.ReasonBroadcastBSSID, "bssid")
	}
	return lower, nil
}

// Timestamp validates measurementTimestamp (ms since epoch) against I5:
// not in the future beyond FutureSkew, and not further in the past than
// MaxPastAge.
func Timestamp(ms int64, lim Limits, now time.Time) error {
	t := time.UnixMilli(ms)
	if t.After(now.Add(lim.FutureSkew)) {
		return ingesterr.Reject(ingesterr.ReasonTimestampOutOfRange, "measurement_timestamp")
	}
	if t.Before(now.Add(-lim.MaxPastAge)) {
		return ingesterr.Reject(ingesterr.ReasonTimestampOutOfRange, "measurement_timestamp")
	}
	return nil
}

// QualityWeight applies I6: 2.0 for CONNECTED, 1.0 for SCAN, down-ranked
// to 1.5 when RSSI is strong (>= -65 dBm) but linkSpeed is unexpectedly
// low (< 25 Mbps).
func QualityWeight(connected bool, rssi int, linkSpeedMbps *int, connectedWeight, scanWeight, lowLinkWeight float64) float64 {
	if !connected {
		return scanWeight
	}
	if rssi >= -65 && linkSpeedMbps != nil && *linkSpeedMbps < 25 {
		return lowLinkWeight
	}
	return connectedWeight
}

// QualityScore normalizes weight against the maximum possible weight for
// the row type (connectedWeight for CONNECTED rows, scanWeight for SCAN
// rows), producing a value in [0, 1].
func QualityScore(weight float64, connected bool, connectedWeight, scanWeight float64) float64 {
	max := scanWeight
	if connected {
		max = connectedWeight
	}
	if max <= 0 {
		return 0
	}
	score := weight / max
	if score > 1 {
		return 1
	}
	return score
}
