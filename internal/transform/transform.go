// Package transform flattens a validated ScanDocument into zero or more
// Measurements, per spec.md §4.7.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
	"github.com/arc-self/wifi-ingest-worker/internal/measurement"
	"github.com/arc-self/wifi-ingest-worker/internal/scandoc"
	"github.com/arc-self/wifi-ingest-worker/internal/validate"
)

// Context carries the values shared by every Measurement produced from
// one input object (I8).
type Context struct {
	ProcessingBatchID  string
	IngestionTimestamp int64
}

// Weights bundles the configurable quality-weight inputs (spec.md §6).
type Weights struct {
	Connected float64
	Scan      float64
	LowLink   float64
}

// OuiPolicy is the optional mobile-hotspot exclusion plug point
// (spec.md §4.7, §9). A zero-value OuiPolicy is disabled.
type OuiPolicy struct {
	Enabled  bool
	Action   string // "flag" | "exclude" | "log"
	Prefixes map[string]struct{}
}

// Excludes reports whether bssid should be dropped before emission. Only
// the "exclude" action drops; "flag"/"log" never exclude here (a future
// enrichment could stamp a flag field instead).
func (p OuiPolicy) Excludes(bssid string) bool {
	if !p.Enabled || p.Action != "exclude" || len(p.Prefixes) == 0 {
		return false
	}
	norm := strings.ToUpper(strings.ReplaceAll(bssid, ":", ""))
	for prefix := range p.Prefixes {
		normPrefix := strings.ToUpper(strings.ReplaceAll(prefix, ":", ""))
		if strings.HasPrefix(norm, normPrefix) {
			return true
		}
	}
	return false
}

// Rejection records one dropped observation for logging/counting by the
// caller; it carries no behavior of its own.
type Rejection struct {
	Reason ingesterr.RejectReason
	Detail string
}

// Result is the outcome of transforming one ScanDocument.
type Result struct {
	Measurements []measurement.Measurement
	Rejections   []Rejection
}

// Document flattens doc into measurements. limits and weights come from
// configuration; oui is the optional exclusion policy; now is injected
// for deterministic timestamp-bound checks in tests.
func Document(doc scandoc.ScanDocument, ctx Context, lim validate.Limits, w Weights, oui OuiPolicy, now time.Time) Result {
	var res Result

	deviceID := hashedOrNil(doc.DeviceID)
	model := strOrNil(doc.Model)
	manufacturer := strOrNil(doc.Manufacturer)
	osVersion := strOrNil(doc.OSVersion)
	appVersion := strOrNil(doc.AppVersion)
	dataVersion := strOrNil(doc.DataVersion)

	for _, evt := range doc.WifiConnectedEvents {
		m, rej, ok := connectedMeasurement(evt, ctx, lim, w, oui, now)
		if !ok {
			res.Rejections = append(res.Rejections, rej)
			continue
		}
		m.DeviceID = deviceID
		m.DeviceModel = model
		m.DeviceManufacturer = manufacturer
		m.OSVersion = osVersion
		m.AppVersion = appVersion
		m.DataVersion = dataVersion
		res.Measurements = append(res.Measurements, m)
	}

	for _, group := range doc.ScanResults {
		for _, r := range group.Results {
			m, rej, ok := scanMeasurement(group, r, ctx, lim, w, oui, now)
			if !ok {
				res.Rejections = append(res.Rejections, rej)
				continue
			}
			m.DeviceID = deviceID
			m.DeviceModel = model
			m.DeviceManufacturer = manufacturer
			m.OSVersion = osVersion
			m.AppVersion = appVersion
			m.DataVersion = dataVersion
			res.Measurements = append(res.Measurements, m)
		}
	}

	return res
}

func connectedMeasurement(evt scandoc.WifiConnectedEvent, ctx Context, lim validate.Limits, w Weights, oui OuiPolicy, now time.Time) (measurement.Measurement, Rejection, bool) {
	info := evt.WifiConnectedInfo

	bssid, err := validate.BSSID(info.BSSID)
	if err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}
	if oui.Excludes(bssid) {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonOuiExcluded, Detail: bssid}, false
	}

	if err := validate.RSSI(info.RSSI, lim); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	loc := innermostLocation(evt.Location, nil)
	if loc == nil {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonMissingCoords}, false
	}
	if err := validate.Coords(loc.Latitude, loc.Longitude); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}
	if err := validate.Accuracy(loc.Accuracy, lim); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	ts := timestampOf(evt.Timestamp, loc.Time)
	if ts == nil {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonTimestampOutOfRange, Detail: "missing timestamp"}, false
	}
	if err := validate.Timestamp(*ts, lim, now); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	weight := validate.QualityWeight(true, info.RSSI, info.LinkSpeed, w.Connected, w.Scan, w.LowLink)
	score := validate.QualityScore(weight, true, w.Connected, w.Scan)

	m := measurement.Measurement{
		BSSID:                bssid,
		MeasurementTimestamp: *ts,
		EventID:              strVal(evt.EventID),
		Latitude:             loc.Latitude,
		Longitude:            loc.Longitude,
		RSSI:                 info.RSSI,
		ConnectionStatus:     measurement.StatusConnected,
		QualityWeight:        weight,
		IngestionTimestamp:   ctx.IngestionTimestamp,
		ProcessingBatchID:    ctx.ProcessingBatchID,

		Altitude:          loc.Altitude,
		LocationAccuracy:  loc.Accuracy,
		LocationTimestamp: loc.Time,
		LocationProvider:  loc.Provider,
		LocationSource:    loc.Source,
		Speed:             loc.Speed,
		Bearing:           loc.Bearing,

		SSID:          cleanSSID(info.SSID),
		Frequency:     info.Frequency,
		ScanTimestamp: evt.Timestamp,

		LinkSpeed:            info.LinkSpeed,
		ChannelWidth:         info.ChannelWidth,
		CenterFreq0:          info.CenterFreq0,
		CenterFreq1:          info.CenterFreq1,
		Capabilities:         info.Capabilities,
		Is80211McResponder:   info.Is80211McResponder,
		IsPasspointNetwork:   info.IsPasspointNetwork,
		OperatorFriendlyName: info.OperatorFriendlyName,
		VenueName:            info.VenueName,
		IsCaptive:            info.IsCaptive,
		NumScanResults:       info.NumScanResults,

		QualityScore: &score,
	}
	return m, Rejection{}, true
}

func scanMeasurement(group scandoc.ScanResultsGroup, r scandoc.ScanResultEntry, ctx Context, lim validate.Limits, w Weights, oui OuiPolicy, now time.Time) (measurement.Measurement, Rejection, bool) {
	bssid, err := validate.BSSID(r.BSSID)
	if err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}
	if oui.Excludes(bssid) {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonOuiExcluded, Detail: bssid}, false
	}

	if err := validate.RSSI(r.RSSI, lim); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	loc := innermostLocation(group.Location, nil)
	if loc == nil {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonMissingCoords}, false
	}
	if err := validate.Coords(loc.Latitude, loc.Longitude); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}
	if err := validate.Accuracy(loc.Accuracy, lim); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	ts := timestampOf(r.ScanTime, group.Timestamp)
	if ts == nil {
		return measurement.Measurement{}, Rejection{Reason: ingesterr.ReasonTimestampOutOfRange, Detail: "missing timestamp"}, false
	}
	if err := validate.Timestamp(*ts, lim, now); err != nil {
		return measurement.Measurement{}, rejectionOf(err), false
	}

	weight := validate.QualityWeight(false, r.RSSI, nil, w.Connected, w.Scan, w.LowLink)
	score := validate.QualityScore(weight, false, w.Connected, w.Scan)

	m := measurement.Measurement{
		BSSID:                bssid,
		MeasurementTimestamp: *ts,
		EventID:              "",
		Latitude:             loc.Latitude,
		Longitude:            loc.Longitude,
		RSSI:                 r.RSSI,
		ConnectionStatus:     measurement.StatusScan,
		QualityWeight:        weight,
		IngestionTimestamp:   ctx.IngestionTimestamp,
		ProcessingBatchID:    ctx.ProcessingBatchID,

		Altitude:          loc.Altitude,
		LocationAccuracy:  loc.Accuracy,
		LocationTimestamp: loc.Time,
		LocationProvider:  loc.Provider,
		LocationSource:    loc.Source,
		Speed:             loc.Speed,
		Bearing:           loc.Bearing,

		SSID:          cleanSSID(r.SSID),
		Frequency:     r.Frequency,
		ScanTimestamp: r.ScanTime,

		QualityScore: &score,
	}
	return m, Rejection{}, true
}

// innermostLocation prefers the more specific (inner) location when both
// are present, per spec.md §4.7 ("innermost non-null").
func innermostLocation(inner, outer *scandoc.Location) *scandoc.Location {
	if inner != nil {
		return inner
	}
	return outer
}

// timestampOf prefers the primary timestamp, falling back to the
// secondary one: the location time for connected events, the enclosing
// scan group's timestamp for scan results (spec.md §4.7).
func timestampOf(primary *int64, fallback *int64) *int64 {
	if primary != nil {
		return primary
	}
	return fallback
}

func rejectionOf(err error) Rejection {
	if re, ok := err.(*ingesterr.RejectError); ok {
		return Rejection{Reason: re.Reason, Detail: re.Field}
	}
	return Rejection{Reason: ingesterr.ReasonUnknown, Detail: err.Error()}
}

func hashedOrNil(v string) *string {
	if v == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(v))
	hex := hex.EncodeToString(sum[:])
	return &hex
}

func strOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func strVal(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// cleanSSID trims whitespace and nulls-out pure-null-character SSIDs
// per spec.md §4.7.
func cleanSSID(ssid *string) *string {
	if ssid == nil {
		return nil
	}
	trimmed := strings.TrimFunc(*ssid, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	onlyNulls := true
	for _, r := range trimmed {
		if r != 0 {
			onlyNulls = false
			break
		}
	}
	if trimmed == "" || onlyNulls {
		return nil
	}
	return &trimmed
}
