// Package measurement defines the normalized, flattened Measurement
// record and its JSON serialization.
package measurement

// ConnectionStatus is the Measurement.ConnectionStatus enum.
type ConnectionStatus string

const (
	StatusConnected ConnectionStatus = "CONNECTED"
	StatusScan      ConnectionStatus = "SCAN"
)

// Measurement is the normalized, flattened record delivered downstream.
// Field names follow spec.md §3; JSON tags use snake_case per spec.md §6.
type Measurement struct {
	// Required fields.
	BSSID                string           `json:"bssid"`
	MeasurementTimestamp int64            `json:"measurement_timestamp"`
	EventID              string           `json:"event_id"`
	Latitude             float64          `json:"latitude"`
	Longitude            float64          `json:"longitude"`
	RSSI                 int              `json:"rssi"`
	ConnectionStatus     ConnectionStatus `json:"connection_status"`
	QualityWeight        float64          `json:"quality_weight"`
	IngestionTimestamp   int64            `json:"ingestion_timestamp"`
	ProcessingBatchID    string           `json:"processing_batch_id"`

	// Device.
	DeviceID           *string `json:"device_id,omitempty"`
	DeviceModel        *string `json:"device_model,omitempty"`
	DeviceManufacturer *string `json:"device_manufacturer,omitempty"`
	OSVersion          *string `json:"os_version,omitempty"`
	AppVersion         *string `json:"app_version,omitempty"`

	// Location.
	Altitude          *float64 `json:"altitude,omitempty"`
	LocationAccuracy  *float64 `json:"location_accuracy,omitempty"`
	LocationTimestamp *int64   `json:"location_timestamp,omitempty"`
	LocationProvider  *string  `json:"location_provider,omitempty"`
	LocationSource    *string  `json:"location_source,omitempty"`
	Speed             *float64 `json:"speed,omitempty"`
	Bearing           *float64 `json:"bearing,omitempty"`

	// Wifi.
	SSID          *string `json:"ssid,omitempty"`
	Frequency     *int    `json:"frequency,omitempty"`
	ScanTimestamp *int64  `json:"scan_timestamp,omitempty"`

	// Connected-only (always nil on SCAN rows).
	LinkSpeed            *int    `json:"link_speed,omitempty"`
	ChannelWidth         *int    `json:"channel_width,omitempty"`
	CenterFreq0          *int    `json:"center_freq0,omitempty"`
	CenterFreq1          *int    `json:"center_freq1,omitempty"`
	Capabilities         *string `json:"capabilities,omitempty"`
	Is80211McResponder   *bool   `json:"is_80211mc_responder,omitempty"`
	IsPasspointNetwork   *bool   `json:"is_passpoint_network,omitempty"`
	OperatorFriendlyName *string `json:"operator_friendly_name,omitempty"`
	VenueName            *string `json:"venue_name,omitempty"`
	IsCaptive            *bool   `json:"is_captive,omitempty"`
	NumScanResults       *int    `json:"num_scan_results,omitempty"`

	// Processing.
	DataVersion  *string  `json:"data_version,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`

	// Global-outlier columns: always null, kept for downstream schema
	// compatibility (spec.md §3).
	OutlierFlag *bool `json:"outlier_flag,omitempty"`
}
