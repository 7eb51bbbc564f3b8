// Package config loads the worker's runtime configuration from
// environment variables, matching the os.Getenv-with-defaults style used
// throughout this codebase's service entrypoints.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable named in the service's external interface.
// It is built once in main and passed down explicitly; nothing here is
// read from a package-level global.
type Config struct {
	QueueURL          string
	MaxMessages       int32
	WaitSeconds       int32
	VisibilitySeconds int32

	StreamName string

	MaxBatchRecords int
	MaxBatchBytes   int
	MaxRecordBytes  int
	MaxRetries      int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	DeliveryWorkers int

	MaxAccuracyMeters float64
	RSSIMin           int
	RSSIMax           int
	MaxPastAge        time.Duration
	FutureSkew        time.Duration

	ConnectedWeight    float64
	ScanWeight         float64
	LowLinkSpeedWeight float64

	OuiEnabled  bool
	OuiAction   string
	OuiPrefixes []string

	DeadLetterStreamName string

	AWSRegion   string
	AWSEndpoint string

	HTTPAddr string
	LogJSON  bool
}

// Load builds a Config from the process environment, applying the
// defaults listed in spec.md §6.
func Load() Config {
	return Config{
		QueueURL:          os.Getenv("WIFI_INGEST_QUEUE_URL"),
		MaxMessages:       int32(envInt("WIFI_INGEST_MAX_MESSAGES", 10)),
		WaitSeconds:       int32(envInt("WIFI_INGEST_WAIT_SECONDS", 20)),
		VisibilitySeconds: int32(envInt("WIFI_INGEST_VISIBILITY_SECONDS", 300)),

		StreamName: os.Getenv("WIFI_INGEST_STREAM_NAME"),

		MaxBatchRecords: envInt("WIFI_INGEST_MAX_BATCH_RECORDS", 500),
		MaxBatchBytes:   envInt("WIFI_INGEST_MAX_BATCH_BYTES", 4*1024*1024),
		MaxRecordBytes:  envInt("WIFI_INGEST_MAX_RECORD_BYTES", 1_024_000),
		MaxRetries:      envInt("WIFI_INGEST_MAX_RETRIES", 3),
		BaseBackoff:     envDuration("WIFI_INGEST_BASE_BACKOFF_MS", time.Second),
		MaxBackoff:      envDuration("WIFI_INGEST_MAX_BACKOFF_MS", 30*time.Second),
		DeliveryWorkers: envInt("WIFI_INGEST_DELIVERY_CONCURRENCY", 2),

		MaxAccuracyMeters: envFloat("WIFI_INGEST_MAX_ACCURACY_METERS", 150),
		RSSIMin:           envInt("WIFI_INGEST_RSSI_MIN", -100),
		RSSIMax:           envInt("WIFI_INGEST_RSSI_MAX", 0),
		MaxPastAge:        envDurationHours("WIFI_INGEST_MAX_PAST_AGE_HOURS", 10*365*24*time.Hour),
		FutureSkew:        envDurationSeconds("WIFI_INGEST_FUTURE_SKEW_SECONDS", 5*time.Minute),

		ConnectedWeight:    envFloat("WIFI_INGEST_CONNECTED_WEIGHT", 2.0),
		ScanWeight:         envFloat("WIFI_INGEST_SCAN_WEIGHT", 1.0),
		LowLinkSpeedWeight: envFloat("WIFI_INGEST_LOW_LINK_SPEED_WEIGHT", 1.5),

		OuiEnabled:  envBool("WIFI_INGEST_OUI_ENABLED", false),
		OuiAction:   envString("WIFI_INGEST_OUI_ACTION", "flag"),
		OuiPrefixes: envList("WIFI_INGEST_OUI_PREFIXES"),

		DeadLetterStreamName: os.Getenv("WIFI_INGEST_DEAD_LETTER_STREAM"),

		AWSRegion:   envString("AWS_REGION", "us-east-1"),
		AWSEndpoint: os.Getenv("WIFI_INGEST_AWS_ENDPOINT"),

		HTTPAddr: envString("WIFI_INGEST_HTTP_ADDR", ":8080"),
		LogJSON:  envString("LOG_FORMAT", "json") != "console",
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(s) * time.Second
}

func envDurationHours(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	h, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(h) * time.Hour
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
