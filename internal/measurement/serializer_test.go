package measurement

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

func TestEncode_Basic(t *testing.T) {
	m := Measurement{
		BSSID:                "aa:bb:cc:dd:ee:ff",
		MeasurementTimestamp: 123,
		Latitude:             37.4,
		Longitude:            -122.1,
		RSSI:                 -55,
		ConnectionStatus:     StatusConnected,
		QualityWeight:        2.0,
		ProcessingBatchID:    "batch-1",
	}

	data, err := Encode(m, 1024)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", decoded["bssid"])
	assert.Equal(t, "CONNECTED", decoded["connection_status"])
	assert.Nil(t, decoded["outlier_flag"])
}

func TestEncode_TooLarge(t *testing.T) {
	m := Measurement{BSSID: "aa:bb:cc:dd:ee:ff"}
	_, err := Encode(m, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingesterr.ErrRecordTooLarge))
}
