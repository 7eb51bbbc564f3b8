package measurement

import (
	"encoding/json"
	"fmt"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

// Encode serializes one Measurement as a single newline-terminated JSON
// line. It returns ingesterr.ErrRecordTooLarge if the encoded length
// exceeds maxRecordBytes; such a record must be dropped with a logged
// reason rather than sent downstream.
func Encode(m Measurement, maxRecordBytes int) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode measurement: %w", err)
	}
	data = append(data, '\n')

	if len(data) > maxRecordBytes {
		return nil, fmt.Errorf("encode measurement: %d bytes > max %d: %w", len(data), maxRecordBytes, ingesterr.ErrRecordTooLarge)
	}
	return data, nil
}
