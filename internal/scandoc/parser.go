package scandoc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

// Parse decodes bytes as one ScanDocument. Unknown fields are tolerated
// (encoding/json ignores them by default; DisallowUnknownFields is
// deliberately not set here). Any parse error is wrapped in
// ingesterr.ErrParse so callers can log-and-skip per spec.md §4.5.
func Parse(data []byte) (ScanDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc ScanDocument
	if err := dec.Decode(&doc); err != nil {
		return ScanDocument{}, fmt.Errorf("parse scan document: %v: %w", err, ingesterr.ErrParse)
	}
	return doc, nil
}
