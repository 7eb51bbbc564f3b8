// Package ingesterr defines the error kinds enumerated in the service's
// error handling design. Each kind is a sentinel that call sites wrap
// with errors.Is-compatible context via fmt.Errorf("...: %w", err).
package ingesterr

import "errors"

var (
	// ErrMalformedEvent marks a queue payload that matches neither of the
	// two accepted message shapes.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrObjectNotFound marks a missing source object; the message is
	// deleted, no recovery is possible.
	ErrObjectNotFound = errors.New("object not found")
	// ErrAccessDenied marks a permissions failure reading the source
	// object; the message is deleted, no recovery is possible.
	ErrAccessDenied = errors.New("access denied")
	// ErrTransientRead marks a recoverable failure reading the source
	// object; the message must not be deleted so the queue redelivers it.
	ErrTransientRead = errors.New("transient read failure")
	// ErrDecode marks a line that failed base64/gzip decoding.
	ErrDecode = errors.New("decode error")
	// ErrParse marks a decoded line that is not a valid scan document.
	ErrParse = errors.New("parse error")
	// ErrValidationReject marks a document or observation that failed a
	// sanity check; see Reason for which one.
	ErrValidationReject = errors.New("validation reject")
	// ErrRecordTooLarge marks a serialized record exceeding maxRecordBytes.
	ErrRecordTooLarge = errors.New("record too large")
	// ErrDeliveryPermanent marks a delivery failure that must not be
	// retried (stream-not-found / invalid-argument class).
	ErrDeliveryPermanent = errors.New("permanent delivery error")
	// ErrDeliveryRetriable marks a delivery failure eligible for backoff
	// retry (throttling / unavailable / transport / 5xx class).
	ErrDeliveryRetriable = errors.New("retriable delivery error")
	// ErrDeliveryUnknown marks a delivery failure of unrecognized shape;
	// treated conservatively as non-retriable.
	ErrDeliveryUnknown = errors.New("unknown delivery error")
	// ErrThrottled marks an explicit throttling response; always retriable.
	ErrThrottled = errors.New("throttled")
)

// RejectReason enumerates the Validator's reject codes (spec.md §4.6).
type RejectReason string

const (
	ReasonMissingCoords        RejectReason = "MISSING_COORDS"
	ReasonCoordsOutOfRange     RejectReason = "COORDS_OUT_OF_RANGE"
	ReasonRSSIOutOfRange       RejectReason = "RSSI_OUT_OF_RANGE"
	ReasonAccuracyTooHigh      RejectReason = "ACCURACY_TOO_HIGH"
	ReasonMissingBSSID         RejectReason = "MISSING_BSSID"
	ReasonMalformedBSSID       RejectReason = "MALFORMED_BSSID"
	ReasonTimestampOutOfRange  RejectReason = "TIMESTAMP_OUT_OF_RANGE"
	ReasonBroadcastBSSID       RejectReason = "BROADCAST_BSSID"
	ReasonZeroBSSID            RejectReason = "ZERO_BSSID"
	ReasonOuiExcluded          RejectReason = "OUI_EXCLUDED"
	ReasonUnknown              RejectReason = "UNKNOWN"
)

// RejectError pairs a RejectReason with the field path it applies to.
type RejectError struct {
	Reason RejectReason
	Field  string
}

func (e *RejectError) Error() string {
	if e.Field == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Field
}

func (e *RejectError) Unwrap() error { return ErrValidationReject }

// Reject constructs a RejectError for the given reason/field.
func Reject(reason RejectReason, field string) *RejectError {
	return &RejectError{Reason: reason, Field: field}
}
