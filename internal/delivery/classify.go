package delivery

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Class is the three-way error classification from spec.md §4.9.
type Class string

const (
	Permanent Class = "PERMANENT"
	Retriable Class = "RETRIABLE"
	Unknown   Class = "UNKNOWN"
)

var permanentCodes = map[string]struct{}{
	"ResourceNotFoundException": {},
	"InvalidArgumentException":  {},
	"AccessDeniedException":     {},
}

var retriableCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"KMSThrottlingException":                 {},
	"InternalFailure":                        {},
	"ServiceUnavailable":                     {},
	"LimitExceededException":                 {},
	"RequestTimeout":                         {},
	"RequestTimeoutException":                {},
	"ThrottlingException":                    {},
}

// classifyCode maps a Kinesis PutRecordsResultEntry.ErrorCode to Class.
func classifyCode(code string) Class {
	if code == "" {
		return Unknown
	}
	if _, ok := permanentCodes[code]; ok {
		return Permanent
	}
	if _, ok := retriableCodes[code]; ok {
		return Retriable
	}
	if strings.Contains(strings.ToLower(code), "throttl") {
		return Retriable
	}
	return Unknown
}

// classifyErr maps a batch-level (whole-call) error to Class, preferring
// the smithy API error code when the SDK surfaces one.
func classifyErr(err error) Class {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classifyCode(apiErr.ErrorCode())
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"), strings.Contains(msg, "unavailable"), strings.Contains(msg, "throttl"):
		return Retriable
	case strings.Contains(msg, "not found"), strings.Contains(msg, "invalid"), strings.Contains(msg, "denied"):
		return Permanent
	default:
		return Unknown
	}
}
