// Package ingestevent parses a queue message body into a SourceEvent.
// It is pure: no I/O, no logging, no side effects.
package ingestevent

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

// SourceEvent is the immutable value derived from one queue message.
type SourceEvent struct {
	Bucket       string
	ObjectKey    string
	FeedTag      string
	ReceiptToken string
	MessageID    string
}

// eventBridgeShape matches payload shape A from spec.md §6.
type eventBridgeShape struct {
	Detail struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
}

// recordsShape matches payload shape B from spec.md §6.
type recordsShape struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Extract parses a queue payload into a SourceEvent. receiptToken and
// messageID come from the queue transport, not the body, and are
// attached verbatim.
func Extract(body []byte, receiptToken, messageID string) (SourceEvent, error) {
	var a eventBridgeShape
	if err := json.Unmarshal(body, &a); err == nil && a.Detail.Bucket.Name != "" && a.Detail.Object.Key != "" {
		return build(a.Detail.Bucket.Name, a.Detail.Object.Key, receiptToken, messageID)
	}

	var b recordsShape
	if err := json.Unmarshal(body, &b); err == nil && len(b.Records) > 0 {
		rec := b.Records[0]
		if rec.S3.Bucket.Name != "" && rec.S3.Object.Key != "" {
			return build(rec.S3.Bucket.Name, rec.S3.Object.Key, receiptToken, messageID)
		}
	}

	return SourceEvent{}, fmt.Errorf("extract event: %w", ingesterr.ErrMalformedEvent)
}

func build(bucket, rawKey, receiptToken, messageID string) (SourceEvent, error) {
	key, err := url.PathUnescape(rawKey)
	if err != nil {
		return SourceEvent{}, fmt.Errorf("extract event: decode key %q: %w", rawKey, ingesterr.ErrMalformedEvent)
	}

	return SourceEvent{
		Bucket:       bucket,
		ObjectKey:    key,
		FeedTag:      feedTagOf(key),
		ReceiptToken: receiptToken,
		MessageID:    messageID,
	}, nil
}

// feedTagOf returns the path segment immediately preceding the filename,
// or "" if the key has no "/".
func feedTagOf(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}
	prefix := key[:idx]
	prevIdx := strings.LastIndex(prefix, "/")
	return prefix[prevIdx+1:]
}
