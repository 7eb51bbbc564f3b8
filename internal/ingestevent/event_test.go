package ingestevent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

func TestExtract_EventBridgeShape(t *testing.T) {
	body := []byte(`{"detail":{"bucket":{"name":"scans-bucket"},"object":{"key":"feeds/mobile/2026/07/31/part-0001.ndjson.gz"}}}`)

	evt, err := Extract(body, "receipt-1", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "scans-bucket", evt.Bucket)
	assert.Equal(t, "feeds/mobile/2026/07/31/part-0001.ndjson.gz", evt.ObjectKey)
	assert.Equal(t, "31", evt.FeedTag)
	assert.Equal(t, "receipt-1", evt.ReceiptToken)
	assert.Equal(t, "msg-1", evt.MessageID)
}

func TestExtract_RecordsShape(t *testing.T) {
	body := []byte(`{"Records":[{"s3":{"bucket":{"name":"scans-bucket"},"object":{"key":"feeds/desktop/file.ndjson.gz"}}}]}`)

	evt, err := Extract(body, "receipt-2", "msg-2")
	require.NoError(t, err)
	assert.Equal(t, "scans-bucket", evt.Bucket)
	assert.Equal(t, "feeds/desktop/file.ndjson.gz", evt.ObjectKey)
	assert.Equal(t, "desktop", evt.FeedTag)
}

func TestExtract_PercentEncodedKey(t *testing.T) {
	body := []byte(`{"detail":{"bucket":{"name":"b"},"object":{"key":"feeds/tag/file%2Bwith%2Bplus.ndjson.gz"}}}`)

	evt, err := Extract(body, "r", "m")
	require.NoError(t, err)
	assert.Equal(t, "feeds/tag/file+with+plus.ndjson.gz", evt.ObjectKey)
}

func TestExtract_Malformed(t *testing.T) {
	_, err := Extract([]byte(`{"not":"a recognized shape"}`), "r", "m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingesterr.ErrMalformedEvent))
}

func TestFeedTagOf(t *testing.T) {
	cases := map[string]string{
		"feeds/mobile/file.gz": "mobile",
		"file.gz":              "",
		"a/b/c/file.gz":        "c",
	}
	for key, want := range cases {
		assert.Equal(t, want, feedTagOf(key), key)
	}
}
