package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

type fakeGetter struct {
	body string
	err  error
}

func (g *fakeGetter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if g.err != nil {
		return nil, g.err
	}
	return io.NopCloser(strings.NewReader(g.body)), nil
}

func TestOpenLines_VisitsEachLine(t *testing.T) {
	g := &fakeGetter{body: "line1\nline2\nline3"}

	var got []string
	err := OpenLines(context.Background(), g, "b", "k", func(line string) error {
		got = append(got, line)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2", "line3"}, got)
}

func TestOpenLines_StopsOnVisitError(t *testing.T) {
	g := &fakeGetter{body: "line1\nline2\nline3"}
	boom := errors.New("stop")

	var got []string
	err := OpenLines(context.Background(), g, "b", "k", func(line string) error {
		got = append(got, line)
		if len(got) == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 2)
}

func TestOpenLines_PropagatesTransientGetError(t *testing.T) {
	g := &fakeGetter{err: errors.New("network blip")}

	err := OpenLines(context.Background(), g, "b", "k", func(string) error { return nil })
	assert.ErrorIs(t, err, ingesterr.ErrTransientRead)
}

func TestOpenLines_NotFound(t *testing.T) {
	g := &fakeGetter{err: errors.New("no such key")}

	err := OpenLines(context.Background(), g, "b", "k", func(string) error { return nil })
	assert.ErrorIs(t, err, ingesterr.ErrObjectNotFound)
}
