package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/wifi-ingest-worker/internal/ingestevent"
)

type fakeProcessor struct {
	calls int
	err   error
}

func (f *fakeProcessor) Process(ctx context.Context, evt ingestevent.SourceEvent) error {
	f.calls++
	return f.err
}

func TestDispatch_RoutesByTag(t *testing.T) {
	mobile := &fakeProcessor{}
	def := &fakeProcessor{}
	d := New(map[string]Processor{
		"mobile":    mobile,
		defaultTag:  def,
	})

	err := d.Dispatch(context.Background(), ingestevent.SourceEvent{FeedTag: "mobile"})
	require.NoError(t, err)
	assert.Equal(t, 1, mobile.calls)
	assert.Equal(t, 0, def.calls)
}

func TestDispatch_FallsBackToDefault(t *testing.T) {
	def := &fakeProcessor{}
	d := New(map[string]Processor{defaultTag: def})

	err := d.Dispatch(context.Background(), ingestevent.SourceEvent{FeedTag: "unregistered"})
	require.NoError(t, err)
	assert.Equal(t, 1, def.calls)
}

func TestDispatch_NoMatchNoDefault(t *testing.T) {
	d := New(map[string]Processor{"mobile": &fakeProcessor{}})

	err := d.Dispatch(context.Background(), ingestevent.SourceEvent{FeedTag: "desktop"})
	require.Error(t, err)
}

func TestDispatch_PropagatesProcessorError(t *testing.T) {
	boom := errors.New("boom")
	d := New(map[string]Processor{defaultTag: &fakeProcessor{err: boom}})

	err := d.Dispatch(context.Background(), ingestevent.SourceEvent{FeedTag: "x"})
	assert.ErrorIs(t, err, boom)
}
