// Package dispatch routes a SourceEvent to the Processor registered for
// its feed tag, per spec.md §4.2.
package dispatch

import (
	"context"
	"fmt"

	"github.com/arc-self/wifi-ingest-worker/internal/ingestevent"
)

// Processor processes one SourceEvent end to end: read, decode, parse,
// validate, transform, serialize, and submit for delivery.
type Processor interface {
	Process(ctx context.Context, evt ingestevent.SourceEvent) error
}

// defaultTag is the registry key used when no processor is registered
// for an event's feed tag.
const defaultTag = "default"

// Dispatcher is an immutable, tag-keyed Processor registry. Register
// every processor before the first call to Dispatch; Dispatcher is safe
// for concurrent reads once built.
type Dispatcher struct {
	byTag map[string]Processor
}

// New builds a Dispatcher from a tag-to-processor map. The map is copied
// so the caller's map can be discarded or mutated afterward.
func New(byTag map[string]Processor) *Dispatcher {
	d := &Dispatcher{byTag: make(map[string]Processor, len(byTag))}
	for tag, p := range byTag {
		d.byTag[tag] = p
	}
	return d
}

// Dispatch routes evt to the processor registered for evt.FeedTag,
// falling back to the "default" entry when no specific match exists.
func (d *Dispatcher) Dispatch(ctx context.Context, evt ingestevent.SourceEvent) error {
	p, ok := d.byTag[evt.FeedTag]
	if !ok {
		p, ok = d.byTag[defaultTag]
	}
	if !ok {
		return fmt.Errorf("dispatch: no processor registered for feed tag %q and no default", evt.FeedTag)
	}
	return p.Process(ctx, evt)
}
