package processor

import (
	"sync"

	"github.com/pkg/errors"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/queue"
)

// ErrMarkerMismatch means the number of end-of-stream markers crossing an
// edge differs from the number of participants that produce or consume
// them. Running such a graph would deadlock or stop early.
var ErrMarkerMismatch = errors.New("end-of-stream marker count mismatch")

// Edge is a queue boundary together with the number of EndOfStream markers
// that will cross it. Markers enter either from a single source that seals
// the edge with all of them, or from producer workers forwarding one each.
// They leave either through consumer workers taking one each, or through a
// single sink that drains them all.
type Edge struct {
	name    string
	queue   *queue.BoundedQueue[common.StreamItem]
	markers int

	mu        sync.Mutex
	sources   int
	producers int
	consumers int
	sinks     int
}

// NewEdge creates an edge whose queue holds capacity items and which will
// carry exactly markers end-of-stream markers.
func NewEdge(name string, capacity, markers int) *Edge {
	return &Edge{
		name:    name,
		queue:   queue.New[common.StreamItem](capacity),
		markers: markers,
	}
}

// Name identifies the edge in logs and errors.
func (e *Edge) Name() string { return e.name }

// Markers is the number of markers that cross the edge.
func (e *Edge) Markers() int { return e.markers }

// Len is a diagnostic snapshot of the queued items.
func (e *Edge) Len() int { return e.queue.Len() }

// Push hands item to the edge.
func (e *Edge) Push(item common.StreamItem) { e.queue.Push(item) }

// Pop takes the next item from the edge.
func (e *Edge) Pop() common.StreamItem { return e.queue.Pop() }

// Seal pushes every marker the edge carries. Only a source calls it.
func (e *Edge) Seal() {
	for i := 0; i < e.markers; i++ {
		e.queue.Push(common.EndOfStream{})
	}
}

// Forward pushes a single marker on behalf of one producer worker.
func (e *Edge) Forward() {
	e.queue.Push(common.EndOfStream{})
}

func (e *Edge) attachProducer() {
	e.mu.Lock()
	e.producers++
	e.mu.Unlock()
}

func (e *Edge) attachConsumer() {
	e.mu.Lock()
	e.consumers++
	e.mu.Unlock()
}

// AttachSource registers a component that seals the edge.
func (e *Edge) AttachSource() {
	e.mu.Lock()
	e.sources++
	e.mu.Unlock()
}

// AttachSink registers a component that drains every marker.
func (e *Edge) AttachSink() {
	e.mu.Lock()
	e.sinks++
	e.mu.Unlock()
}

// Check verifies that markers in equal markers out on this edge.
func (e *Edge) Check() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.markers < 1 {
		return errors.Wrapf(ErrMarkerMismatch, "edge %q carries %d markers", e.name, e.markers)
	}

	switch {
	case e.sources == 1 && e.producers == 0:
	case e.sources == 0 && e.producers == e.markers:
	default:
		return errors.Wrapf(ErrMarkerMismatch,
			"edge %q: %d markers in, %d sources, %d producer workers",
			e.name, e.markers, e.sources, e.producers)
	}

	switch {
	case e.sinks == 1 && e.consumers == 0:
	case e.sinks == 0 && e.consumers == e.markers:
	default:
		return errors.Wrapf(ErrMarkerMismatch,
			"edge %q: %d markers out, %d sinks, %d consumer workers",
			e.name, e.markers, e.sinks, e.consumers)
	}
	return nil
}
