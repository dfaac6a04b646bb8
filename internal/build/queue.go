package build

import (
	"context"

	"github.com/IMayBeABitShy/zimfiction/internal/render"
)

// ArtifactQueue is the bounded channel between render workers and the ZIM
// writer. A full queue blocks producers; that blocking is the build's
// backpressure mechanism, so the capacity must stay small relative to the
// artifact stream.
type ArtifactQueue struct {
	ch chan render.Artifact
}

// NewArtifactQueue creates a queue with the given capacity.
func NewArtifactQueue(capacity int) *ArtifactQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ArtifactQueue{ch: make(chan render.Artifact, capacity)}
}

// Push enqueues one artifact, blocking while the queue is full. It returns
// the context error when the build is cancelled instead.
func (q *ArtifactQueue) Push(ctx context.Context, artifact render.Artifact) error {
	select {
	case q.ch <- artifact:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals the consumer that no further artifacts will arrive.
func (q *ArtifactQueue) Close() {
	close(q.ch)
}

// Drain returns the receive side for the single writer goroutine.
func (q *ArtifactQueue) Drain() <-chan render.Artifact {
	return q.ch
}
