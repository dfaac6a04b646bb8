package build

import "sync/atomic"

// Counters collects the per-build tallies reported at the end of the run.
// All fields are safe for concurrent updates from workers and the writer.
type Counters struct {
	StoriesSkipped   atomic.Int64
	ArtifactsFailed  atomic.Int64
	ArtifactsWritten atomic.Int64
	RedirectsWritten atomic.Int64
	BytesWritten     atomic.Int64
}

// Report is the immutable snapshot logged and written to the log directory.
type Report struct {
	StoriesSkipped   int64
	ArtifactsFailed  int64
	ArtifactsWritten int64
	RedirectsWritten int64
	BytesWritten     int64
}

// Snapshot captures the current counter values.
func (c *Counters) Snapshot() Report {
	return Report{
		StoriesSkipped:   c.StoriesSkipped.Load(),
		ArtifactsFailed:  c.ArtifactsFailed.Load(),
		ArtifactsWritten: c.ArtifactsWritten.Load(),
		RedirectsWritten: c.RedirectsWritten.Load(),
		BytesWritten:     c.BytesWritten.Load(),
	}
}
