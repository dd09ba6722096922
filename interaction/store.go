package interaction

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	pc "go.viam.com/intact/pointcloud"
)

// ContextSink receives the boundary of every successful cycle.
type ContextSink interface {
	SetContextBounds(b pc.Boundary)
}

// Publication is one published boundary. Seq starts at 1 and grows by one
// per publication.
type Publication struct {
	Boundary pc.Boundary `json:"boundary"`
	Seq      int64       `json:"seq"`
	Time     time.Time   `json:"time"`
}

// BoundaryStore holds the last published boundary. It has a single writer,
// the loop, and any number of readers; readers always see a whole
// publication and never block the writer.
type BoundaryStore struct {
	writeMu sync.Mutex
	current atomic.Pointer[Publication]
	clk     clock.Clock
}

// NewBoundaryStore returns an empty store stamping publications with clk.
func NewBoundaryStore(clk clock.Clock) *BoundaryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &BoundaryStore{clk: clk}
}

// SetContextBounds publishes b, replacing the previous boundary.
func (s *BoundaryStore) SetContextBounds(b pc.Boundary) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	var seq int64 = 1
	if prev := s.current.Load(); prev != nil {
		seq = prev.Seq + 1
	}
	s.current.Store(&Publication{Boundary: b, Seq: seq, Time: s.clk.Now()})
}

// Current returns the last publication. It returns false if nothing has been
// published yet.
func (s *BoundaryStore) Current() (Publication, bool) {
	p := s.current.Load()
	if p == nil {
		return Publication{}, false
	}
	return *p, true
}
