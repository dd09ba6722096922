// Package render shows published interaction contexts. A Poller watches a
// boundary source on its own cadence, independent of the segmentation loop,
// and hands every new publication to a Drawer.
package render

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/intact/interaction"
	"go.viam.com/intact/logging"
	pc "go.viam.com/intact/pointcloud"
)

// DefaultPollInterval is how often a Poller looks for a new publication.
const DefaultPollInterval = 100 * time.Millisecond

// Source returns the last published boundary, if any.
type Source interface {
	Current() (interaction.Publication, bool)
}

// SceneSource returns the last captured scene, or nil.
type SceneSource interface {
	LastScene() pc.PointCloud
}

// Drawer renders one publication.
type Drawer interface {
	Draw(ctx context.Context, pub interaction.Publication) error
}

// MultiDrawer draws to every drawer in order and combines their errors.
type MultiDrawer []Drawer

// Draw implements Drawer.
func (m MultiDrawer) Draw(ctx context.Context, pub interaction.Publication) error {
	var err error
	for _, d := range m {
		err = multierr.Combine(err, d.Draw(ctx, pub))
	}
	return err
}

// Poller polls a Source and draws each publication once.
type Poller struct {
	source   Source
	drawer   Drawer
	interval time.Duration
	clk      clock.Clock
	logger   logging.Logger

	lastSeq atomic.Int64
	draws   atomic.Int64

	mu                      sync.Mutex
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewPoller returns a poller reading source every interval. A zero interval
// selects DefaultPollInterval and a nil clock the wall clock.
func NewPoller(source Source, drawer Drawer, interval time.Duration, clk clock.Clock, logger logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{
		source:   source,
		drawer:   drawer,
		interval: interval,
		clk:      clk,
		logger:   logger,
	}
}

// Draws returns how many publications were handed to the drawer.
func (p *Poller) Draws() int64 {
	return p.draws.Load()
}

// PollOnce draws the current publication if it has not been drawn yet and
// reports whether it did.
func (p *Poller) PollOnce(ctx context.Context) (bool, error) {
	pub, ok := p.source.Current()
	if !ok || pub.Seq <= p.lastSeq.Load() {
		return false, nil
	}
	p.lastSeq.Store(pub.Seq)
	p.draws.Inc()
	if err := p.drawer.Draw(ctx, pub); err != nil {
		return true, errors.Wrapf(err, "drawing publication %d", pub.Seq)
	}
	return true, nil
}

// Start launches the polling goroutine.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("poller already started")
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		for {
			if _, err := p.PollOnce(cancelCtx); err != nil {
				p.logger.Warnw("draw failed", "error", err)
			}
			timer := p.clk.Timer(p.interval)
			select {
			case <-cancelCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}, p.activeBackgroundWorkers.Done)
	return nil
}

// Close stops polling and waits for an in-progress draw.
func (p *Poller) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.activeBackgroundWorkers.Wait()
}
