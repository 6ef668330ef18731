package mosaic

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gekko3d/mosaic/physics"
)

// Ticker is the part of the bridge that the pacing loop drives.
type Ticker interface {
	Tick() *Future[physics.Snapshot]
}

// PhysicsSync paces physics steps on its own clock, apart from the frame
// loop. At most one tick is in flight; beats that arrive meanwhile are owed
// and issued as soon as it settles. Frames only pick up the latest snapshot.
type PhysicsSync struct {
	ticker     Ticker
	interval   time.Duration
	maxBacklog int
	log        Logger
	metrics    *Metrics

	mu     sync.Mutex
	latest physics.Snapshot
	fresh  bool

	issued   atomic.Uint64
	applied  atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

func NewPhysicsSync(ticker Ticker, interval time.Duration, maxBacklog int, log Logger, metrics *Metrics) *PhysicsSync {
	if interval <= 0 {
		dt := physics.DefaultFixedTimestep
		interval = time.Duration(dt * float64(time.Second))
	}
	if maxBacklog < 1 {
		maxBacklog = 1
	}
	return &PhysicsSync{
		ticker:     ticker,
		interval:   interval,
		maxBacklog: maxBacklog,
		log:        orNop(log),
		metrics:    metrics,
	}
}

func (s *PhysicsSync) Interval() time.Duration { return s.interval }

// Issued is the number of ticks sent to the bridge.
func (s *PhysicsSync) Issued() uint64 { return s.issued.Load() }

// Applied is the number of snapshots copied onto the scene.
func (s *PhysicsSync) Applied() uint64 { return s.applied.Load() }

func (s *PhysicsSync) Rejected() uint64 { return s.rejected.Load() }

// Dropped is the number of beats lost because the backlog was full.
func (s *PhysicsSync) Dropped() uint64 { return s.dropped.Load() }

// Run issues one tick per interval until ctx is done.
func (s *PhysicsSync) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	return s.pace(ctx, ticker.C)
}

func (s *PhysicsSync) pace(ctx context.Context, beats <-chan time.Time) error {
	owed := 0
	var inFlight *Future[physics.Snapshot]
	var settled <-chan struct{}

	for {
		if inFlight == nil && owed > 0 {
			owed--
			inFlight = s.ticker.Tick()
			settled = inFlight.Done()
			s.issued.Add(1)
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-beats:
			if !ok {
				return nil
			}
			// Beats beyond the backlog are dropped; the simulation slows
			// down instead of spiralling.
			if owed < s.maxBacklog {
				owed++
			} else {
				s.dropped.Add(1)
			}
		case <-settled:
			s.settle(inFlight)
			inFlight, settled = nil, nil
		}
	}
}

func (s *PhysicsSync) settle(f *Future[physics.Snapshot]) {
	snap, _, err := f.Result()
	if err != nil {
		s.rejected.Add(1)
		s.log.Errorf("physics: tick failed: %v", err)
		return
	}
	s.mu.Lock()
	s.latest = snap
	s.fresh = true
	s.mu.Unlock()
}

// Update runs once per frame and never blocks. It applies the newest settled
// snapshot, if one arrived since the last frame.
func (s *PhysicsSync) Update(scene *Scene) {
	s.metrics.frame()

	s.mu.Lock()
	snap, fresh := s.latest, s.fresh
	s.latest, s.fresh = nil, false
	s.mu.Unlock()

	if fresh && scene != nil {
		scene.Apply(snap)
		s.applied.Add(1)
		s.metrics.snapshotApplied()
	}
}

func physicsSyncSystem(ps *PhysicsSync, scene *Scene) {
	ps.Update(scene)
}

// PhysicsModule applies simulated poses to the scene every frame. The pacing
// loop runs under its owner's context: pass Sync and call its Run, or fetch
// the resource after Build. The bridge is started and closed by its owner.
type PhysicsModule struct {
	Bridge       *PhysicsBridge
	Sync         *PhysicsSync
	TickInterval time.Duration
	MaxBacklog   int
	Metrics      *Metrics
}

func (mod PhysicsModule) Install(app *App, cmd *Commands) {
	ps := mod.Sync
	if ps == nil {
		ps = NewPhysicsSync(mod.Bridge, mod.TickInterval, mod.MaxBacklog, app.Logger(), mod.Metrics)
	}
	cmd.AddResources(mod.Bridge)
	cmd.AddResources(ps)
	cmd.UseSystem(System(physicsSyncSystem).InStage(PostUpdate))
}
