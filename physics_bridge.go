package mosaic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gekko3d/mosaic/physics"
)

var (
	ErrBridgeClosed   = errors.New("physics bridge closed")
	ErrBridgeRejected = errors.New("physics request rejected")
)

// BridgeRejection is the error of a request the physics worker failed.
// errors.Is matches both ErrBridgeRejected and the worker's cause.
type BridgeRejection struct {
	Op  string
	Err error
}

func (r *BridgeRejection) Error() string {
	return fmt.Sprintf("physics %s rejected: %v", r.Op, r.Err)
}

func (r *BridgeRejection) Unwrap() []error { return []error{ErrBridgeRejected, r.Err} }

type BridgeConfig struct {
	World         physics.WorldSettings
	FixedTimestep float64
}

func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		World:         physics.DefaultWorldSettings(),
		FixedTimestep: physics.DefaultFixedTimestep,
	}
}

// BodyBridge is the part of the bridge a physics-backed mesh talks to.
type BodyBridge interface {
	RegisterBody(id string, geometry physics.Geometry, pose physics.Pose, opts physics.BodyOptions) *Future[struct{}]
	SetBodyPose(id string, position physics.Vec3, quaternion physics.Quat) *Future[struct{}]
}

type request interface {
	op() string
	reject(err error)
}

type registerRequest struct {
	id       string
	geometry physics.Geometry
	pose     physics.Pose
	opts     physics.BodyOptions
	reply    *Future[struct{}]
}

type setPoseRequest struct {
	id         string
	position   physics.Vec3
	quaternion physics.Quat
	reply      *Future[struct{}]
}

type tickRequest struct {
	reply *Future[physics.Snapshot]
}

type worldRequest struct {
	reply *Future[physics.WorldView]
}

type configureRequest struct {
	settings physics.WorldSettings
	reply    *Future[struct{}]
}

const (
	opRegister  = "register"
	opSetPose   = "set_pose"
	opTick      = "tick"
	opWorld     = "world"
	opConfigure = "configure"
)

func (r *registerRequest) op() string  { return opRegister }
func (r *setPoseRequest) op() string   { return opSetPose }
func (r *tickRequest) op() string      { return opTick }
func (r *worldRequest) op() string     { return opWorld }
func (r *configureRequest) op() string { return opConfigure }

func (r *registerRequest) reject(err error)  { r.reply.settle(struct{}{}, err) }
func (r *setPoseRequest) reject(err error)   { r.reply.settle(struct{}{}, err) }
func (r *tickRequest) reject(err error)      { r.reply.settle(nil, err) }
func (r *worldRequest) reject(err error)     { r.reply.settle(physics.WorldView{}, err) }
func (r *configureRequest) reject(err error) { r.reply.settle(struct{}{}, err) }

// PhysicsBridge runs the simulation world on its own goroutine. Every call
// returns at once with a Future. Requests are applied in the order they were
// made, so a body's registration is always seen before its pose updates.
type PhysicsBridge struct {
	cfg     BridgeConfig
	log     Logger
	metrics *Metrics

	mu      sync.Mutex
	queue   []request
	tick    *Future[physics.Snapshot]
	started bool
	closed  bool
	quitted bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewPhysicsBridge(cfg BridgeConfig, log Logger, metrics *Metrics) *PhysicsBridge {
	return &PhysicsBridge{
		cfg:     cfg,
		log:     orNop(log),
		metrics: metrics,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. The worker exits when ctx is done or Close is
// called; requests still queued are rejected with ErrBridgeClosed.
func (b *PhysicsBridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	go b.run(ctx)
}

// Close stops the worker and waits for it to exit. It is safe to call more
// than once, and after the start context is done.
func (b *PhysicsBridge) Close() {
	b.mu.Lock()
	first := !b.quitted
	b.quitted = true
	b.closed = true
	started := b.started
	if first {
		close(b.quit)
	}
	b.mu.Unlock()

	if started {
		<-b.done
		return
	}
	if first {
		b.rejectQueued()
		close(b.done)
	}
}

// Done is closed when the worker has exited.
func (b *PhysicsBridge) Done() <-chan struct{} { return b.done }

func (b *PhysicsBridge) RegisterBody(id string, geometry physics.Geometry, pose physics.Pose, opts physics.BodyOptions) *Future[struct{}] {
	f := newLoggedFuture[struct{}](b.log)
	b.enqueue(&registerRequest{id: id, geometry: geometry, pose: pose, opts: opts, reply: f})
	return f
}

func (b *PhysicsBridge) SetBodyPose(id string, position physics.Vec3, quaternion physics.Quat) *Future[struct{}] {
	f := newLoggedFuture[struct{}](b.log)
	b.enqueue(&setPoseRequest{id: id, position: position, quaternion: quaternion, reply: f})
	return f
}

// Tick asks the worker for one fixed step. While a tick is outstanding,
// further calls return that same future instead of queueing another step.
// The snapshot is shared between those callers and must not be modified.
func (b *PhysicsBridge) Tick() *Future[physics.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tick != nil {
		if _, settled, _ := b.tick.Result(); !settled {
			b.metrics.tickCoalesced()
			return b.tick
		}
	}

	f := newLoggedFuture[physics.Snapshot](b.log)
	b.enqueueLocked(&tickRequest{reply: f})
	b.tick = f
	return f
}

// World returns a copy of the simulation world, for debug views.
func (b *PhysicsBridge) World() *Future[physics.WorldView] {
	f := newLoggedFuture[physics.WorldView](b.log)
	b.enqueue(&worldRequest{reply: f})
	return f
}

// Configure replaces the world's gravity, contact materials and sleep settings.
func (b *PhysicsBridge) Configure(settings physics.WorldSettings) *Future[struct{}] {
	f := newLoggedFuture[struct{}](b.log)
	b.enqueue(&configureRequest{settings: settings, reply: f})
	return f
}

func (b *PhysicsBridge) enqueue(req request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enqueueLocked(req)
}

func (b *PhysicsBridge) enqueueLocked(req request) {
	b.metrics.request(req.op())
	if b.closed {
		req.reject(ErrBridgeClosed)
		return
	}
	b.queue = append(b.queue, req)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *PhysicsBridge) drain() []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := b.queue
	b.queue = nil
	return batch
}

func (b *PhysicsBridge) rejectQueued() {
	for _, req := range b.drain() {
		req.reject(ErrBridgeClosed)
	}
}

// worker is the state only the bridge goroutine touches.
type worker struct {
	world    *physics.World
	registry *physics.Registry
	stepper  *physics.Stepper
}

func (b *PhysicsBridge) run(ctx context.Context) {
	defer close(b.done)

	world := physics.NewWorld(b.cfg.World)
	w := &worker{
		world:    world,
		registry: physics.NewRegistry(world, b.log),
		stepper:  physics.NewStepper(world, b.cfg.FixedTimestep),
	}
	b.log.Infof("physics: worker started, fixed step %.4fs", w.stepper.Dt())

	for {
		for _, req := range b.drain() {
			b.handle(w, req)
		}

		select {
		case <-b.wake:
		case <-b.quit:
			b.rejectQueued()
			b.log.Infof("physics: worker stopped after %d steps", w.stepper.Steps())
			return
		case <-ctx.Done():
			b.mu.Lock()
			b.closed = true
			b.mu.Unlock()
			b.rejectQueued()
			b.log.Infof("physics: worker stopped after %d steps: %v", w.stepper.Steps(), ctx.Err())
			return
		}
	}
}

func (b *PhysicsBridge) handle(w *worker, req request) {
	defer func() {
		if r := recover(); r != nil {
			err := b.rejection(req.op(), fmt.Errorf("panic: %v", r))
			b.log.Errorf("physics: %v", err)
			req.reject(err)
		}
	}()

	switch r := req.(type) {
	case *registerRequest:
		err := w.registry.RegisterBody(r.id, r.geometry, r.pose, r.opts)
		r.reply.settle(struct{}{}, b.rejection(opRegister, err))
	case *setPoseRequest:
		err := w.registry.SetBodyPose(r.id, r.position, r.quaternion)
		r.reply.settle(struct{}{}, b.rejection(opSetPose, err))
	case *tickRequest:
		start := time.Now()
		snap := w.stepper.Step()
		b.metrics.step(time.Since(start), w.world.Len())
		r.reply.settle(snap, nil)
	case *worldRequest:
		r.reply.settle(w.registry.World(), nil)
	case *configureRequest:
		w.registry.Configure(r.settings)
		r.reply.settle(struct{}{}, nil)
	default:
		panic(fmt.Sprintf("unknown physics request %T", req))
	}
}

func (b *PhysicsBridge) rejection(op string, err error) error {
	if err == nil {
		return nil
	}
	b.metrics.rejected(op)
	return &BridgeRejection{Op: op, Err: err}
}
