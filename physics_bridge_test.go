package mosaic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/mosaic/physics"
)

func zeroGravityConfig() BridgeConfig {
	cfg := DefaultBridgeConfig()
	cfg.World.Gravity = physics.Vec3{}
	return cfg
}

func startBridge(t *testing.T, cfg BridgeConfig, log Logger, metrics *Metrics) *PhysicsBridge {
	t.Helper()
	b := NewPhysicsBridge(cfg, log, metrics)
	b.Start(context.Background())
	t.Cleanup(b.Close)
	return b
}

func wait[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "future never settled")
	return v, err
}

func origin() physics.Pose {
	return physics.Pose{Quaternion: physics.IdentityQuat()}
}

func TestPhysicsBridge_RegisterThenPoseIsOrdered(t *testing.T) {
	b := startBridge(t, zeroGravityConfig(), nil, nil)

	// Fire and forget, like the mesh does.
	b.RegisterBody("cube", physics.BoxGeometry(1, 1, 1), origin(), physics.BodyOptions{})
	b.SetBodyPose("cube", physics.Vec3{X: 1, Y: 2, Z: 3}, physics.Quat{X: 0, Y: 0, Z: 0.6, W: 0.8})

	view, err := wait(t, b.World())
	require.NoError(t, err)
	body, ok := view.Body("cube")
	require.True(t, ok)
	assert.Equal(t, physics.Vec3{X: 1, Y: 2, Z: 3}, body.Pose.Position)
	assert.Equal(t, physics.Quat{X: 0, Y: 0, Z: 0.6, W: 0.8}, body.Pose.Quaternion)
}

func TestPhysicsBridge_UnsupportedGeometryRejects(t *testing.T) {
	b := startBridge(t, DefaultBridgeConfig(), nil, nil)

	_, err := wait(t, b.RegisterBody("odd", physics.Geometry{Kind: physics.GeometryKind(42)}, origin(), physics.BodyOptions{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBridgeRejected)
	assert.ErrorIs(t, err, physics.ErrUnsupportedGeometry)

	var rejection *BridgeRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "register", rejection.Op)

	view, err := wait(t, b.World())
	require.NoError(t, err)
	assert.Empty(t, view.Bodies)

	// Pose updates for the visual-only entity are ignored, not failed.
	_, err = wait(t, b.SetBodyPose("odd", physics.Vec3{X: 1}, physics.IdentityQuat()))
	assert.NoError(t, err)
}

func TestPhysicsBridge_DuplicateRejects(t *testing.T) {
	b := startBridge(t, DefaultBridgeConfig(), nil, nil)

	_, err := wait(t, b.RegisterBody("a", physics.BoxGeometry(1, 1, 1), origin(), physics.BodyOptions{}))
	require.NoError(t, err)
	_, err = wait(t, b.RegisterBody("a", physics.BoxGeometry(2, 2, 2), origin(), physics.BodyOptions{}))
	assert.ErrorIs(t, err, physics.ErrDuplicateEntity)
}

func TestPhysicsBridge_TickCoalesces(t *testing.T) {
	metrics := NewMetrics()
	b := NewPhysicsBridge(DefaultBridgeConfig(), nil, metrics)
	t.Cleanup(b.Close)

	b.RegisterBody("cube", physics.BoxGeometry(1, 1, 1), physics.Pose{Position: physics.Vec3{Z: 10}, Quaternion: physics.IdentityQuat()}, physics.BodyOptions{})

	// The worker isn't running yet, so the first tick is still outstanding.
	first := b.Tick()
	second := b.Tick()
	assert.Same(t, first, second)

	b.Start(context.Background())
	snap, err := wait(t, first)
	require.NoError(t, err)
	require.Contains(t, snap, "cube")
	assert.Less(t, snap["cube"].Position.Z, 10.0)

	third := b.Tick()
	assert.NotSame(t, first, third)
	_, err = wait(t, third)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(opTick)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.coalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bodies))
}

func TestPhysicsBridge_ConcurrentTicksShareOneStep(t *testing.T) {
	metrics := NewMetrics()
	b := NewPhysicsBridge(DefaultBridgeConfig(), nil, metrics)
	t.Cleanup(b.Close)

	futures := make(chan *Future[physics.Snapshot], 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			futures <- b.Tick()
		}()
	}
	wg.Wait()
	close(futures)

	first := <-futures
	for f := range futures {
		assert.Same(t, first, f)
	}
	b.Start(context.Background())
	_, err := wait(t, first)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(opTick)))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.coalesced))
}

func TestPhysicsBridge_ZeroGravityTicksKeepPoses(t *testing.T) {
	b := startBridge(t, zeroGravityConfig(), nil, nil)

	pose := physics.Pose{Position: physics.Vec3{X: 0.1, Y: -2.5, Z: 3}, Quaternion: physics.Quat{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5}}
	b.RegisterBody("still", physics.BoxGeometry(1, 1, 1), pose, physics.BodyOptions{})

	one, err := wait(t, b.Tick())
	require.NoError(t, err)
	two, err := wait(t, b.Tick())
	require.NoError(t, err)

	assert.Equal(t, pose, one["still"])
	assert.Equal(t, one, two)
}

func TestPhysicsBridge_Configure(t *testing.T) {
	b := startBridge(t, DefaultBridgeConfig(), nil, nil)

	settings := physics.DefaultWorldSettings()
	settings.Gravity = physics.Vec3{Y: -1}
	_, err := wait(t, b.Configure(settings))
	require.NoError(t, err)

	view, err := wait(t, b.World())
	require.NoError(t, err)
	assert.Equal(t, physics.Vec3{Y: -1}, view.Gravity)
}

func TestPhysicsBridge_CloseRejectsPending(t *testing.T) {
	b := NewPhysicsBridge(DefaultBridgeConfig(), nil, nil)
	pending := b.RegisterBody("a", physics.BoxGeometry(1, 1, 1), origin(), physics.BodyOptions{})

	b.Close()
	_, err := wait(t, pending)
	assert.ErrorIs(t, err, ErrBridgeClosed)

	_, err = wait(t, b.Tick())
	assert.ErrorIs(t, err, ErrBridgeClosed)

	b.Close()
	b.Start(context.Background())
	select {
	case <-b.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestPhysicsBridge_ContextCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewPhysicsBridge(DefaultBridgeConfig(), nil, nil)
	b.Start(ctx)
	cancel()

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	_, err := wait(t, b.World())
	assert.ErrorIs(t, err, ErrBridgeClosed)
	b.Close()
}

func TestPhysicsBridge_CloseAfterCancelWaitsForWorker(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		b := NewPhysicsBridge(DefaultBridgeConfig(), nil, nil)
		for j := 0; j < 100; j++ {
			b.SetBodyPose("a", physics.Vec3{}, physics.IdentityQuat())
		}
		b.Start(ctx)
		cancel()
		b.Close()

		select {
		case <-b.Done():
		default:
			t.Fatal("Close returned before the worker exited")
		}
	}
}

func TestPhysicsBridge_RecoversFromPanics(t *testing.T) {
	log := &recordingLogger{}
	metrics := NewMetrics()
	b := NewPhysicsBridge(DefaultBridgeConfig(), log, metrics)
	t.Cleanup(b.Close)

	// A callback that panics runs on the worker when the request settles.
	b.RegisterBody("bad", physics.Geometry{}, origin(), physics.BodyOptions{}).OnError(func(error) {
		panic("callback exploded")
	})
	b.Start(context.Background())

	_, err := wait(t, b.World())
	require.NoError(t, err, "worker keeps serving after a panic")
	assert.NotEmpty(t, log.Lines("ERROR"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rejections.WithLabelValues(opRegister)), "one failed request counts once")
}
