package mosaic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_SettlesOnce(t *testing.T) {
	f := newFuture[int]()

	_, ok, err := f.Result()
	assert.False(t, ok)
	assert.NoError(t, err)

	assert.True(t, f.settle(7, nil))
	assert.False(t, f.settle(8, errors.New("late")))

	v, ok, err := f.Result()
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done should be closed after settle")
	}
}

func TestFuture_OnError(t *testing.T) {
	boom := errors.New("boom")

	var before, after []error
	f := newFuture[struct{}]()
	f.OnError(func(err error) { before = append(before, err) })
	f.settle(struct{}{}, boom)
	f.OnError(func(err error) { after = append(after, err) })

	assert.Equal(t, []error{boom}, before)
	assert.Equal(t, []error{boom}, after)

	called := false
	ok := newFuture[struct{}]()
	ok.OnError(func(error) { called = true })
	ok.settle(struct{}{}, nil)
	ok.OnError(func(error) { called = true })
	assert.False(t, called, "OnError must not run for successful futures")
}

func TestFuture_Wait(t *testing.T) {
	f := newFuture[string]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.settle("done", nil)
	}()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	pending := newFuture[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuture_PanickingCallbackIsContained(t *testing.T) {
	log := &recordingLogger{}
	f := newLoggedFuture[int](log)

	var ran []int
	f.OnError(func(error) { ran = append(ran, 1) })
	f.OnError(func(error) { panic("boom") })
	f.OnError(func(error) { ran = append(ran, 3) })

	require.NotPanics(t, func() { f.settle(0, errors.New("rejected")) })
	assert.Equal(t, []int{1, 3}, ran)
	assert.Len(t, log.Lines("ERROR"), 1)

	// Late registration runs at once, under the same guard.
	assert.NotPanics(t, func() { f.OnError(func(error) { panic("late") }) })
	assert.Len(t, log.Lines("ERROR"), 2)
}
