package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

func TestSlotRejectsSecondJob(t *testing.T) {
	slot := NewSlot("import")
	release := make(chan struct{})

	first, err := slot.TryGo(context.Background(), func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	assert.True(t, slot.Busy())

	_, err = slot.TryGo(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, pderrors.ErrBusy))
	assert.Contains(t, err.Error(), "import")

	close(release)
	res := <-first
	assert.True(t, res.Success)
	assert.NoError(t, res.Err)

	slot.Wait()
	assert.False(t, slot.Busy())

	again, err := slot.TryGo(context.Background(), func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)
	res = <-again
	assert.False(t, res.Success)
	assert.EqualError(t, res.Err, "boom")
}

func TestSlotRecoversPanics(t *testing.T) {
	slot := NewSlot("provision")
	ch, err := slot.TryGo(context.Background(), func(context.Context) error { panic("kaboom") })
	require.NoError(t, err)

	res := <-ch
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "kaboom")

	slot.Wait()
	assert.False(t, slot.Busy())
}

func TestSlotPassesContext(t *testing.T) {
	slot := NewSlot("export")
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := slot.TryGo(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	cancel()

	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

func TestGroupWaitsAndRecovers(t *testing.T) {
	var g Group
	var ran atomic.Int32
	var panicked atomic.Value

	g.Go(func() { ran.Add(1) }, nil)
	g.Go(func() { panic("reaper") }, func(err error) { panicked.Store(err) })
	g.Wait()

	assert.EqualValues(t, 1, ran.Load())
	require.NotNil(t, panicked.Load())
	assert.Contains(t, panicked.Load().(error).Error(), "reaper")
}
