package gameserver_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dungeon/internal/gameserver"
)

func TestNewTickDriver_PanicsOnNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { gameserver.NewTickDriver(0) })
	assert.Panics(t, func() { gameserver.NewTickDriver(-time.Second) })
}

func TestTickDriver_StartsAndStops(t *testing.T) {
	d := gameserver.NewTickDriver(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	time.Sleep(120 * time.Millisecond)
	cancel()
}

func TestTickDriver_CallbackReceivesInterval(t *testing.T) {
	d := gameserver.NewTickDriver(20 * time.Millisecond)
	got := make(chan time.Duration, 1)
	d.RegisterTick("s1", func(dt time.Duration) {
		select {
		case got <- dt:
		default:
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	d.Start(ctx)
	select {
	case dt := <-got:
		assert.Equal(t, 20*time.Millisecond, dt)
	case <-ctx.Done():
		t.Fatal("tick callback not invoked within timeout")
	}
}

func TestTickDriver_UnregisterStopsCallback(t *testing.T) {
	d := gameserver.NewTickDriver(20 * time.Millisecond)
	var count atomic.Int64
	d.RegisterTick("s1", func(time.Duration) { count.Add(1) })
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	d.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	d.Unregister("s1")
	before := count.Load()
	time.Sleep(60 * time.Millisecond)
	if count.Load() > before+1 {
		t.Fatalf("tick continued after unregister: before=%d after=%d", before, count.Load())
	}
}

func TestTickDriver_StepRunsInIDOrder(t *testing.T) {
	d := gameserver.NewTickDriver(time.Second)
	var order []string
	for _, id := range []string{"c", "a", "b"} {
		id := id
		d.RegisterTick(id, func(time.Duration) { order = append(order, id) })
	}
	require.Equal(t, 3, d.Len())
	d.Step(time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTickDriver_CallbackMayUnregisterItself(t *testing.T) {
	d := gameserver.NewTickDriver(time.Second)
	calls := 0
	d.RegisterTick("once", func(time.Duration) {
		calls++
		d.Unregister("once")
	})
	d.Step(time.Millisecond)
	d.Step(time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Zero(t, d.Len())
}
