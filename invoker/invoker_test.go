package invoker

import (
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsOnJSGoroutine(t *testing.T) {
	loop := eventloop.NewEventLoop()
	loop.Start()
	defer loop.Stop()

	// Capture the runtime the loop owns, then check InvokeAsync hands back the
	// same one from a foreign goroutine.
	owned := make(chan *goja.Runtime, 1)
	loop.RunOnLoop(func(rt *goja.Runtime) { owned <- rt })
	want := <-owned

	inv := NewLoop(loop)
	require.Same(t, loop, inv.EventLoop())

	got := make(chan *goja.Runtime, 1)
	go inv.InvokeAsync(func(rt *goja.Runtime) { got <- rt })
	select {
	case rt := <-got:
		require.Same(t, want, rt)
	case <-time.After(5 * time.Second):
		t.Fatal("closure never ran on the loop")
	}
}

func TestFunc(t *testing.T) {
	rt := goja.New()
	var calls int
	inv := Func(func(fn func(rt *goja.Runtime)) {
		calls++
		fn(rt)
	})

	var seen *goja.Runtime
	inv.InvokeAsync(func(r *goja.Runtime) { seen = r })
	require.Equal(t, 1, calls)
	require.Same(t, rt, seen)
}
