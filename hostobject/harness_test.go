package hostobject

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tomyedwab/opsql/bridge"
	"github.com/tomyedwab/opsql/invoker"
	"github.com/tomyedwab/opsql/threadpool"
)

const waitTimeout = 5 * time.Second

// harness runs scripts on a started event loop with the opsql global
// installed. Assertions happen on the test goroutine, never on the loop.
type harness struct {
	dir     string
	bridge  *bridge.Bridge
	pool    *threadpool.Pool
	loop    *eventloop.EventLoop
	invokes atomic.Int64
}

func setupHarness(t *testing.T) *harness {
	h := &harness{
		dir:    t.TempDir(),
		bridge: bridge.New(bridge.Config{}),
		pool:   threadpool.New(threadpool.Config{Workers: 2}),
		loop:   eventloop.NewEventLoop(),
	}
	h.loop.Start()
	t.Cleanup(func() {
		h.loop.Stop()
		h.pool.Close()
		h.bridge.CloseAll()
	})

	inv := invoker.NewLoop(h.loop)
	counting := invoker.Func(func(fn func(rt *goja.Runtime)) {
		h.invokes.Inc()
		inv.InvokeAsync(fn)
	})

	err := h.onLoop(t, func(rt *goja.Runtime) error {
		return Install(context.Background(), rt, ProxyOptions{
			BasePath: h.dir,
			Bridge:   h.bridge,
			Invoker:  counting,
			Pool:     h.pool,
		})
	})
	require.NoError(t, err)
	return h
}

// onLoop runs fn on the JS goroutine and waits for it to return.
func (h *harness) onLoop(t *testing.T, fn func(rt *goja.Runtime) error) error {
	t.Helper()
	done := make(chan error, 1)
	h.loop.RunOnLoop(func(rt *goja.Runtime) {
		done <- fn(rt)
	})
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the event loop")
		return nil
	}
}

// eval runs src and returns its exported completion value.
func (h *harness) eval(t *testing.T, src string) (any, error) {
	t.Helper()
	var result any
	err := h.onLoop(t, func(rt *goja.Runtime) error {
		v, err := rt.RunString(src)
		if err != nil {
			return err
		}
		result = v.Export()
		return nil
	})
	return result, err
}

func (h *harness) mustEval(t *testing.T, src string) any {
	t.Helper()
	v, err := h.eval(t, src)
	require.NoError(t, err)
	return v
}

// await runs src, which must evaluate to a Promise, and waits for it to
// settle. A rejection is returned as an error carrying the reason's message.
func (h *harness) await(t *testing.T, src string) (any, error) {
	t.Helper()
	type outcome struct {
		value any
		err   error
	}
	settled := make(chan outcome, 1)

	err := h.onLoop(t, func(rt *goja.Runtime) error {
		v, err := rt.RunString(src)
		if err != nil {
			return err
		}
		obj, ok := v.(*goja.Object)
		if !ok {
			return fmt.Errorf("expected a Promise, got %v", v)
		}
		if _, ok := obj.Export().(*goja.Promise); !ok {
			return fmt.Errorf("expected a Promise, got %v", v)
		}
		then, _ := goja.AssertFunction(obj.Get("then"))
		onFulfilled := func(call goja.FunctionCall) goja.Value {
			settled <- outcome{value: call.Argument(0).Export()}
			return goja.Undefined()
		}
		onRejected := func(call goja.FunctionCall) goja.Value {
			reason := call.Argument(0).ToObject(rt)
			settled <- outcome{err: errors.New(reason.Get("message").String())}
			return goja.Undefined()
		}
		_, err = then(obj, rt.ToValue(onFulfilled), rt.ToValue(onRejected))
		return err
	})
	require.NoError(t, err)

	select {
	case o := <-settled:
		return o.value, o.err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the Promise to settle")
		return nil, nil
	}
}

// openTestDB defines the global `db` for test.db under the harness base path.
func (h *harness) openTestDB(t *testing.T) {
	h.mustEval(t, `var db = opsql.open({name: "test.db"});`)
}
