package hostobject

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/tomyedwab/opsql/invoker"
)

// Pool queues work for a worker goroutine.
type Pool interface {
	Submit(task func()) error
}

// marshalFunc turns a bridge result into a JS value. It runs on the JS
// goroutine.
type marshalFunc func(rt *goja.Runtime) goja.Value

// newError builds `new Error(msg)` in rt.
func newError(rt *goja.Runtime, msg string) *goja.Object {
	if ctor, ok := goja.AssertConstructor(rt.Get("Error")); ok {
		if obj, err := ctor(nil, rt.ToValue(msg)); err == nil {
			return obj
		}
	}
	return rt.NewGoError(errors.New(msg))
}

// throw raises a JS Error carrying msg. Only call it from a function invoked
// by the runtime.
func throw(rt *goja.Runtime, msg string) {
	panic(newError(rt, msg))
}

// newPromise creates a Promise through the runtime's own constructor and
// returns it with its resolving functions.
func newPromise(rt *goja.Runtime) (*goja.Object, goja.Callable, goja.Callable) {
	var resolve, reject goja.Callable
	executor := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		resolve, _ = goja.AssertFunction(call.Argument(0))
		reject, _ = goja.AssertFunction(call.Argument(1))
		return goja.Undefined()
	})

	ctor, ok := goja.AssertConstructor(rt.Get("Promise"))
	if !ok {
		throw(rt, "[opsql] Promise is not available in this runtime")
	}
	promise, err := ctor(nil, executor)
	if err != nil {
		panic(err)
	}
	return promise, resolve, reject
}

// runAsync returns a Promise settled with the outcome of task. task runs on a
// pool worker; a panic inside it becomes a rejection. Settlement always
// happens on the JS goroutine through inv.
func runAsync(rt *goja.Runtime, pool Pool, inv invoker.CallInvoker, logger *slog.Logger, task func() (marshalFunc, error)) goja.Value {
	promise, resolve, reject := newPromise(rt)

	settle := func(rt *goja.Runtime, marshal marshalFunc, err error) {
		var callErr error
		if err != nil {
			_, callErr = reject(goja.Undefined(), newError(rt, err.Error()))
		} else {
			_, callErr = resolve(goja.Undefined(), marshal(rt))
		}
		if callErr != nil {
			logger.Error("Failed to settle promise", "error", callErr)
		}
	}

	submitErr := pool.Submit(func() {
		marshal, err := runGuarded(task)
		inv.InvokeAsync(func(rt *goja.Runtime) {
			settle(rt, marshal, err)
		})
	})
	if submitErr != nil {
		settle(rt, nil, submitErr)
	}
	return promise
}

func runGuarded(task func() (marshalFunc, error)) (marshal marshalFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			marshal = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	return task()
}
