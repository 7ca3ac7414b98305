// Package invoker hands closures to the goroutine that owns a JavaScript
// runtime. goja values may only be touched from that goroutine.
package invoker

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// CallInvoker schedules fn to run on the JS goroutine. It must be safe to call
// from any goroutine and must not wait for fn to run.
type CallInvoker interface {
	InvokeAsync(fn func(rt *goja.Runtime))
}

// Loop is a CallInvoker backed by a goja_nodejs event loop.
type Loop struct {
	loop *eventloop.EventLoop
}

// NewLoop wraps an existing event loop.
func NewLoop(loop *eventloop.EventLoop) *Loop {
	return &Loop{loop: loop}
}

// InvokeAsync implements CallInvoker.
func (l *Loop) InvokeAsync(fn func(rt *goja.Runtime)) {
	l.loop.RunOnLoop(fn)
}

// EventLoop returns the wrapped loop.
func (l *Loop) EventLoop() *eventloop.EventLoop {
	return l.loop
}

// Func adapts a plain function to CallInvoker.
type Func func(fn func(rt *goja.Runtime))

// InvokeAsync implements CallInvoker.
func (f Func) InvokeAsync(fn func(rt *goja.Runtime)) {
	f(fn)
}
