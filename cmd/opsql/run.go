package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/spf13/cobra"

	"github.com/tomyedwab/opsql/bridge"
	"github.com/tomyedwab/opsql/hostobject"
	"github.com/tomyedwab/opsql/invoker"
	"github.com/tomyedwab/opsql/threadpool"
)

var runCmd = &cobra.Command{
	Use:   "run <script.js>",
	Short: "Run a JavaScript file with the opsql global installed",
	Long: `Runs a script in an embedded JavaScript runtime. The global "opsql" object
opens databases: opsql.open({name: "app.db"}). When the script evaluates to a
Promise, the command waits for it and fails if it rejects.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := bridge.New(bridge.Config{BusyTimeout: cfg.BusyTimeout, Logger: logger})
		defer func() {
			if err := b.CloseAll(); err != nil {
				logger.Error("Failed to close databases", "error", err)
			}
		}()

		pool := threadpool.New(threadpool.Config{
			Workers:   cfg.Workers,
			QueueSize: cfg.QueueSize,
			Logger:    logger,
		})
		defer pool.Close()

		loop := eventloop.NewEventLoop()
		loop.Start()
		defer loop.Stop()

		done := make(chan error, 1)
		loop.RunOnLoop(func(rt *goja.Runtime) {
			err := hostobject.Install(ctx, rt, hostobject.ProxyOptions{
				BasePath:     cfg.BasePath,
				Bridge:       b,
				Invoker:      invoker.NewLoop(loop),
				Pool:         pool,
				CRSQLitePath: cfg.CRSQLitePath,
				Logger:       logger,
			})
			if err != nil {
				done <- err
				return
			}
			v, err := rt.RunScript(args[0], string(src))
			if err != nil {
				done <- err
				return
			}
			awaitResult(rt, v, done)
		})

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

// awaitResult reports on done once v has settled. Values that are not
// Promises settle immediately.
func awaitResult(rt *goja.Runtime, v goja.Value, done chan<- error) {
	obj, ok := v.(*goja.Object)
	if !ok {
		done <- nil
		return
	}
	if _, isPromise := obj.Export().(*goja.Promise); !isPromise {
		done <- nil
		return
	}
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		done <- fmt.Errorf("script result has no then method")
		return
	}

	onFulfilled := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		done <- nil
		return goja.Undefined()
	})
	onRejected := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		done <- fmt.Errorf("script rejected: %s", call.Argument(0).String())
		return goja.Undefined()
	})
	if _, err := then(obj, onFulfilled, onRejected); err != nil {
		done <- err
	}
}
