package hostobject

import (
	"context"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/tomyedwab/opsql/bridge"
	"github.com/tomyedwab/opsql/invoker"
)

// GlobalName is the name of the global object created by Install.
const GlobalName = "opsql"

// ProxyOptions holds the dependencies shared by every database opened from
// scripts.
type ProxyOptions struct {
	BasePath     string
	Bridge       *bridge.Bridge
	Invoker      invoker.CallInvoker
	Pool         Pool
	CRSQLitePath string       // Optional, used when open() does not name one
	Logger       *slog.Logger // Optional, defaults to slog.Default()
}

// Install defines the global `opsql` object in rt. Scripts open databases
// with `opsql.open({name, location, encryptionKey, crsqlitePath})`. Opening a
// name twice returns a second host object over the same connection; opening
// it again from another location throws.
// Install must run on the JS goroutine.
func Install(ctx context.Context, rt *goja.Runtime, opts ProxyOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	open := func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			throw(rt, "[opsql][open] options are required")
		}
		options := arg.ToObject(rt)

		name := options.Get("name")
		if name == nil || !isString(name) {
			throw(rt, "[opsql][open] database name must be a string")
		}
		stringOption := func(key string) string {
			v := options.Get(key)
			if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
				return ""
			}
			if !isString(v) {
				throw(rt, "[opsql][open] "+key+" must be a string")
			}
			return v.String()
		}

		crsqlitePath := stringOption("crsqlitePath")
		if crsqlitePath == "" {
			crsqlitePath = opts.CRSQLitePath
		}

		db, err := NewDB(ctx, rt, Options{
			BasePath:      opts.BasePath,
			Bridge:        opts.Bridge,
			Invoker:       opts.Invoker,
			Pool:          opts.Pool,
			Name:          name.String(),
			Location:      stringOption("location"),
			CRSQLitePath:  crsqlitePath,
			EncryptionKey: stringOption("encryptionKey"),
			Logger:        logger,
		})
		if err != nil {
			throw(rt, err.Error())
		}
		return db.Object()
	}

	proxy := rt.NewObject()
	if err := proxy.Set("open", open); err != nil {
		return err
	}
	return rt.Set(GlobalName, proxy)
}
