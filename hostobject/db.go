// Package hostobject exposes SQLite databases to a goja runtime as host
// objects: objects whose properties are resolved by Go code.
//
// Every operation validates its arguments on the JS goroutine before any
// bridge call. Synchronous operations throw an Error carrying the bridge's
// message; asynchronous operations return a Promise, run the bridge call on a
// Pool worker and settle the Promise back on the JS goroutine through an
// invoker.CallInvoker.
package hostobject

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dop251/goja"

	"github.com/tomyedwab/opsql/bridge"
	"github.com/tomyedwab/opsql/invoker"
)

// Options holds everything NewDB needs to open a connection.
type Options struct {
	BasePath      string
	Bridge        *bridge.Bridge
	Invoker       invoker.CallInvoker
	Pool          Pool
	Name          string
	Location      string // Optional override of BasePath, see bridge.ResolveLocation
	CRSQLitePath  string // Optional
	EncryptionKey string // Optional
	Logger        *slog.Logger
}

// DB is the host object of one open database.
type DB struct {
	rt       *goja.Runtime
	ctx      context.Context
	bridge   *bridge.Bridge
	invoker  invoker.CallInvoker
	pool     Pool
	basePath string
	name     string
	logger   *slog.Logger

	// functions is filled once by NewDB and never written afterwards.
	functions map[string]goja.Value
}

// HostFunc is the signature of every operation exposed on a host object.
type HostFunc func(call goja.FunctionCall) goja.Value

// NewDB opens the database described by opts and registers its operations.
// No object is returned when the open fails.
func NewDB(ctx context.Context, rt *goja.Runtime, opts Options) (*DB, error) {
	if opts.Bridge == nil || opts.Invoker == nil || opts.Pool == nil {
		return nil, fmt.Errorf("[opsql] bridge, invoker and pool are required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("[opsql] database name is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := bridge.ResolveLocation(opts.BasePath, opts.Location)
	err := opts.Bridge.Open(ctx, opts.Name, dir, bridge.OpenOptions{
		CRSQLitePath:  opts.CRSQLitePath,
		EncryptionKey: opts.EncryptionKey,
	})
	if err != nil {
		return nil, err
	}

	d := &DB{
		rt:       rt,
		ctx:      ctx,
		bridge:   opts.Bridge,
		invoker:  opts.Invoker,
		pool:     opts.Pool,
		basePath: opts.BasePath,
		name:     opts.Name,
		logger:   logger.With("component", "DBHostObject", "db", opts.Name),
	}

	fns := map[string]HostFunc{
		"attach":            d.attach,
		"detach":            d.detach,
		"close":             d.close,
		"delete":            d.remove,
		"execute":           d.execute,
		"executeAsync":      d.executeAsync,
		"executeRawAsync":   d.executeRawAsync,
		"executeBatch":      d.executeBatch,
		"executeBatchAsync": d.executeBatchAsync,
		"loadFile":          d.loadFile,
		"prepareStatement":  d.prepareStatement,
		"loadExtension":     d.loadExtension,
		"getDbPath":         d.getDbPath,
	}
	d.functions = make(map[string]goja.Value, len(fns))
	for name, fn := range fns {
		d.functions[name] = rt.ToValue(func(call goja.FunctionCall) goja.Value { return fn(call) })
	}
	return d, nil
}

// Name returns the connection name.
func (d *DB) Name() string {
	return d.name
}

// Object wraps d in a JS object whose properties are resolved by d.
func (d *DB) Object() *goja.Object {
	return d.rt.NewDynamicObject(d)
}

// Get implements goja.DynamicObject. Unknown names are undefined.
func (d *DB) Get(key string) goja.Value {
	return d.functions[key]
}

// Set implements goja.DynamicObject. The object is read-only.
func (d *DB) Set(key string, val goja.Value) bool {
	return false
}

// Has implements goja.DynamicObject.
func (d *DB) Has(key string) bool {
	_, ok := d.functions[key]
	return ok
}

// Delete implements goja.DynamicObject.
func (d *DB) Delete(key string) bool {
	return false
}

// Keys implements goja.DynamicObject.
func (d *DB) Keys() []string {
	keys := make([]string, 0, len(d.functions))
	for k := range d.functions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// location reads an optional location argument: undefined and null mean no
// override, anything else must be a string.
func (d *DB) location(call goja.FunctionCall, i int, op string) string {
	arg := call.Argument(i)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return ""
	}
	if !isString(arg) {
		throw(d.rt, fmt.Sprintf("[opsql][%s] database location must be a string", op))
	}
	return arg.String()
}

func (d *DB) query(call goja.FunctionCall, op string) (string, []any) {
	if len(call.Arguments) < 1 || !isString(call.Argument(0)) {
		throw(d.rt, fmt.Sprintf("[opsql][%s] query must be a string", op))
	}
	params, err := toParams(d.rt, call.Argument(1))
	if err != nil {
		throw(d.rt, fmt.Sprintf("[opsql][%s] %v", op, err))
	}
	return call.Argument(0).String(), params
}

func (d *DB) batch(call goja.FunctionCall, op string) []bridge.BatchCommand {
	if len(call.Arguments) < 1 {
		throw(d.rt, fmt.Sprintf("[opsql][%s] Incorrect parameter count", op))
	}
	commands, err := toBatchCommands(d.rt, call.Argument(0))
	if err != nil {
		throw(d.rt, fmt.Sprintf("[opsql][%s] %v", op, err))
	}
	return commands
}

func (d *DB) check(err error) {
	if err != nil {
		throw(d.rt, err.Error())
	}
}

func (d *DB) async(task func() (marshalFunc, error)) goja.Value {
	return runAsync(d.rt, d.pool, d.invoker, d.logger, task)
}

func (d *DB) attach(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 3 {
		throw(d.rt, "[opsql][attach] Incorrect number of arguments")
	}
	if !isString(call.Argument(0)) || !isString(call.Argument(1)) || !isString(call.Argument(2)) {
		throw(d.rt, "[opsql][attach] dbName, databaseToAttach and alias must be strings")
	}
	dir := bridge.ResolveLocation(d.basePath, d.location(call, 3, "attach"))

	mainName := call.Argument(0).String()
	file := call.Argument(1).String()
	alias := call.Argument(2).String()
	d.check(d.bridge.Attach(d.ctx, mainName, dir, file, alias))
	return goja.Undefined()
}

func (d *DB) detach(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 2 {
		throw(d.rt, "[opsql][detach] Incorrect number of arguments")
	}
	if !isString(call.Argument(0)) || !isString(call.Argument(1)) {
		throw(d.rt, "[opsql][detach] dbName and alias must be strings")
	}
	d.check(d.bridge.Detach(d.ctx, call.Argument(0).String(), call.Argument(1).String()))
	return goja.Undefined()
}

func (d *DB) close(call goja.FunctionCall) goja.Value {
	d.check(d.bridge.Close(d.name))
	return goja.Undefined()
}

func (d *DB) remove(call goja.FunctionCall) goja.Value {
	dir := bridge.ResolveLocation(d.basePath, d.location(call, 0, "delete"))
	d.check(d.bridge.Remove(d.name, dir))
	return goja.Undefined()
}

func (d *DB) execute(call goja.FunctionCall) goja.Value {
	query, params := d.query(call, "execute")
	res, err := d.bridge.Execute(d.ctx, d.name, query, params)
	d.check(err)
	return queryResultToJS(d.rt, res)
}

func (d *DB) executeAsync(call goja.FunctionCall) goja.Value {
	query, params := d.query(call, "executeAsync")
	return d.async(func() (marshalFunc, error) {
		res, err := d.bridge.Execute(d.ctx, d.name, query, params)
		if err != nil {
			return nil, err
		}
		return func(rt *goja.Runtime) goja.Value { return queryResultToJS(rt, res) }, nil
	})
}

func (d *DB) executeRawAsync(call goja.FunctionCall) goja.Value {
	query, params := d.query(call, "executeRawAsync")
	return d.async(func() (marshalFunc, error) {
		res, err := d.bridge.ExecuteRaw(d.ctx, d.name, query, params)
		if err != nil {
			return nil, err
		}
		return func(rt *goja.Runtime) goja.Value { return rawResultToJS(rt, res) }, nil
	})
}

func (d *DB) executeBatch(call goja.FunctionCall) goja.Value {
	commands := d.batch(call, "executeBatch")
	res, err := d.bridge.ExecuteBatch(d.ctx, d.name, commands)
	d.check(err)
	return batchResultToJS(d.rt, res)
}

func (d *DB) executeBatchAsync(call goja.FunctionCall) goja.Value {
	commands := d.batch(call, "executeBatchAsync")
	return d.async(func() (marshalFunc, error) {
		res, err := d.bridge.ExecuteBatch(d.ctx, d.name, commands)
		if err != nil {
			return nil, err
		}
		return func(rt *goja.Runtime) goja.Value { return batchResultToJS(rt, res) }, nil
	})
}

func (d *DB) loadFile(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		throw(d.rt, "[opsql][loadFile] Incorrect parameter count")
	}
	if !isString(call.Argument(0)) {
		throw(d.rt, "[opsql][loadFile] path must be a string")
	}
	path := call.Argument(0).String()
	return d.async(func() (marshalFunc, error) {
		res, err := d.bridge.ImportFile(d.ctx, d.name, path)
		if err != nil {
			return nil, err
		}
		return func(rt *goja.Runtime) goja.Value { return importResultToJS(rt, res) }, nil
	})
}

func (d *DB) prepareStatement(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 || !isString(call.Argument(0)) {
		throw(d.rt, "[opsql][prepareStatement] query must be a string")
	}
	stmt, err := d.bridge.Prepare(d.ctx, d.name, call.Argument(0).String())
	d.check(err)
	return newStatement(d, stmt).Object()
}

func (d *DB) loadExtension(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 || !isString(call.Argument(0)) {
		throw(d.rt, "[opsql][loadExtension] path must be a string")
	}
	entryPoint := ""
	if len(call.Arguments) > 1 && isString(call.Argument(1)) {
		entryPoint = call.Argument(1).String()
	}
	d.check(d.bridge.LoadExtension(d.ctx, d.name, call.Argument(0).String(), entryPoint))
	return goja.Undefined()
}

func (d *DB) getDbPath(call goja.FunctionCall) goja.Value {
	override := d.location(call, 0, "getDbPath")
	return d.rt.ToValue(bridge.DBPath(d.basePath, d.name, override))
}
