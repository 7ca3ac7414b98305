package hostobject

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/tomyedwab/opsql/bridge"
)

// Statement is the host object of a prepared statement.
type Statement struct {
	db        *DB
	stmt      *bridge.Statement
	functions map[string]goja.Value
}

func newStatement(db *DB, stmt *bridge.Statement) *Statement {
	s := &Statement{db: db, stmt: stmt}
	rt := db.rt
	s.functions = map[string]goja.Value{
		"bind":         rt.ToValue(s.bind),
		"execute":      rt.ToValue(s.execute),
		"executeAsync": rt.ToValue(s.executeAsync),
		"finalize":     rt.ToValue(s.finalize),
	}
	return s
}

// Object wraps s in a JS object whose properties are resolved by s.
func (s *Statement) Object() *goja.Object {
	return s.db.rt.NewDynamicObject(s)
}

// Get implements goja.DynamicObject.
func (s *Statement) Get(key string) goja.Value {
	return s.functions[key]
}

// Set implements goja.DynamicObject.
func (s *Statement) Set(key string, val goja.Value) bool {
	return false
}

// Has implements goja.DynamicObject.
func (s *Statement) Has(key string) bool {
	_, ok := s.functions[key]
	return ok
}

// Delete implements goja.DynamicObject.
func (s *Statement) Delete(key string) bool {
	return false
}

// Keys implements goja.DynamicObject.
func (s *Statement) Keys() []string {
	return []string{"bind", "execute", "executeAsync", "finalize"}
}

func (s *Statement) bind(call goja.FunctionCall) goja.Value {
	rt := s.db.rt
	if len(call.Arguments) < 1 {
		throw(rt, "[opsql][bind] params are required")
	}
	params, err := toParams(rt, call.Argument(0))
	if err != nil {
		throw(rt, fmt.Sprintf("[opsql][bind] %v", err))
	}
	s.db.check(s.stmt.Bind(params))
	return goja.Undefined()
}

func (s *Statement) execute(call goja.FunctionCall) goja.Value {
	res, err := s.stmt.Execute(s.db.ctx)
	s.db.check(err)
	return queryResultToJS(s.db.rt, res)
}

func (s *Statement) executeAsync(call goja.FunctionCall) goja.Value {
	return s.db.async(func() (marshalFunc, error) {
		res, err := s.stmt.Execute(s.db.ctx)
		if err != nil {
			return nil, err
		}
		return func(rt *goja.Runtime) goja.Value { return queryResultToJS(rt, res) }, nil
	})
}

func (s *Statement) finalize(call goja.FunctionCall) goja.Value {
	s.db.check(s.stmt.Finalize())
	return goja.Undefined()
}
