package hostobject

import (
	"fmt"
	"math/big"
	"time"

	"github.com/dop251/goja"

	"github.com/tomyedwab/opsql/bridge"
)

// toVariant converts one JS scalar into a value SQLite can bind. Byte
// buffers are copied because the result may be used off the JS goroutine.
func toVariant(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	switch e := v.Export().(type) {
	case string, bool, int64, float64:
		return e, nil
	case goja.ArrayBuffer:
		return append([]byte(nil), e.Bytes()...), nil
	case []byte:
		return append([]byte(nil), e...), nil
	case *big.Int:
		if !e.IsInt64() {
			return nil, fmt.Errorf("BigInt parameter %s does not fit in 64 bits", e.String())
		}
		return e.Int64(), nil
	case time.Time:
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %s", v.ExportType())
	}
}

func isArray(v goja.Value) bool {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false
	}
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Array"
}

func arrayItems(rt *goja.Runtime, v goja.Value) []goja.Value {
	obj := v.ToObject(rt)
	n := int(obj.Get("length").ToInteger())
	items := make([]goja.Value, n)
	for i := 0; i < n; i++ {
		items[i] = obj.Get(fmt.Sprint(i))
	}
	return items
}

// toParams converts a JS array into an ordered parameter list. undefined and
// null mean "no parameters".
func toParams(rt *goja.Runtime, v goja.Value) ([]any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	if !isArray(v) {
		return nil, fmt.Errorf("params must be an array")
	}
	items := arrayItems(rt, v)
	params := make([]any, len(items))
	for i, item := range items {
		p, err := toVariant(item)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		params[i] = p
	}
	return params, nil
}

// toBatchCommands converts [[sql], [sql, params], [sql, [params, ...]]].
func toBatchCommands(rt *goja.Runtime, v goja.Value) ([]bridge.BatchCommand, error) {
	if !isArray(v) {
		return nil, fmt.Errorf("an array of SQL commands or parameters is needed")
	}
	entries := arrayItems(rt, v)
	commands := make([]bridge.BatchCommand, 0, len(entries))
	for i, entry := range entries {
		if !isArray(entry) {
			return nil, fmt.Errorf("command %d must be an array", i)
		}
		parts := arrayItems(rt, entry)
		if len(parts) == 0 || !isString(parts[0]) {
			return nil, fmt.Errorf("command %d must start with a SQL string", i)
		}
		cmd := bridge.BatchCommand{SQL: parts[0].String()}

		if len(parts) > 1 && isArray(parts[1]) {
			sets := arrayItems(rt, parts[1])
			if len(sets) > 0 && isArray(sets[0]) {
				for j, set := range sets {
					params, err := toParams(rt, set)
					if err != nil {
						return nil, fmt.Errorf("command %d, set %d: %w", i, j, err)
					}
					cmd.Params = append(cmd.Params, params)
				}
			} else {
				params, err := toParams(rt, parts[1])
				if err != nil {
					return nil, fmt.Errorf("command %d: %w", i, err)
				}
				cmd.Params = [][]any{params}
			}
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

func isString(v goja.Value) bool {
	if v == nil {
		return false
	}
	_, ok := v.Export().(string)
	return ok
}

func valueToJS(rt *goja.Runtime, v any) goja.Value {
	switch e := v.(type) {
	case nil:
		return goja.Null()
	case []byte:
		return rt.ToValue(rt.NewArrayBuffer(e))
	default:
		return rt.ToValue(e)
	}
}

func setInsertID(obj *goja.Object, rowsAffected, insertID int64) {
	if rowsAffected > 0 {
		obj.Set("insertId", insertID)
	}
}

func queryResultToJS(rt *goja.Runtime, res *bridge.QueryResult) goja.Value {
	obj := rt.NewObject()
	obj.Set("rowsAffected", res.RowsAffected)
	setInsertID(obj, res.RowsAffected, res.InsertID)

	rows := make([]any, len(res.Rows))
	for i, row := range res.Rows {
		r := rt.NewObject()
		for j, col := range res.Columns {
			r.Set(col, valueToJS(rt, row[j]))
		}
		rows[i] = r
	}
	obj.Set("rows", rt.NewArray(rows...))

	metadata := make([]any, len(res.Metadata))
	for i, col := range res.Metadata {
		m := rt.NewObject()
		m.Set("name", col.Name)
		m.Set("type", col.Type)
		m.Set("index", col.Index)
		metadata[i] = m
	}
	obj.Set("metadata", rt.NewArray(metadata...))
	return obj
}

func rawResultToJS(rt *goja.Runtime, res *bridge.RawResult) goja.Value {
	obj := rt.NewObject()
	obj.Set("rowsAffected", res.RowsAffected)
	setInsertID(obj, res.RowsAffected, res.InsertID)

	rows := make([]any, len(res.Rows))
	for i, row := range res.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = valueToJS(rt, v)
		}
		rows[i] = rt.NewArray(values...)
	}
	obj.Set("rows", rt.NewArray(rows...))
	return obj
}

func batchResultToJS(rt *goja.Runtime, res *bridge.BatchResult) goja.Value {
	obj := rt.NewObject()
	obj.Set("rowsAffected", res.RowsAffected)
	return obj
}

func importResultToJS(rt *goja.Runtime, res *bridge.ImportResult) goja.Value {
	obj := rt.NewObject()
	obj.Set("rowsAffected", res.RowsAffected)
	obj.Set("commands", res.Commands)
	return obj
}
