package value

import (
	"encoding/json"
	"strconv"
	"time"
)

// FromAny converts plain Go data (as produced by encoding/json, gorm scans or
// hand-built maps) into a Value. Types it does not know are round-tripped
// through encoding/json; anything that still fails becomes Null.
func FromAny(in any) Value {
	switch v := in.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case []byte:
		return String(string(v))
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return String(string(v))
		}
		return Number(f)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int8:
		return Number(float64(v))
	case int16:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint:
		return Number(float64(v))
	case uint8:
		return Number(float64(v))
	case uint16:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case time.Time:
		return Date(v)
	case *time.Time:
		if v == nil {
			return Null()
		}
		return Date(*v)
	case []Value:
		return List(v...)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = String(item)
		}
		return List(items...)
	case []map[string]any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromAny(item)
		}
		return List(items...)
	case map[string]Value:
		return MapOf(v)
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for k, item := range v {
			fields[k] = FromAny(item)
		}
		return MapOf(fields)
	case json.RawMessage:
		parsed, err := Parse(v)
		if err != nil {
			return Null()
		}
		return parsed
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return Null()
	}
	parsed, err := Parse(raw)
	if err != nil {
		return Null()
	}
	return parsed
}

// ToAny converts v back into plain Go data: nil, bool, float64, string,
// time.Time, []any or map[string]any.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindDate:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.obj.keys))
		for _, k := range v.obj.keys {
			out[k] = v.obj.fields[k].ToAny()
		}
		return out
	}
	return nil
}
