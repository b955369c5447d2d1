package value

import (
	"math"
	"sort"
	"time"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindDate
	KindList
	KindMap
)

var kindNames = [...]string{"null", "bool", "number", "string", "date", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// object keeps map entries together with their insertion order so records
// re-encode with the same key order they were loaded with
type object struct {
	keys   []string
	fields map[string]Value
}

// Value is a tagged union over the shapes a backend record can contain.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
	list []Value
	obj  *object
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// Date wraps a point in time
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// List wraps an ordered sequence of values
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// NewMap returns an empty map value. Entries added with Set share storage
// with every copy of the returned Value.
func NewMap() Value {
	return Value{kind: KindMap, obj: &object{fields: make(map[string]Value)}}
}

// MapOf builds a map value from a Go map. Keys are ordered lexically.
func MapOf(fields map[string]Value) Value {
	m := NewMap()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, fields[k])
	}
	return m
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; false for other kinds
func (v Value) AsBool() bool { return v.kind == KindBool && v.b }

// AsNumber returns the numeric payload; 0 for other kinds
func (v Value) AsNumber() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.n
}

// AsString returns the string payload; empty for other kinds
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// AsTime returns the date payload; zero time for other kinds
func (v Value) AsTime() time.Time {
	if v.kind != KindDate {
		return time.Time{}
	}
	return v.t
}

// Items returns the elements of a list value, nil for other kinds
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Len reports the number of list elements, map entries or string runes
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.obj.keys)
	case KindString:
		return len([]rune(v.s))
	}
	return 0
}

// Keys returns map keys in insertion order
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.obj.keys))
	copy(out, v.obj.keys)
	return out
}

// Get looks up a map entry
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	field, ok := v.obj.fields[key]
	return field, ok
}

// Set adds or replaces a map entry. It is a no-op on non-map values.
func (v Value) Set(key string, field Value) {
	if v.kind != KindMap {
		return
	}
	if _, exists := v.obj.fields[key]; !exists {
		v.obj.keys = append(v.obj.keys, key)
	}
	v.obj.fields[key] = field
}

// Delete removes a map entry
func (v Value) Delete(key string) {
	if v.kind != KindMap {
		return
	}
	if _, exists := v.obj.fields[key]; !exists {
		return
	}
	delete(v.obj.fields, key)
	for i, k := range v.obj.keys {
		if k == key {
			v.obj.keys = append(v.obj.keys[:i], v.obj.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of v
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	case KindMap:
		m := NewMap()
		for _, k := range v.obj.keys {
			m.Set(k, v.obj.fields[k].Clone())
		}
		return m
	}
	return v
}

// Truthy follows JavaScript truthiness: null, false, 0, NaN and "" are falsy,
// everything else (including empty lists and maps) is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	}
	return true
}

// Equal reports deep equality. Map key order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindDate:
		return a.t.Equal(b.t)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.obj.fields) != len(b.obj.fields) {
			return false
		}
		for k, av := range a.obj.fields {
			bv, ok := b.obj.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
