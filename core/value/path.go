package value

import (
	"strconv"
	"strings"
)

// Resolve walks a dot-path into root. All-digit segments index lists (and
// map keys spelled as that integer); any other segment is a map key.
//
// Whenever the current value is falsy or missing before a segment is
// applied, the walk collapses to the empty string, so a broken chain
// resolves to ("", true) instead of failing. The boolean is false only when
// the last segment itself found nothing.
func Resolve(root Value, path string) (Value, bool) {
	cur, ok := root, true
	for _, seg := range strings.Split(path, ".") {
		if !ok || !cur.Truthy() {
			cur, ok = String(""), true
			continue
		}
		cur, ok = cur.step(seg)
	}
	return cur, ok
}

// Lookup is Resolve without the empty-string collapse: it reports false as
// soon as any segment is missing.
func Lookup(root Value, path string) (Value, bool) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		next, ok := cur.step(seg)
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

func (v Value) step(seg string) (Value, bool) {
	if IsIndexSegment(seg) {
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return Null(), false
		}
		switch v.kind {
		case KindList:
			if idx < len(v.list) {
				return v.list[idx], true
			}
		case KindString:
			runes := []rune(v.s)
			if idx < len(runes) {
				return String(string(runes[idx])), true
			}
		case KindMap:
			// "01" addresses key "1", as parseInt would
			return v.Get(strconv.Itoa(idx))
		}
		return Null(), false
	}

	switch v.kind {
	case KindMap:
		return v.Get(seg)
	case KindList, KindString:
		if seg == "length" {
			return Number(float64(v.Len())), true
		}
	}
	return Null(), false
}

// IsIndexSegment reports whether seg matches ^\d+$
func IsIndexSegment(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

// maxAssignIndex bounds list growth when assigning through index segments
const maxAssignIndex = 1024

// Assign stores field at path inside root and returns the updated root.
// Missing containers are created: a map for key segments, a list padded
// with nulls for index segments.
func Assign(root Value, path string, field Value) Value {
	return assign(root, strings.Split(path, "."), field)
}

func assign(cur Value, segs []string, field Value) Value {
	if len(segs) == 0 {
		return field
	}
	seg := segs[0]

	if IsIndexSegment(seg) && cur.kind != KindMap {
		idx, err := strconv.Atoi(seg)
		if err != nil || idx > maxAssignIndex {
			return cur
		}
		var items []Value
		if cur.kind == KindList {
			items = append(items, cur.list...)
		}
		for len(items) <= idx {
			items = append(items, Null())
		}
		items[idx] = assign(items[idx], segs[1:], field)
		return List(items...)
	}

	if cur.kind != KindMap {
		cur = NewMap()
	}
	child, _ := cur.Get(seg)
	cur.Set(seg, assign(child, segs[1:], field))
	return cur
}

// Leaves lists the dot-paths of every scalar inside root in document order.
// Empty lists and maps are reported as leaves themselves.
func Leaves(root Value) []string {
	var out []string
	collectLeaves(root, "", &out)
	return out
}

func collectLeaves(v Value, prefix string, out *[]string) {
	join := func(seg string) string {
		if prefix == "" {
			return seg
		}
		return prefix + "." + seg
	}

	switch v.kind {
	case KindMap:
		if len(v.obj.keys) == 0 && prefix != "" {
			*out = append(*out, prefix)
			return
		}
		for _, k := range v.obj.keys {
			collectLeaves(v.obj.fields[k], join(k), out)
		}
	case KindList:
		if len(v.list) == 0 && prefix != "" {
			*out = append(*out, prefix)
			return
		}
		for i, item := range v.list {
			collectLeaves(item, join(strconv.Itoa(i)), out)
		}
	default:
		if prefix != "" {
			*out = append(*out, prefix)
		}
	}
}
