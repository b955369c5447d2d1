// Package tablefilter implements the search box behaviour shared by every
// list view: a dataset, a derived filtered dataset, and a case-insensitive
// substring match over a list of dot-paths.
package tablefilter

import (
	"strings"

	"backoffice/core/value"
)

// CreatedAtField is the only path whose Date values are compared in
// DD/MM/YYYY form; dates under any other path use their default string form.
const CreatedAtField = "createdAt"

// Engine holds a dataset and the subset currently matching the search box.
// An Engine belongs to a single caller and is not safe for concurrent use.
type Engine struct {
	data         []value.Value
	filteredData []value.Value
	matched      []int
}

// New returns an engine seeded with data as both the dataset and the
// filtered dataset
func New(data []value.Value) *Engine {
	return &Engine{data: data, filteredData: data}
}

// Data returns the unfiltered dataset
func (e *Engine) Data() []value.Value {
	return e.data
}

// SetData replaces the dataset. The filtered dataset is left as is.
func (e *Engine) SetData(data []value.Value) {
	e.data = data
}

// FilteredData returns the current filtered dataset
func (e *Engine) FilteredData() []value.Value {
	return e.filteredData
}

// SetFilteredData replaces the filtered dataset directly, e.g. to seed it
// after a fetch or to apply a predicate the engine does not know about.
func (e *Engine) SetFilteredData(data []value.Value) {
	e.filteredData = data
	e.matched = nil
}

// Matched returns the dataset positions kept by the last HandleFilter with a
// non-empty query. It is nil after a reset or a SetFilteredData.
func (e *Engine) Matched() []int {
	return e.matched
}

// HandleFilter recomputes the filtered dataset. An empty query resets it to
// the dataset itself; otherwise a record is kept when at least one of the
// fields matches.
func (e *Engine) HandleFilter(query string, fields []string) {
	if query == "" {
		e.filteredData = e.data
		e.matched = nil
		return
	}

	e.matched = Indices(e.data, query, fields)
	filtered := make([]value.Value, len(e.matched))
	for i, idx := range e.matched {
		filtered[i] = e.data[idx]
	}
	e.filteredData = filtered
}

// Match reports whether record matches query on any of fields. An empty
// query matches everything.
func Match(record value.Value, query string, fields []string) bool {
	if query == "" {
		return true
	}
	return matchAny(record, strings.ToLower(query), fields)
}

// MatchField reports whether the value at path contains query
func MatchField(record value.Value, query, path string) bool {
	return matchField(record, strings.ToLower(query), path)
}

// Indices returns the positions in data of the records matching query
func Indices(data []value.Value, query string, fields []string) []int {
	out := make([]int, 0, len(data))
	if query == "" {
		for i := range data {
			out = append(out, i)
		}
		return out
	}

	needle := strings.ToLower(query)
	for i, record := range data {
		if matchAny(record, needle, fields) {
			out = append(out, i)
		}
	}
	return out
}

func matchAny(record value.Value, needle string, fields []string) bool {
	for _, path := range fields {
		if matchField(record, needle, path) {
			return true
		}
	}
	return false
}

func matchField(record value.Value, needle, path string) bool {
	text, ok := SearchText(record, path)
	if !ok {
		return false
	}
	return strings.Contains(text, needle)
}

// SearchText resolves path inside record and renders it the way the search
// box compares it. It reports false when the value is null or missing.
func SearchText(record value.Value, path string) (string, bool) {
	v, ok := value.Resolve(record, path)
	if !ok || v.IsNull() {
		return "", false
	}

	switch v.Kind() {
	case value.KindBool:
		if v.AsBool() {
			return "yes", true
		}
		return "no", true
	case value.KindDate:
		if path == CreatedAtField {
			return value.FormatDateGB(v.AsTime()), true
		}
	case value.KindNumber:
		return v.String(), true
	}
	return strings.ToLower(v.String()), true
}
