package tablefilter

import (
	"testing"
	"time"

	"backoffice/core/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, raws ...string) []value.Value {
	t.Helper()
	out := make([]value.Value, len(raws))
	for i, raw := range raws {
		v, err := value.Parse([]byte(raw))
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func sameBacking(a, b []value.Value) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func bookingNumbers(data []value.Value) []string {
	out := make([]string, len(data))
	for i, r := range data {
		v, _ := r.Get("bookingNumber")
		out[i] = v.AsString()
	}
	return out
}

var bookingFields = []string{"bookingNumber", "customerDetails.name", "model.model_name", "exchange"}

func sampleBookings(t *testing.T) []value.Value {
	return records(t,
		`{"bookingNumber":"BK-1","customerDetails":{"name":"Ravi Kumar"},"model":{"model_name":"Activa 6G"},"exchange":true}`,
		`{"bookingNumber":"BK-2","customerDetails":{"name":"Meera Nair"},"model":{"model_name":"Shine"},"exchange":false}`,
		`{"bookingNumber":"BK-3","customerDetails":null,"model":{"model_name":"Activa 125"}}`,
		`{"bookingNumber":"BK-4","customerDetails":{"name":"ravindra"},"model":null,"exchange":null}`,
	)
}

func TestEmptyQueryIsIdentity(t *testing.T) {
	data := sampleBookings(t)
	e := New(data)

	e.HandleFilter("activa", bookingFields)
	require.Len(t, e.FilteredData(), 2)

	e.HandleFilter("", bookingFields)
	assert.True(t, sameBacking(e.FilteredData(), data))
}

func TestEmptyQueryResetsDriftedFilteredData(t *testing.T) {
	data := sampleBookings(t)
	e := New(data)
	e.SetFilteredData(data[:1])

	e.HandleFilter("", nil)
	assert.True(t, sameBacking(e.FilteredData(), e.Data()))
}

func TestSetDataDoesNotRecompute(t *testing.T) {
	e := New(sampleBookings(t))
	before := e.FilteredData()

	e.SetData(nil)
	assert.True(t, sameBacking(before, e.FilteredData()))
	assert.Empty(t, e.Data())
}

func TestOrAcrossFieldsPreservesOrder(t *testing.T) {
	e := New(sampleBookings(t))

	e.HandleFilter("RAVI", bookingFields)
	assert.Equal(t, []string{"BK-1", "BK-4"}, bookingNumbers(e.FilteredData()))

	e.HandleFilter("activa", bookingFields)
	assert.Equal(t, []string{"BK-1", "BK-3"}, bookingNumbers(e.FilteredData()))

	e.HandleFilter("bk-", bookingFields)
	assert.Equal(t, []string{"BK-1", "BK-2", "BK-3", "BK-4"}, bookingNumbers(e.FilteredData()))

	e.HandleFilter("nobody", bookingFields)
	assert.Empty(t, e.FilteredData())
	assert.NotNil(t, e.FilteredData())
}

func TestFilterDoesNotMutateData(t *testing.T) {
	data := sampleBookings(t)
	e := New(data)
	e.HandleFilter("shine", bookingFields)

	assert.Len(t, e.Data(), 4)
	assert.Equal(t, []string{"BK-1", "BK-2", "BK-3", "BK-4"}, bookingNumbers(e.Data()))
}

func TestIdempotent(t *testing.T) {
	e := New(sampleBookings(t))

	e.HandleFilter("activa", bookingFields)
	first := bookingNumbers(e.FilteredData())
	e.HandleFilter("activa", bookingFields)
	assert.Equal(t, first, bookingNumbers(e.FilteredData()))
}

func TestNullIntermediateNeverMatches(t *testing.T) {
	data := records(t, `{"customerDetails":null,"model":{}}`)
	e := New(data)

	for _, q := range []string{"a", "null", "undefined", "object"} {
		e.HandleFilter(q, []string{"customerDetails.name", "model.model_name", "missing.deep.path"})
		assert.Empty(t, e.FilteredData(), q)
	}
}

func TestBooleanField(t *testing.T) {
	record := records(t, `{"exchange":true}`)[0]

	assert.True(t, Match(record, "yes", []string{"exchange"}))
	assert.True(t, Match(record, "Y", []string{"exchange"}))
	assert.False(t, Match(record, "no", []string{"exchange"}))
	assert.False(t, Match(record, "true", []string{"exchange"}))

	falsy := records(t, `{"exchange":false}`)[0]
	assert.True(t, Match(falsy, "no", []string{"exchange"}))
}

func TestCreatedAtDate(t *testing.T) {
	record := value.NewMap()
	record.Set("createdAt", value.Date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	assert.True(t, Match(record, "05/03/2024", []string{"createdAt"}))
	assert.True(t, Match(record, "03/2024", []string{"createdAt"}))
	assert.False(t, Match(record, "2024-03-05", []string{"createdAt"}))
}

func TestOtherDateFieldsUseDefaultString(t *testing.T) {
	record := value.NewMap()
	record.Set("updatedAt", value.Date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	assert.False(t, Match(record, "05/03/2024", []string{"updatedAt"}))
	assert.True(t, Match(record, "mar 05 2024", []string{"updatedAt"}))
}

func TestCreatedAtStringIsPlainText(t *testing.T) {
	record := records(t, `{"createdAt":"2024-03-05T00:00:00.000Z"}`)[0]

	assert.True(t, Match(record, "2024-03-05", []string{"createdAt"}))
	assert.True(t, Match(record, "t00", []string{"createdAt"}))
	assert.False(t, Match(record, "05/03/2024", []string{"createdAt"}))
}

func TestArrayIndexPath(t *testing.T) {
	record := records(t, `{"items":[{"vehicle":{"chassisNumber":"ABC123"}}]}`)[0]
	assert.True(t, Match(record, "abc", []string{"items.0.vehicle.chassisNumber"}))
	assert.False(t, Match(record, "abc", []string{"items.1.vehicle.chassisNumber"}))
}

func TestNumericField(t *testing.T) {
	record := records(t, `{"amount":125000.5,"zero":0}`)[0]

	assert.True(t, Match(record, "1250", []string{"amount"}))
	assert.True(t, Match(record, ".5", []string{"amount"}))
	assert.False(t, Match(record, "1,25", []string{"amount"}))
	assert.True(t, Match(record, "0", []string{"zero"}))
}

func TestObjectsAndListsUseDefaultString(t *testing.T) {
	record := records(t, `{"model":{"model_name":"Shine"},"tags":["VIP","Walk-in"]}`)[0]

	assert.True(t, Match(record, "object", []string{"model"}))
	assert.True(t, Match(record, "vip,walk", []string{"tags"}))
}

func TestSearchTextMissing(t *testing.T) {
	record := records(t, `{"a":null}`)[0]

	_, ok := SearchText(record, "a")
	assert.False(t, ok)
	_, ok = SearchText(record, "b")
	assert.False(t, ok)

	text, ok := SearchText(record, "b.c")
	assert.True(t, ok)
	assert.Equal(t, "", text)
}

func TestMatchFieldAndIndices(t *testing.T) {
	data := sampleBookings(t)

	assert.True(t, MatchField(data[1], "MEERA", "customerDetails.name"))
	assert.Equal(t, []int{0, 2}, Indices(data, "activa", bookingFields))
	assert.Equal(t, []int{0, 1, 2, 3}, Indices(data, "", bookingFields))
}

func TestMatchedFollowsFilter(t *testing.T) {
	data := sampleBookings(t)
	e := New(data)

	e.HandleFilter("activa", bookingFields)
	assert.Equal(t, []int{0, 2}, e.Matched())
	assert.Same(t, &data[2], &e.FilteredData()[1])

	e.SetFilteredData(data[:1])
	assert.Nil(t, e.Matched())

	e.HandleFilter("activa", bookingFields)
	e.HandleFilter("", bookingFields)
	assert.Nil(t, e.Matched())
}

func TestNoFieldsMatchesNothing(t *testing.T) {
	e := New(sampleBookings(t))
	e.HandleFilter("bk", nil)
	assert.Empty(t, e.FilteredData())
}
