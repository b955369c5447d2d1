package value

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// GBDateLayout renders a date the way en-GB locales print short dates
	GBDateLayout = "02/01/2006"

	jsDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"
)

// String renders v the way JavaScript's String() conversion would: lists
// join their elements with commas, maps collapse to "[object Object]".
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindDate:
		return formatJSDate(v.t)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			// join() prints null entries as empty strings
			if item.kind == KindNull {
				continue
			}
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	case KindMap:
		return "[object Object]"
	}
	return ""
}

// FormatDateGB formats t as DD/MM/YYYY in t's own location
func FormatDateGB(t time.Time) string {
	return t.Format(GBDateLayout)
}

func formatJSDate(t time.Time) string {
	return t.Format(jsDateLayout) + " (" + t.Format("MST") + ")"
}

// formatNumber matches Number.prototype.toString: plain decimal notation
// between 1e-6 and 1e21, exponent notation outside it.
func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}

	abs := math.Abs(n)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
