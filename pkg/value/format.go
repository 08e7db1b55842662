package value

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// isoLayout matches Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// String renders v for display. Primitives use their JavaScript string form
// (strings are not quoted); arrays and objects use compact JSON.
func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindDate:
		return v.Time.UTC().Format(isoLayout)
	case KindOpaque:
		return v.Label
	}

	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.String()
}

// MarshalJSON encodes v the way JSON.stringify would, except that undefined
// becomes null and opaque values become their label.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.appendJSON(&buf)
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			buf.WriteString("null")
			return
		}
		buf.WriteString(formatNumber(v.Num))
	case KindString:
		writeJSONString(buf, v.Str)
	case KindBoolean:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindDate:
		writeJSONString(buf, v.Time.UTC().Format(isoLayout))
	case KindOpaque:
		writeJSONString(buf, v.Label)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.appendJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			v.Fields[k].appendJSON(buf)
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// formatNumber follows Number.prototype.toString for base 10.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
