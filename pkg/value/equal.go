package value

import "math"

// Equal reports structural equality. Arrays compare element-wise in order,
// objects by key set and per-key value regardless of key order, dates by
// instant. NaN equals NaN so that an unchanged NaN binding is not reported
// as changed.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindUndefined, KindNull:
		return true
	case KindNumber:
		return a.Num == b.Num || (math.IsNaN(a.Num) && math.IsNaN(b.Num))
	case KindString:
		return a.Str == b.Str
	case KindBoolean:
		return a.Bool == b.Bool
	case KindDate:
		return a.Time.Equal(b.Time)
	case KindOpaque:
		return a.Label == b.Label
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Keys) != len(b.Keys) {
			return false
		}
		for _, k := range a.Keys {
			other, ok := b.Fields[k]
			if !ok || !Equal(a.Fields[k], other) {
				return false
			}
		}
		return true
	}
	return false
}
