package table

import (
	"fmt"
	"math"
	"strings"
)

// number is satisfied by json.Number from either encoding/json or goccy/go-json
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Normalize converts a scalar into its canonical form so it can be used as a
// map key.  Integers of any width and integral floats become int64, booleans
// become 0 or 1, other floats and unsigned values beyond the int64 range are
// float64.  Non-scalar values are returned
// unchanged.
func Normalize(v any) any {

	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case string:
		return x
	case number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return x.String()
	}

	return v
}

// normalizeUint keeps values beyond the int64 range as float64 the way a json
// decoder would
func normalizeUint(u uint64) any {

	if u > math.MaxInt64 {
		return float64(u)
	}

	return int64(u)
}

func normalizeFloat(f float64) any {

	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}

	return f
}

// IsScalar reports whether v can take part in equality based grouping
func IsScalar(v any) bool {

	switch Normalize(v).(type) {
	case nil, int64, float64, string:
		return true
	}

	return false
}

// ToFloat returns the numeric value of v
func ToFloat(v any) (float64, bool) {

	switch x := Normalize(v).(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	}

	return 0, false
}

// ToInt returns the integer value of v
func ToInt(v any) (int64, bool) {

	if x, ok := Normalize(v).(int64); ok {
		return x, true
	}

	return 0, false
}

// Equal compares two scalars treating booleans as 0/1 and integral floats as
// integers
func Equal(a, b any) bool {

	na, nb := Normalize(a), Normalize(b)

	if !IsScalar(na) || !IsScalar(nb) {
		return false
	}

	fa, oka := ToFloat(na)
	fb, okb := ToFloat(nb)

	if oka && okb {
		return fa == fb
	}

	return na == nb
}

// Compare orders two scalars: nil first, then numbers, then strings
func Compare(a, b any) int {

	na, nb := Normalize(a), Normalize(b)

	if na == nil || nb == nil {
		switch {
		case na == nil && nb == nil:
			return 0
		case na == nil:
			return -1
		default:
			return 1
		}
	}

	fa, oka := ToFloat(na)
	fb, okb := ToFloat(nb)

	switch {
	case oka && okb:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case oka:
		return -1
	case okb:
		return 1
	}

	sa, sok := na.(string)
	sb, tok := nb.(string)

	if sok && tok {
		return strings.Compare(sa, sb)
	}

	return strings.Compare(fmt.Sprint(na), fmt.Sprint(nb))
}
