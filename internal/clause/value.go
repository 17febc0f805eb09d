package clause

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface for literal operand values.
// Only String, Int and Float implement it.
type Value interface {
	valueNode() // Sealed - only types in this package implement it
}

// String is a string literal operand. The transformer stores it
// NFC-normalized so backends compare against a single canonical form.
type String string

func (String) valueNode() {}

// Int is an integer literal operand. Always int64.
type Int int64

func (Int) valueNode() {}

// Float is a floating point literal operand.
//
// Equality and inequality on floats are never compiled as exact bit
// comparisons; backends widen them to a closed interval using Tolerance.
type Float float64

func (Float) valueNode() {}

// FloatEpsilon is the relative tolerance applied to float (in)equality.
//
// The filter language deliberately leaves the tolerance policy to the
// implementation. This value is the documented policy of this
// implementation, not a protocol constant: `x = v` matches when
// |x - v| <= Tolerance(v).
const FloatEpsilon = 1e-10

// Tolerance returns the absolute comparison tolerance for v.
// The tolerance scales with |v| but never shrinks below FloatEpsilon,
// so comparisons near zero remain well-defined.
func Tolerance(v float64) float64 {
	return FloatEpsilon * math.Max(1, math.Abs(v))
}

// FloatBounds returns the closed interval [lo, hi] that an epsilon-tolerant
// equality against v must match.
func FloatBounds(v float64) (lo, hi float64) {
	d := Tolerance(v)
	return v - d, v + d
}

// Native returns the Go value wrapped by v, for handing to query objects
// and database drivers.
func Native(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	default:
		panic(fmt.Sprintf("clause: unknown Value type %T", v))
	}
}

// FormatValue renders v the way it would appear in a filter string.
// Used in error messages and trace output.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
