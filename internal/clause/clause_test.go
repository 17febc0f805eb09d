package clause

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpInvertIsInvolutive(t *testing.T) {
	ops := []Op{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe}
	for _, op := range ops {
		assert.Equal(t, op, op.Invert().Invert(), "double inversion of %s", op)
	}
	assert.Equal(t, OpNe, OpEq.Invert())
	assert.Equal(t, OpGe, OpLt.Invert())
	assert.Equal(t, OpGt, OpLe.Invert())
}

func TestOpFlipSwapsOperandSides(t *testing.T) {
	assert.Equal(t, OpGt, OpLt.Flip())
	assert.Equal(t, OpLe, OpGe.Flip())
	// Symmetric operators are fixed points.
	assert.Equal(t, OpEq, OpEq.Flip())
	assert.Equal(t, OpNe, OpNe.Flip())
}

func TestKindClassification(t *testing.T) {
	assert.True(t, KindListFloat.IsList())
	assert.False(t, KindFloat.IsList())
	assert.Equal(t, KindString, KindListString.Element())
	assert.Equal(t, KindUnknown, KindInt.Element())
	assert.True(t, KindInt.IsNumeric())
	assert.False(t, KindTimestamp.IsNumeric())
}

func TestToleranceScalesWithMagnitude(t *testing.T) {
	// Near zero the tolerance bottoms out at the epsilon itself.
	assert.Equal(t, FloatEpsilon, Tolerance(0))
	assert.Equal(t, FloatEpsilon, Tolerance(0.5))
	// Away from zero it scales relatively.
	assert.Equal(t, FloatEpsilon*100, Tolerance(100))
	assert.Equal(t, Tolerance(100), Tolerance(-100))
}

func TestFloatBoundsBracketTheValue(t *testing.T) {
	lo, hi := FloatBounds(1.5)
	assert.Less(t, lo, 1.5)
	assert.Greater(t, hi, 1.5)
	assert.InDelta(t, 1.5, lo, 2*Tolerance(1.5))
	assert.InDelta(t, 1.5, hi, 2*Tolerance(1.5))
}

func TestNative(t *testing.T) {
	assert.Equal(t, "Si", Native(String("Si")))
	assert.Equal(t, int64(3), Native(Int(3)))
	assert.Equal(t, 0.5, Native(Float(0.5)))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, `"Si"`, FormatValue(String("Si")))
	assert.Equal(t, "3", FormatValue(Int(3)))
	assert.Equal(t, "0.5", FormatValue(Float(0.5)))
}

func TestErrorFormatting(t *testing.T) {
	err := NewUnsupportedOperatorError("HAS ONLY", "elements", "not expressible")
	assert.Contains(t, err.Error(), "UNSUPPORTED_OPERATOR")
	assert.Contains(t, err.Error(), "property=elements")
	assert.Contains(t, err.Error(), "operator=HAS ONLY")

	err = NewUnknownPropertyError("bandgap")
	assert.Contains(t, err.Error(), "UNKNOWN_PROPERTY")
	assert.Contains(t, err.Error(), "property=bandgap")
}

// The error taxonomy splits on who is at fault: filter problems are user
// errors, missing handlers are deployment defects.
func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(NewUnknownPropertyError("x")))
	assert.True(t, IsUserError(NewUnsupportedOperatorError("=", "x", "m")))
	assert.True(t, IsUserError(NewInvalidZipError("m")))
	assert.False(t, IsUserError(NewMissingHandlerError("m")))
	assert.False(t, IsUserError(errors.New("plain")))
	assert.False(t, IsUserError(nil))
}

func TestIsUserErrorSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("transform: %w", NewUnknownPropertyError("x"))
	assert.True(t, IsUserError(wrapped))

	var te *Error
	require.ErrorAs(t, wrapped, &te)
	assert.Equal(t, ErrCodeUnknownProperty, te.Code)
}
