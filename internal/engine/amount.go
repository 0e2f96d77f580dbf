package engine

import "math"

// Amount is a numeric result that distinguishes "absent" from zero. Oracle
// math treats division by zero and non-finite values as absent, never as
// zero or infinity.
type Amount struct {
	val float64
	ok  bool
}

// Some wraps a value; non-finite input yields an absent Amount.
func Some(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}
	}
	return Amount{val: v, ok: true}
}

// None is the absent Amount.
func None() Amount {
	return Amount{}
}

// Value returns the underlying value and whether it is present.
func (a Amount) Value() (float64, bool) {
	return a.val, a.ok
}

// Valid reports whether the Amount is present.
func (a Amount) Valid() bool {
	return a.ok
}

// Positive reports whether the Amount is present and strictly positive.
func (a Amount) Positive() bool {
	return a.ok && a.val > 0
}

// Or returns a when present, b otherwise.
func (a Amount) Or(b Amount) Amount {
	if a.ok {
		return a
	}
	return b
}

// Ptr converts to the nullable representation used by domain records.
func (a Amount) Ptr() *float64 {
	if !a.ok {
		return nil
	}
	v := a.val
	return &v
}
