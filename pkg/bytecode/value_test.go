/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import "testing"

func TestValueTruthiness(t *testing.T) {
	cases := []struct {
		v       Value
		truthy  bool
		comment string
	}{
		{Boolean(true), true, "Boolean(true) is truthy"},
		{Boolean(false), false, "Boolean(false) is not truthy"},
		{Integer(1), false, "integers never coerce to truthy"},
		{Unit, false, "Unit is not truthy"},
	}
	for _, c := range cases {
		if got := c.v.IsTruthy(); got != c.truthy {
			t.Errorf("%v: IsTruthy() = %v, want %v", c.comment, got, c.truthy)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	if !ValuesEqual(Integer(42), Integer(42)) {
		t.Errorf("expected Integer(42) == Integer(42)")
	}
	if ValuesEqual(Integer(42), Real(42)) {
		t.Errorf("expected Integer(42) != Real(42), different kinds")
	}
	h := Handle{Slot: 3, Generation: 1}
	if !ValuesEqual(ObjectRef(h), ObjectRef(h)) {
		t.Errorf("expected ObjectRef with same handle to be equal")
	}
}

func TestValueAsPanicsOnWrongKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected AsInteger on a Boolean value to panic")
		}
	}()
	Boolean(true).AsInteger()
}
