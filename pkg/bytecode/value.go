/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"fmt"
)

// A ValueKind identifies which alternative of the Value tagged union is
// populated. This is the type from the VM's perspective -- BraneScript user
// programs are dynamically typed, so this is the only notion of "type" the
// core ever checks.
type ValueKind int

const (
	ValueUnit ValueKind = iota
	ValueBoolean
	ValueInteger
	ValueReal
	ValueObjectRef
	ValueBuiltIn
	ValueFunctionRef
)

func (k ValueKind) String() string {
	switch k {
	case ValueUnit:
		return "unit"
	case ValueBoolean:
		return "boolean"
	case ValueInteger:
		return "integer"
	case ValueReal:
		return "real"
	case ValueObjectRef:
		return "object"
	case ValueBuiltIn:
		return "builtin"
	case ValueFunctionRef:
		return "function"
	default:
		return "<unknown value kind>"
	}
}

// Handle is a stable identifier for a heap object: a generational index
// (heap objects are owned by the heap, not by any one Value). It lives here, rather than in
// pkg/heap, because Value itself embeds Handles directly and pkg/heap
// already needs to import pkg/bytecode (for Value) -- putting Handle in
// bytecode avoids a cycle.
type Handle struct {
	Slot       int
	Generation uint32
}

// Zero reports whether h is the zero Handle, which never identifies a real
// heap object (handles are produced only by heap insertion).
func (h Handle) Zero() bool {
	return h.Slot == 0 && h.Generation == 0
}

// Value is a BraneScript runtime value: a small tagged union, sized to fit
// comfortably on the operand stack. The zero Value is Unit.
type Value struct {
	kind    ValueKind
	boolean bool
	integer int64
	real    float64
	handle  Handle
	builtIn byte
}

// Unit is the singular Unit value.
var Unit = Value{kind: ValueUnit}

func Boolean(b bool) Value  { return Value{kind: ValueBoolean, boolean: b} }
func Integer(i int64) Value { return Value{kind: ValueInteger, integer: i} }
func Real(r float64) Value  { return Value{kind: ValueReal, real: r} }
func ObjectRef(h Handle) Value {
	return Value{kind: ValueObjectRef, handle: h}
}
func BuiltIn(code byte) Value { return Value{kind: ValueBuiltIn, builtIn: code} }
func FunctionRef(h Handle) Value {
	return Value{kind: ValueFunctionRef, handle: h}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsUnit() bool        { return v.kind == ValueUnit }
func (v Value) IsBoolean() bool     { return v.kind == ValueBoolean }
func (v Value) IsInteger() bool     { return v.kind == ValueInteger }
func (v Value) IsReal() bool        { return v.kind == ValueReal }
func (v Value) IsObjectRef() bool   { return v.kind == ValueObjectRef }
func (v Value) IsBuiltIn() bool     { return v.kind == ValueBuiltIn }
func (v Value) IsFunctionRef() bool { return v.kind == ValueFunctionRef }

// AsBoolean, AsInteger, AsReal, AsHandle, AsBuiltIn panic if the Value is
// not of the matching kind -- callers (opcode handlers) are expected to
// check Kind()/IsXxx first and turn a mismatch into a TypeError, exactly as
// the dispatcher requires ("opcodes fail fast on type mismatch rather than
// coercing").
func (v Value) AsBoolean() bool {
	v.mustBe(ValueBoolean)
	return v.boolean
}

func (v Value) AsInteger() int64 {
	v.mustBe(ValueInteger)
	return v.integer
}

func (v Value) AsReal() float64 {
	v.mustBe(ValueReal)
	return v.real
}

func (v Value) AsHandle() Handle {
	if v.kind != ValueObjectRef && v.kind != ValueFunctionRef {
		panic(fmt.Sprintf("Value.AsHandle called on a %v value", v.kind))
	}
	return v.handle
}

func (v Value) AsBuiltIn() byte {
	v.mustBe(ValueBuiltIn)
	return v.builtIn
}

func (v Value) mustBe(want ValueKind) {
	if v.kind != want {
		panic(fmt.Sprintf("Value.As%v called on a %v value", want, v.kind))
	}
}

// IsTruthy implements BraneScript truthiness: only Boolean(true) is truthy,
// there is no coercion from integers or strings.
func (v Value) IsTruthy() bool {
	return v.kind == ValueBoolean && v.boolean
}

// String renders v for host-sink output (the `print` built-in) and error
// messages. Object/function values need the heap to render anything
// useful, so they fall back to a handle-only rendering here; DebugString
// does better when a DebugInfo is available.
func (v Value) String() string {
	switch v.kind {
	case ValueUnit:
		return "unit"
	case ValueBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValueInteger:
		return fmt.Sprintf("%d", v.integer)
	case ValueReal:
		return fmt.Sprintf("%g", v.real)
	case ValueObjectRef:
		return fmt.Sprintf("<object #%d>", v.handle.Slot)
	case ValueBuiltIn:
		return fmt.Sprintf("<builtin #%d>", v.builtIn)
	case ValueFunctionRef:
		return fmt.Sprintf("<function #%d>", v.handle.Slot)
	default:
		return "<unknown value>"
	}
}

// DebugString is like String, but consults debugInfo (when not nil) to
// render function values by name instead of by handle -- used by the
// disassembler and trace-execution mode, mirroring the original
// Value.String()/debug-info-aware rendering split.
func (v Value) DebugString(debugInfo *DebugInfo) string {
	if v.kind == ValueFunctionRef && debugInfo != nil {
		if name, ok := debugInfo.FunctionName(v.handle); ok {
			return fmt.Sprintf("<function %v>", name)
		}
	}
	return v.String()
}

// ValuesEqual reports whether a and b are equal under BraneScript's value
// equality, which is by-kind then by-payload. Handles compare by identity,
// so two distinct heap strings with the same text are unequal here; the
// VM's Equal opcode compares strings by content itself before falling back
// to this function.
func ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ValueUnit:
		return true
	case ValueBoolean:
		return a.boolean == b.boolean
	case ValueInteger:
		return a.integer == b.integer
	case ValueReal:
		return a.real == b.real
	case ValueObjectRef, ValueFunctionRef:
		return a.handle == b.handle
	case ValueBuiltIn:
		return a.builtIn == b.builtIn
	default:
		return false
	}
}
