/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package builtins defines BraneScript's native built-in functions: the
// small, fixed set of names the compiler resolves directly to an OpBuiltIn
// instruction instead of an ordinary global/local call, and the table the
// VM dispatcher consults to actually run them.
package builtins

import (
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/romutil"
)

// Built-in codes, encoded as the single-byte OpBuiltIn operand
// (bytecode.OperandBuiltIn). Print is grounded on the original system's
// BUILTIN_PRINT_CODE constant (original_source/brane-bvm/src/builtins.rs);
// Len and TypeOf extend that table with the two other
// built-ins a workflow script needs to inspect an array/string and a
// package function's result without a method-call syntax.
const (
	Print byte = 0x01
	Len   byte = 0x02
	TypeOf byte = 0x03
)

// names maps a built-in's source-level name to its code, consulted by the
// compiler while resolving an identifier call.
var names = map[string]byte{
	"print":  Print,
	"len":    Len,
	"typeof": TypeOf,
}

// Lookup returns the code for a built-in named name, and whether one exists.
func Lookup(name string) (byte, bool) {
	code, ok := names[name]
	return code, ok
}

// Call invokes the built-in identified by code with the given arguments.
// mouth receives any user-visible output (only `print` produces any today).
func Call(code byte, args []bytecode.Value, h *heap.Heap, mouth romutil.Mouth) (bytecode.Value, error) {
	switch code {
	case Print:
		if len(args) == 0 {
			return bytecode.Unit, errs.NewRuntime("print expects 1 argument, got 0")
		}
		mouth.Say(Stringify(args[0], h))
		mouth.Flush()
		return bytecode.Unit, nil

	case Len:
		if len(args) == 0 {
			return bytecode.Unit, errs.NewRuntime("len expects 1 argument, got 0")
		}
		return length(args[0], h)

	case TypeOf:
		if len(args) == 0 {
			return bytecode.Unit, errs.NewRuntime("typeof expects 1 argument, got 0")
		}
		return bytecode.ObjectRef(h.NewString(typeName(args[0], h))), nil

	default:
		return bytecode.Unit, errs.NewICE("unknown built-in code: %v", code)
	}
}

// length implements the `len` built-in: the element count of an array, or
// the rune-agnostic byte length of a string.
func length(v bytecode.Value, h *heap.Heap) (bytecode.Value, error) {
	if !v.IsObjectRef() {
		return bytecode.Unit, errs.NewRuntime("len: value has no length (%v)", v.Kind())
	}
	obj, ok := h.Get(v.AsHandle())
	if !ok {
		return bytecode.Unit, errs.NewRuntime("len: stale object handle")
	}
	switch o := obj.(type) {
	case *heap.String:
		return bytecode.Integer(int64(len(o.Text))), nil
	case *heap.Array:
		return bytecode.Integer(int64(len(o.Elements))), nil
	default:
		return bytecode.Unit, errs.NewRuntime("len: value has no length (%v)", o.Kind())
	}
}

// typeName implements the `typeof` built-in, naming a value's dynamic kind
// the way disassembly and error messages already do (heap.Object.Kind for
// object values, bytecode.ValueKind otherwise).
func typeName(v bytecode.Value, h *heap.Heap) string {
	if v.IsObjectRef() {
		if obj, ok := h.Get(v.AsHandle()); ok {
			return obj.Kind()
		}
		return "object"
	}
	return v.Kind().String()
}

// Stringify renders v for display, dereferencing heap strings instead of
// falling back to Value.String's handle-only rendering.
func Stringify(v bytecode.Value, h *heap.Heap) string {
	if v.IsObjectRef() {
		if obj, ok := h.Get(v.AsHandle()); ok {
			if s, ok := obj.(*heap.String); ok {
				return s.Text
			}
		}
	}
	return v.String()
}
