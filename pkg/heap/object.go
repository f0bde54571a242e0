/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package heap

import (
	"fmt"

	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// Object is anything that can live in the heap. Every kind declares, via
// children, the outgoing handles it holds -- this is the "trace" relation
// a heap object needs, and is all the collector needs to find live
// objects: a class referencing its methods, an instance referencing its
// class and its properties, an array referencing its elements. Strings,
// bare Functions and FunctionExt descriptors hold no outgoing handles.
type Object interface {
	// Kind identifies which concrete object type this is, for
	// disassembly/debug rendering.
	Kind() string

	// children appends to acc every handle this object directly references
	// and returns the result. Called by the collector's mark phase.
	children(acc []bytecode.Handle) []bytecode.Handle
}

// String is a heap-allocated string. BraneScript Values never carry string
// bytes directly (pkg/bytecode.Value has no String variant) -- every
// string literal or computed string lives here, referenced by ObjectRef.
type String struct {
	Text string
}

func (s *String) Kind() string { return "string" }
func (s *String) children(acc []bytecode.Handle) []bytecode.Handle { return acc }

// Function is the runtime representation of a compiled function: its name
// (for stack traces), its arity, and the index of the Chunk holding its
// bytecode. Inserted into the heap by the compiler's declaration pass,
// before any bytecode is generated.
type Function struct {
	Name       string
	Arity      byte
	ChunkIndex int
}

func (f *Function) Kind() string { return "function" }
func (f *Function) children(acc []bytecode.Handle) []bytecode.Handle { return acc }

// Class is a class declaration: its name and its method table, name to
// FunctionRef value. Classes reference their methods, so the collector
// must trace through Methods to keep them alive -- this is also how the
// class/method/class constant cycle is handled: the
// collector traces the graph rather than relying on reference counting.
type Class struct {
	Name    string
	Methods map[string]bytecode.Value
}

func (c *Class) Kind() string { return "class" }

func (c *Class) children(acc []bytecode.Handle) []bytecode.Handle {
	for _, v := range c.Methods {
		if v.IsObjectRef() || v.IsFunctionRef() {
			acc = append(acc, v.AsHandle())
		}
	}
	return acc
}

// Instance is an instantiated object: a back-reference to its Class and a
// map of its field values.
type Instance struct {
	Class      bytecode.Handle
	Properties map[string]bytecode.Value
}

func (i *Instance) Kind() string { return "instance" }

func (i *Instance) children(acc []bytecode.Handle) []bytecode.Handle {
	acc = append(acc, i.Class)
	for _, v := range i.Properties {
		if v.IsObjectRef() || v.IsFunctionRef() {
			acc = append(acc, v.AsHandle())
		}
	}
	return acc
}

// Array is a BraneScript array value: a declared element type tag (for
// error messages) plus the element Values themselves.
type Array struct {
	ElementType string
	Elements    []bytecode.Value
}

func (a *Array) Kind() string { return "array" }

func (a *Array) children(acc []bytecode.Handle) []bytecode.Handle {
	for _, v := range a.Elements {
		if v.IsObjectRef() || v.IsFunctionRef() {
			acc = append(acc, v.AsHandle())
		}
	}
	return acc
}

// FunctionExt is a descriptor of an external package function: it is never
// executed locally, only matched against a call pattern and handed to the
// Executor as part of a VmCall. Parameters reuse packageindex.Parameter so
// the descriptor a call pattern resolves to and the value pushed at
// runtime describe the same shape.
type FunctionExt struct {
	Name       string
	Package    string
	Version    string
	Kind       string
	Parameters []packageindex.Parameter
	ReturnType string
}

func (f *FunctionExt) Kind() string { return "function_ext" }
func (f *FunctionExt) children(acc []bytecode.Handle) []bytecode.Handle { return acc }

// DebugString renders obj for disassembly and trace-execution output.
func DebugString(obj Object) string {
	switch o := obj.(type) {
	case *String:
		return fmt.Sprintf("%q", o.Text)
	case *Function:
		return fmt.Sprintf("<function %v>", o.Name)
	case *Class:
		return fmt.Sprintf("<class %v>", o.Name)
	case *Instance:
		return fmt.Sprintf("<instance of class#%d>", o.Class.Slot)
	case *Array:
		return fmt.Sprintf("<array[%d]>", len(o.Elements))
	case *FunctionExt:
		return fmt.Sprintf("<extern %v.%v>", o.Package, o.Name)
	default:
		return "<object>"
	}
}
