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
)

// initialThreshold is the object count above which the first collection is
// triggered. The threshold doubles after each collection that doesn't free
// enough to bring it back under half, so long-running scripts with a
// large live set don't collect on every other allocation.
const initialThreshold = 256

type slot struct {
	object     Object
	generation uint32
	marked     bool
	free       bool
}

// Heap is a single traced arena: every String, Function, Class, Instance,
// Array and FunctionExt a compiled program or running Machine needs lives
// here, addressed by generational bytecode.Handle values,
// §9 "Ownership of heap objects"). A Heap has no notion of the VM that
// uses it -- it asks for live roots through the Roots closure, set by
// whoever embeds it, so this package has zero dependency on pkg/vm.
type Heap struct {
	slots     []slot
	freeList  []int
	threshold int
	live      int

	// Roots is invoked by Collect to obtain every handle directly
	// reachable from outside the heap: the operand stack, the globals
	// map, the call-frame vector's function handles, and any in-flight
	// external-call argument vector. A nil Roots makes
	// Collect a no-op, which is adequate for tests that exercise the
	// arena in isolation.
	Roots func() []bytecode.Handle
}

// New returns an empty Heap ready for allocation.
func New() *Heap {
	return &Heap{threshold: initialThreshold}
}

// Alloc inserts obj into the heap and returns its handle. Triggers a
// collection first when the live object count has crossed the threshold.
func (h *Heap) Alloc(obj Object) bytecode.Handle {
	if h.live >= h.threshold {
		h.Collect()
	}

	var index int
	if n := len(h.freeList); n > 0 {
		index = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.slots[index].object = obj
		h.slots[index].free = false
	} else {
		index = len(h.slots)
		// Fresh slots start at generation 1, so no object ever gets the
		// zero Handle (which marks "no function" in call frames and debug info).
		h.slots = append(h.slots, slot{object: obj, generation: 1})
	}

	h.live++
	return bytecode.Handle{Slot: index, Generation: h.slots[index].generation}
}

// Get dereferences handle, returning the object and whether the handle is
// still valid (i.e. hasn't been freed and reused for something else, which
// a generation mismatch reveals).
func (h *Heap) Get(handle bytecode.Handle) (Object, bool) {
	if handle.Slot < 0 || handle.Slot >= len(h.slots) {
		return nil, false
	}
	s := &h.slots[handle.Slot]
	if s.free || s.generation != handle.Generation {
		return nil, false
	}
	return s.object, true
}

// MustGet is like Get, but panics on an invalid handle -- for call sites
// that have already established the handle must be live (e.g. the VM
// dereferencing its own call-frame function handle).
func (h *Heap) MustGet(handle bytecode.Handle) Object {
	obj, ok := h.Get(handle)
	if !ok {
		panic(fmt.Sprintf("heap: dereferenced a stale or invalid handle %+v", handle))
	}
	return obj
}

// NewString allocates a String object and returns its handle.
func (h *Heap) NewString(text string) bytecode.Handle {
	return h.Alloc(&String{Text: text})
}

// NewFunction allocates a Function object and returns its handle.
func (h *Heap) NewFunction(name string, arity byte, chunkIndex int) bytecode.Handle {
	return h.Alloc(&Function{Name: name, Arity: arity, ChunkIndex: chunkIndex})
}

// NewClass allocates a Class object and returns its handle. methods may be
// extended in place after allocation (codegen resolves method bodies after
// registering the class itself, to support methods that reference their
// own class in a cycle).
func (h *Heap) NewClass(name string, methods map[string]bytecode.Value) bytecode.Handle {
	if methods == nil {
		methods = make(map[string]bytecode.Value)
	}
	return h.Alloc(&Class{Name: name, Methods: methods})
}

// NewInstance allocates an Instance object and returns its handle.
func (h *Heap) NewInstance(class bytecode.Handle, properties map[string]bytecode.Value) bytecode.Handle {
	if properties == nil {
		properties = make(map[string]bytecode.Value)
	}
	return h.Alloc(&Instance{Class: class, Properties: properties})
}

// NewArray allocates an Array object and returns its handle.
func (h *Heap) NewArray(elementType string, elements []bytecode.Value) bytecode.Handle {
	return h.Alloc(&Array{ElementType: elementType, Elements: elements})
}

// NewFunctionExt allocates a FunctionExt descriptor and returns its handle.
func (h *Heap) NewFunctionExt(ext *FunctionExt) bytecode.Handle {
	return h.Alloc(ext)
}

// Len reports the number of live objects -- exposed mainly for tests and
// diagnostics, not for any collection-timing decision outside this package.
func (h *Heap) Len() int {
	return h.live
}

// Collect runs one mark-sweep cycle: mark every object transitively
// reachable from Roots(), then free everything unmarked. Safe to call with
// a nil Roots (no-op) or with zero live objects.
func (h *Heap) Collect() {
	for i := range h.slots {
		h.slots[i].marked = false
	}

	if h.Roots == nil {
		h.advanceThreshold()
		return
	}

	var gray []bytecode.Handle
	for _, root := range h.Roots() {
		gray = append(gray, root)
	}

	for len(gray) > 0 {
		handle := gray[len(gray)-1]
		gray = gray[:len(gray)-1]

		if handle.Slot < 0 || handle.Slot >= len(h.slots) {
			continue
		}
		s := &h.slots[handle.Slot]
		if s.free || s.generation != handle.Generation || s.marked {
			continue
		}
		s.marked = true
		gray = s.object.children(gray)
	}

	for i := range h.slots {
		s := &h.slots[i]
		if s.free || s.marked {
			continue
		}
		s.free = true
		s.object = nil
		s.generation++
		h.live--
		h.freeList = append(h.freeList, i)
	}

	h.advanceThreshold()
}

// advanceThreshold doubles the collection threshold when the live set is
// still above half of it after a sweep, so a workload whose live set
// genuinely grows doesn't collect on every other allocation; a threshold
// that a sweep brought back under half is left alone.
func (h *Heap) advanceThreshold() {
	if h.live*2 > h.threshold {
		h.threshold *= 2
	}
}
