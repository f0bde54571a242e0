/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package heap

import (
	"testing"

	"github.com/brane-lang/branescript/pkg/bytecode"
)

func TestAllocAndGet(t *testing.T) {
	h := New()
	handle := h.NewString("hello")

	obj, ok := h.Get(handle)
	if !ok {
		t.Fatalf("expected handle to be live")
	}
	s, ok := obj.(*String)
	if !ok {
		t.Fatalf("expected *String, got %T", obj)
	}
	if s.Text != "hello" {
		t.Errorf("Text = %q, want %q", s.Text, "hello")
	}
}

func TestGetInvalidHandle(t *testing.T) {
	h := New()
	if _, ok := h.Get(bytecode.Handle{Slot: 7}); ok {
		t.Errorf("expected Get on an unallocated slot to fail")
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := New()
	kept := h.NewString("kept")
	_ = h.NewString("garbage")

	h.Roots = func() []bytecode.Handle {
		return []bytecode.Handle{kept}
	}
	h.Collect()

	if _, ok := h.Get(kept); !ok {
		t.Errorf("expected rooted handle to survive collection")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after collecting one unreachable object", h.Len())
	}
}

func TestCollectTracesThroughInstance(t *testing.T) {
	h := New()
	class := h.NewClass("Widget", nil)
	field := h.NewString("value")
	instance := h.NewInstance(class, map[string]bytecode.Value{
		"field": bytecode.ObjectRef(field),
	})

	h.Roots = func() []bytecode.Handle {
		return []bytecode.Handle{instance}
	}
	h.Collect()

	for _, handle := range []bytecode.Handle{class, field, instance} {
		if _, ok := h.Get(handle); !ok {
			t.Errorf("expected handle %+v reachable through instance to survive", handle)
		}
	}
}

func TestStaleHandleAfterFree(t *testing.T) {
	h := New()
	garbage := h.NewString("garbage")
	kept := h.NewString("kept")

	h.Roots = func() []bytecode.Handle { return []bytecode.Handle{kept} }
	h.Collect()

	if _, ok := h.Get(garbage); ok {
		t.Errorf("expected the freed handle to be invalid after collection")
	}
}

func TestRecycledSlotBumpsGeneration(t *testing.T) {
	h := New()
	first := h.NewString("first")

	h.Roots = func() []bytecode.Handle { return nil }
	h.Collect()

	second := h.NewString("second")
	if second.Slot == first.Slot && second.Generation == first.Generation {
		t.Errorf("expected a recycled slot to carry a bumped generation")
	}
	if _, ok := h.Get(first); ok {
		t.Errorf("expected the old handle into a recycled slot to be invalid")
	}
}
