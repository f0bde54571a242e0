/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package builtins

import (
	"testing"

	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/romutil"
)

func TestLookupPrint(t *testing.T) {
	code, ok := Lookup("print")
	if !ok || code != Print {
		t.Fatalf("Lookup(print) = %v, %v; want %v, true", code, ok, Print)
	}
	if _, ok := Lookup("nope"); ok {
		t.Errorf("expected Lookup of an unknown name to fail")
	}
}

func TestCallPrintStringifiesHeapString(t *testing.T) {
	h := heap.New()
	handle := h.NewString("hello")
	mouth := &romutil.MemoryMouth{}

	if _, err := Call(Print, []bytecode.Value{bytecode.ObjectRef(handle)}, h, mouth); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if len(mouth.Outputs) != 1 || mouth.Outputs[0] != "hello" {
		t.Errorf("Outputs = %v, want [\"hello\"]", mouth.Outputs)
	}
}

func TestCallPrintNoArgsErrors(t *testing.T) {
	h := heap.New()
	mouth := &romutil.MemoryMouth{}
	if _, err := Call(Print, nil, h, mouth); err == nil {
		t.Errorf("expected an error when print is called with no arguments")
	}
}
