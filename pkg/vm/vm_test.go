/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"context"
	"testing"

	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/executor"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// chunkOf builds a single-chunk program whose main is code, with the given
// constants, ready to run with Start().
func chunkOf(code []byte, constants ...bytecode.Value) *bytecode.CompiledProgram {
	return &bytecode.CompiledProgram{
		Chunks:    []*bytecode.Chunk{{Code: code}},
		MainChunk: 0,
		Constants: constants,
	}
}

func newTestVM(program *bytecode.CompiledProgram, h *heap.Heap, opts Options) *VM {
	if h == nil {
		h = heap.New()
	}
	return New(program, nil, h, nil, nil, opts)
}

func TestArithmeticAndFallOff(t *testing.T) {
	// 2 + 3 * 4, left on the stack by AlwaysReturn.
	code := []byte{
		byte(bytecode.OpConstant), 0, 0, // 2
		byte(bytecode.OpConstant), 0, 1, // 3
		byte(bytecode.OpConstant), 0, 2, // 4
		byte(bytecode.OpMul),
		byte(bytecode.OpAdd),
	}
	program := chunkOf(code, bytecode.Integer(2), bytecode.Integer(3), bytecode.Integer(4))
	vm := newTestVM(program, nil, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk {
		t.Fatalf("Kind = %v, want OutcomeOk", out.Kind)
	}
	if !out.HasValue || out.Value.AsInteger() != 14 {
		t.Errorf("Value = %+v, want Integer(14)", out.Value)
	}
}

func TestFallOffWithoutAlwaysReturnYieldsNoValue(t *testing.T) {
	code := []byte{byte(bytecode.OpConstant), 0, 0}
	program := chunkOf(code, bytecode.Integer(1))
	vm := newTestVM(program, nil, Options{})

	out := vm.Start()
	if out.Kind != OutcomeOk || out.HasValue {
		t.Errorf("got %+v, want OutcomeOk with no value", out)
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	code := []byte{
		byte(bytecode.OpConstant), 0, 0,
		byte(bytecode.OpConstant), 0, 1,
		byte(bytecode.OpDiv),
	}
	program := chunkOf(code, bytecode.Integer(10), bytecode.Integer(0))
	vm := newTestVM(program, nil, Options{})

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
	rt, ok := out.Err.(*errs.Runtime)
	if !ok || rt.Kind != errs.RuntimeKindDivisionByZero {
		t.Errorf("Err = %+v, want RuntimeKindDivisionByZero", out.Err)
	}
}

func TestIntegerAddOverflow(t *testing.T) {
	code := []byte{
		byte(bytecode.OpConstant), 0, 0,
		byte(bytecode.OpConstant), 0, 1,
		byte(bytecode.OpAdd),
	}
	program := chunkOf(code, bytecode.Integer(1<<62), bytecode.Integer(1<<62))
	vm := newTestVM(program, nil, Options{})

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
	rt, ok := out.Err.(*errs.Runtime)
	if !ok || rt.Kind != errs.RuntimeKindGeneric {
		t.Errorf("Err = %+v, want RuntimeKindGeneric overflow", out.Err)
	}
}

func TestStringConcatIsCommutative(t *testing.T) {
	h := heap.New()
	greeting := h.NewString("count: ")
	code := []byte{
		byte(bytecode.OpConstant), 0, 0, // "count: "
		byte(bytecode.OpConstant), 0, 1, // 3
		byte(bytecode.OpAdd),
	}
	program := chunkOf(code, bytecode.ObjectRef(greeting), bytecode.Integer(3))
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk {
		t.Fatalf("Kind = %v, want OutcomeOk", out.Kind)
	}
	s, ok := h.Get(out.Value.AsHandle())
	if !ok {
		t.Fatalf("expected a live string handle")
	}
	str := s.(*heap.String)
	if str.Text != "count: 3" {
		t.Errorf("Text = %q, want %q", str.Text, "count: 3")
	}
}

func TestStringEqualityIsByContent(t *testing.T) {
	h := heap.New()
	a := h.NewString("hi")
	b := h.NewString("hi")
	code := []byte{
		byte(bytecode.OpConstant), 0, 0,
		byte(bytecode.OpConstant), 0, 1,
		byte(bytecode.OpEqual),
	}
	program := chunkOf(code, bytecode.ObjectRef(a), bytecode.ObjectRef(b))
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk || !out.HasValue || !out.Value.AsBoolean() {
		t.Errorf("got %+v, want OutcomeOk/true (distinct string objects, same content)", out)
	}
}

func TestGlobalsDefineGetSet(t *testing.T) {
	h := heap.New()
	name := h.NewString("x")
	code := []byte{
		byte(bytecode.OpConstant), 0, 1, // 10
		byte(bytecode.OpDefineGlobal), 0, 0, // x = 10
		byte(bytecode.OpConstant), 0, 2, // 20
		byte(bytecode.OpSetGlobal), 0, 0, // x = 20 (peeks, leaves 20 on stack)
		byte(bytecode.OpPop),
		byte(bytecode.OpGetGlobal), 0, 0, // push x
	}
	program := chunkOf(code, bytecode.ObjectRef(name), bytecode.Integer(10), bytecode.Integer(20))
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk || !out.HasValue || out.Value.AsInteger() != 20 {
		t.Errorf("got %+v, want Integer(20)", out)
	}
}

func TestUndefinedGlobalFails(t *testing.T) {
	h := heap.New()
	name := h.NewString("nope")
	code := []byte{byte(bytecode.OpGetGlobal), 0, 0}
	program := chunkOf(code, bytecode.ObjectRef(name))
	vm := newTestVM(program, h, Options{})

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
	rt, ok := out.Err.(*errs.Runtime)
	if !ok || rt.Kind != errs.RuntimeKindUndefinedGlobal {
		t.Errorf("Err = %+v, want RuntimeKindUndefinedGlobal", out.Err)
	}
}

func TestArrayIndexAndBounds(t *testing.T) {
	code := []byte{
		byte(bytecode.OpConstant), 0, 0, // 1
		byte(bytecode.OpConstant), 0, 1, // 2
		byte(bytecode.OpConstant), 0, 2, // 3
		byte(bytecode.OpArray), 3,
		byte(bytecode.OpConstant), 0, 3, // index 1
		byte(bytecode.OpIndex),
	}
	program := chunkOf(code, bytecode.Integer(1), bytecode.Integer(2), bytecode.Integer(3), bytecode.Integer(1))
	vm := newTestVM(program, nil, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk || !out.HasValue || out.Value.AsInteger() != 2 {
		t.Errorf("got %+v, want Integer(2)", out)
	}
}

func TestArrayIndexOutOfBounds(t *testing.T) {
	code := []byte{
		byte(bytecode.OpConstant), 0, 0,
		byte(bytecode.OpArray), 1,
		byte(bytecode.OpConstant), 0, 1, // index 5
		byte(bytecode.OpIndex),
	}
	program := chunkOf(code, bytecode.Integer(1), bytecode.Integer(5))
	vm := newTestVM(program, nil, Options{})

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
	rt, ok := out.Err.(*errs.Runtime)
	if !ok || rt.Kind != errs.RuntimeKindIndexOutOfBounds {
		t.Errorf("Err = %+v, want RuntimeKindIndexOutOfBounds", out.Err)
	}
}

func TestCallOrdinaryFunction(t *testing.T) {
	h := heap.New()
	// Function chunk 1: slot 0 = callee, slot 1 = arg; returns arg + 1.
	fnCode := []byte{
		byte(bytecode.OpGetLocal), 1,
		byte(bytecode.OpConstant), 0, 0, // 1
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}
	fnHandle := h.NewFunction("increment", 1, 1)

	mainCode := []byte{
		byte(bytecode.OpConstant), 0, 1, // push FunctionRef
		byte(bytecode.OpConstant), 0, 2, // push argument 41
		byte(bytecode.OpCall), 1,
	}
	program := &bytecode.CompiledProgram{
		Chunks: []*bytecode.Chunk{
			{Code: mainCode},
			{Code: fnCode},
		},
		MainChunk: 0,
		Constants: []bytecode.Value{
			bytecode.Integer(1),
			bytecode.FunctionRef(fnHandle),
			bytecode.Integer(41),
		},
	}
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeOk {
		t.Fatalf("Kind = %v, want OutcomeOk, err = %+v", out.Kind, out.Err)
	}
	if !out.HasValue || out.Value.AsInteger() != 42 {
		t.Errorf("Value = %+v, want Integer(42)", out.Value)
	}
}

func TestArityMismatchFails(t *testing.T) {
	h := heap.New()
	fnCode := []byte{byte(bytecode.OpUnit), byte(bytecode.OpReturn)}
	fnHandle := h.NewFunction("noop", 0, 1)

	mainCode := []byte{
		byte(bytecode.OpConstant), 0, 0,
		byte(bytecode.OpConstant), 0, 1, // one extra argument
		byte(bytecode.OpCall), 1,
	}
	program := &bytecode.CompiledProgram{
		Chunks:    []*bytecode.Chunk{{Code: mainCode}, {Code: fnCode}},
		MainChunk: 0,
		Constants: []bytecode.Value{bytecode.FunctionRef(fnHandle), bytecode.Integer(1)},
	}
	vm := newTestVM(program, h, Options{})

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
}

func TestCallExtSuspendsAndResolves(t *testing.T) {
	h := heap.New()
	ext := h.NewFunctionExt(&heap.FunctionExt{
		Name:       "get_weather",
		Package:    "demo",
		Version:    "1.0.0",
		Kind:       "oas",
		Parameters: []packageindex.Parameter{{Name: "city", DataType: "string"}},
		ReturnType: "string",
	})

	code := []byte{
		byte(bytecode.OpConstant), 0, 0, // push FunctionExt
		byte(bytecode.OpConstant), 0, 1, // push "Leiden"
		byte(bytecode.OpCallExt), 1,
	}
	city := h.NewString("Leiden")
	program := chunkOf(code, bytecode.ObjectRef(ext), bytecode.ObjectRef(city))
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeCall {
		t.Fatalf("Kind = %v, want OutcomeCall", out.Kind)
	}
	if out.Call.Package != "demo" || out.Call.Function != "get_weather" {
		t.Errorf("Call = %+v, unexpected package/function", out.Call)
	}
	if got, ok := out.Call.Arguments["city"]; !ok || !got.IsObjectRef() {
		t.Errorf("Arguments[city] = %+v, want the city string", got)
	}

	result := bytecode.ObjectRef(h.NewString("sunny"))
	out = vm.Resolve(result)
	if out.Kind != OutcomeOk || !out.HasValue {
		t.Fatalf("got %+v, want OutcomeOk carrying the resolved value", out)
	}
	resolved, _ := h.Get(out.Value.AsHandle())
	if resolved.(*heap.String).Text != "sunny" {
		t.Errorf("resolved string = %+v, want %q", resolved, "sunny")
	}
}

func TestCancelSurfacesAsRuntimeError(t *testing.T) {
	code := []byte{byte(bytecode.OpNop), byte(bytecode.OpNop)}
	program := chunkOf(code)
	vm := newTestVM(program, nil, Options{})
	vm.Cancel()

	out := vm.Start()
	if out.Kind != OutcomeError {
		t.Fatalf("Kind = %v, want OutcomeError", out.Kind)
	}
	rt, ok := out.Err.(*errs.Runtime)
	if !ok || rt.Kind != errs.RuntimeKindCancelled {
		t.Errorf("Err = %+v, want RuntimeKindCancelled", out.Err)
	}
}

func TestBudgetYields(t *testing.T) {
	code := []byte{byte(bytecode.OpNop), byte(bytecode.OpNop)}
	program := chunkOf(code)
	asked := false
	vm := newTestVM(program, nil, Options{Budget: func() bool {
		if asked {
			return false
		}
		asked = true
		return true
	}})

	out := vm.Start()
	if out.Kind != OutcomeYield {
		t.Fatalf("Kind = %v, want OutcomeYield", out.Kind)
	}
	out = vm.Resume()
	if out.Kind != OutcomeOk {
		t.Errorf("Kind = %v, want OutcomeOk after re-resuming past the yield", out.Kind)
	}
}

func TestParallelBlockForksChildrenSharingTheHeap(t *testing.T) {
	h := heap.New()

	branchA := []byte{byte(bytecode.OpConstant), 0, 0, byte(bytecode.OpReturn)}
	branchB := []byte{byte(bytecode.OpConstant), 0, 1, byte(bytecode.OpReturn)}
	fnA := h.NewFunction("<parallel#0>", 0, 1)
	fnB := h.NewFunction("<parallel#1>", 0, 2)

	mainCode := []byte{
		byte(bytecode.OpConstant), 0, 2, // FunctionRef A
		byte(bytecode.OpConstant), 0, 3, // FunctionRef B
		byte(bytecode.OpParallel), 2,
	}
	program := &bytecode.CompiledProgram{
		Chunks: []*bytecode.Chunk{
			{Code: mainCode},
			{Code: branchA},
			{Code: branchB},
		},
		MainChunk: 0,
		Constants: []bytecode.Value{
			bytecode.Integer(1),
			bytecode.Integer(2),
			bytecode.FunctionRef(fnA),
			bytecode.FunctionRef(fnB),
		},
	}
	vm := newTestVM(program, h, Options{AlwaysReturn: true})

	out := vm.Start()
	if out.Kind != OutcomeParallel {
		t.Fatalf("Kind = %v, want OutcomeParallel", out.Kind)
	}
	if len(out.Children) != 2 {
		t.Fatalf("len(Children) = %d, want 2", len(out.Children))
	}

	results := make([]bytecode.Value, len(out.Children))
	for i, child := range out.Children {
		childOut := child.Resume()
		if childOut.Kind != OutcomeOk || !childOut.HasValue {
			t.Fatalf("branch %d: got %+v, want OutcomeOk", i, childOut)
		}
		results[i] = childOut.Value
	}

	out = vm.ResolveParallel(results)
	if out.Kind != OutcomeOk || !out.HasValue {
		t.Fatalf("got %+v, want OutcomeOk", out)
	}
	arr, ok := h.Get(out.Value.AsHandle())
	if !ok {
		t.Fatalf("expected a live array handle")
	}
	elements := arr.(*heap.Array).Elements
	if len(elements) != 2 || elements[0].AsInteger() != 1 || elements[1].AsInteger() != 2 {
		t.Errorf("Elements = %+v, want [1, 2]", elements)
	}
}

func TestFacadeCallEntryPoint(t *testing.T) {
	h := heap.New()
	fnCode := []byte{
		byte(bytecode.OpGetLocal), 1,
		byte(bytecode.OpGetLocal), 2,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}
	fnHandle := h.NewFunction("add", 2, 0)
	program := &bytecode.CompiledProgram{
		Chunks:    []*bytecode.Chunk{{Code: fnCode}},
		MainChunk: 0,
	}
	vm := New(program, nil, h, nil, nil, Options{})
	vm.globals = map[string]bytecode.Value{"add": bytecode.FunctionRef(fnHandle)}

	out := vm.Call("add", []bytecode.Value{bytecode.Integer(2), bytecode.Integer(3)})
	if out.Kind != OutcomeOk || !out.HasValue || out.Value.AsInteger() != 5 {
		t.Errorf("got %+v, want Integer(5)", out)
	}
}

// noExtExecutorNeverRuns is a compile-time sanity check that this package's
// suspend-at-CallExt contract is exactly what pkg/executor's Executor
// interface expects a façade to drive: building a context and rejecting via
// NoExtExecutor, never calling it from inside pkg/vm itself.
func TestSuspensionContractMatchesExecutorInterface(t *testing.T) {
	var e executor.Executor = executor.NoExtExecutor{}
	_, err := e.Execute(context.Background(), executor.VmCall{Package: "demo", Function: "f"})
	if err == nil {
		t.Fatalf("expected NoExtExecutor to reject every call")
	}
}

