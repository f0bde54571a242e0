/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"fmt"
	"math"

	"github.com/brane-lang/branescript/pkg/builtins"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/executor"
	"github.com/brane-lang/branescript/pkg/heap"
)

// Resume runs vm's opcode loop from wherever it last left off until the
// next suspension point or termination: Ok, Error, Call, Parallel, or
// Yield. Grounded on the shape of a typical run loop (vm.go's big opcode
// switch), but returning structured outcomes to a caller instead of
// looping forever and writing straight to os.Stdout/os.Stderr.
func (vm *VM) Resume() (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *errs.Runtime:
				outcome = errorOutcome(e)
			case *errs.ICE:
				outcome = errorOutcome(e)
			default:
				panic(r)
			}
		}
	}()

	for {
		if vm.cancelled {
			vm.fail(errs.RuntimeKindCancelled, "execution cancelled")
		}

		chunk := vm.currentChunk()
		if vm.frame.ip >= len(chunk.Code) {
			return vm.fallOffEnd()
		}

		if vm.opts.Budget != nil && vm.opts.Budget() {
			return yieldOutcome()
		}

		if vm.DebugTraceExecution {
			vm.traceStep()
		}

		op := bytecode.OpCode(vm.readByte())
		switch op {

		case bytecode.OpNop:
			// no-op

		case bytecode.OpConstant:
			vm.push(vm.readConstant())
		case bytecode.OpTrue:
			vm.push(bytecode.Boolean(true))
		case bytecode.OpFalse:
			vm.push(bytecode.Boolean(false))
		case bytecode.OpUnit:
			vm.push(bytecode.Unit)
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpAdd:
			vm.execAdd()
		case bytecode.OpSub:
			vm.execArith(op)
		case bytecode.OpMul:
			vm.execArith(op)
		case bytecode.OpDiv:
			vm.execArith(op)
		case bytecode.OpNegate:
			vm.execNegate()
		case bytecode.OpNot:
			vm.execNot()
		case bytecode.OpEqual:
			vm.execEqual()
		case bytecode.OpGreater:
			vm.execCompare(op)
		case bytecode.OpLess:
			vm.execCompare(op)

		case bytecode.OpDefineGlobal:
			name := vm.constantString(vm.readConstantIndex())
			vm.globals[name] = vm.pop()
		case bytecode.OpGetGlobal:
			name := vm.constantString(vm.readConstantIndex())
			v, ok := vm.globals[name]
			if !ok {
				vm.fail(errs.RuntimeKindUndefinedGlobal, "undefined global: %v", name)
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			name := vm.constantString(vm.readConstantIndex())
			if _, ok := vm.globals[name]; !ok {
				vm.fail(errs.RuntimeKindUndefinedGlobal, "undefined global: %v", name)
			}
			vm.globals[name] = vm.peek(0)

		case bytecode.OpGetLocal:
			slot := int(vm.readByte())
			vm.push(vm.frame.stack.at(slot))
		case bytecode.OpSetLocal:
			slot := int(vm.readByte())
			vm.frame.stack.setAt(slot, vm.peek(0))

		case bytecode.OpJump:
			off := vm.readUInt16Operand()
			vm.frame.ip += off
		case bytecode.OpJumpIfFalse:
			off := vm.readUInt16Operand()
			if !vm.peek(0).IsTruthy() {
				vm.frame.ip += off
			}
		case bytecode.OpJumpIfTrue:
			off := vm.readUInt16Operand()
			if vm.peek(0).IsTruthy() {
				vm.frame.ip += off
			}
		case bytecode.OpJumpBack:
			off := vm.readUInt16Operand()
			vm.frame.ip -= off

		case bytecode.OpCall:
			argc := int(vm.readByte())
			if out, suspend := vm.execCall(argc); suspend {
				return out
			}

		case bytecode.OpCallExt:
			argc := int(vm.readByte())
			return vm.execCallExt(argc)

		case bytecode.OpBuiltIn:
			code := vm.readByte()
			argc := int(vm.readByte())
			vm.execBuiltIn(code, argc)

		case bytecode.OpReturn:
			if out, done := vm.execReturn(); done {
				return out
			}

		case bytecode.OpClass:
			k := vm.readConstantIndex()
			vm.push(vm.program.Constants[k])

		case bytecode.OpImport:
			vm.execImport()

		case bytecode.OpNew:
			vm.execNew()

		case bytecode.OpGetProperty:
			name := vm.constantString(vm.readConstantIndex())
			vm.execGetProperty(name)

		case bytecode.OpSetProperty:
			name := vm.constantString(vm.readConstantIndex())
			vm.execSetProperty(name)

		case bytecode.OpArray:
			n := int(vm.readByte())
			vm.execArray(n)

		case bytecode.OpIndex:
			vm.execIndex()

		case bytecode.OpSetIndex:
			vm.execSetIndex()

		case bytecode.OpOnEnter:
			loc := vm.constantString(vm.readConstantIndex())
			vm.locationStack = append(vm.locationStack, loc)

		case bytecode.OpOnExit:
			if len(vm.locationStack) == 0 {
				panic(errs.NewICE("vm: OnExit with an empty location stack"))
			}
			vm.locationStack = vm.locationStack[:len(vm.locationStack)-1]

		case bytecode.OpParallel:
			n := int(vm.readByte())
			return vm.execParallel(n)

		default:
			panic(errs.NewICE("vm: unhandled opcode %v", op))
		}
	}
}

// fallOffEnd handles a frame's ip running off the end of its chunk's code
// without an explicit Return. Only the top-level frame may do this --
// every function/parallel-branch chunk compiles a trailing Unit+Return
// (pkg/backend's compileChunkBody), so reaching here with more than one
// active frame is an internal inconsistency.
func (vm *VM) fallOffEnd() Outcome {
	if len(vm.frames) != 1 {
		panic(errs.NewICE("vm: a non-top-level chunk ran off its end without returning"))
	}
	if vm.opts.AlwaysReturn && vm.frame.stack.size() > 0 {
		return okOutcome(vm.frame.stack.top(), true)
	}
	return okOutcome(bytecode.Unit, false)
}

// fail panics with a classified runtime error carrying the current stack
// trace; Resume's recover turns this into an OutcomeError. Every opcode
// handler that detects a user-visible runtime fault (type mismatch,
// division by zero, out-of-bounds index, undefined global, ...) calls this
// instead of threading an error value back up through the switch.
func (vm *VM) fail(kind errs.RuntimeKind, format string, a ...interface{}) {
	panic(&errs.Runtime{
		Kind:       kind,
		Message:    fmt.Sprintf(format, a...),
		StackTrace: vm.stackTrace(),
	})
}

//
// Arithmetic, comparison
//

func (vm *VM) isStringValue(v bytecode.Value) (*heap.String, bool) {
	if !v.IsObjectRef() {
		return nil, false
	}
	obj, ok := vm.heap.Get(v.AsHandle())
	if !ok {
		return nil, false
	}
	s, ok := obj.(*heap.String)
	return s, ok
}

// execAdd implements Add: integer+integer, real+real, or string+any
// (commutatively) concatenated via the same rendering print uses
// by design.
func (vm *VM) execAdd() {
	b := vm.pop()
	a := vm.pop()

	if _, ok := vm.isStringValue(a); ok {
		vm.push(bytecode.ObjectRef(vm.heap.NewString(builtins.Stringify(a, vm.heap) + builtins.Stringify(b, vm.heap))))
		return
	}
	if _, ok := vm.isStringValue(b); ok {
		vm.push(bytecode.ObjectRef(vm.heap.NewString(builtins.Stringify(a, vm.heap) + builtins.Stringify(b, vm.heap))))
		return
	}

	switch {
	case a.IsInteger() && b.IsInteger():
		x, y := a.AsInteger(), b.AsInteger()
		if addOverflows(x, y) {
			vm.fail(errs.RuntimeKindGeneric, "integer overflow: %d + %d", x, y)
		}
		vm.push(bytecode.Integer(x + y))
	case a.IsReal() && b.IsReal():
		vm.push(bytecode.Real(a.AsReal() + b.AsReal()))
	default:
		vm.fail(errs.RuntimeKindGeneric, "add: operand type mismatch (%v + %v)", a.Kind(), b.Kind())
	}
}

// execArith implements Sub/Mul/Div: integer×integer -> integer,
// real×real -> real, checked for overflow (integers) and division by
// zero, by the usual tie-break rule.
func (vm *VM) execArith(op bytecode.OpCode) {
	b := vm.pop()
	a := vm.pop()

	switch {
	case a.IsInteger() && b.IsInteger():
		x, y := a.AsInteger(), b.AsInteger()
		switch op {
		case bytecode.OpSub:
			if subOverflows(x, y) {
				vm.fail(errs.RuntimeKindGeneric, "integer overflow: %d - %d", x, y)
			}
			vm.push(bytecode.Integer(x - y))
		case bytecode.OpMul:
			if mulOverflows(x, y) {
				vm.fail(errs.RuntimeKindGeneric, "integer overflow: %d * %d", x, y)
			}
			vm.push(bytecode.Integer(x * y))
		case bytecode.OpDiv:
			if y == 0 {
				vm.fail(errs.RuntimeKindDivisionByZero, "integer division by zero")
			}
			if x == math.MinInt64 && y == -1 {
				vm.fail(errs.RuntimeKindGeneric, "integer overflow: %d / %d", x, y)
			}
			vm.push(bytecode.Integer(x / y))
		}
	case a.IsReal() && b.IsReal():
		x, y := a.AsReal(), b.AsReal()
		switch op {
		case bytecode.OpSub:
			vm.push(bytecode.Real(x - y))
		case bytecode.OpMul:
			vm.push(bytecode.Real(x * y))
		case bytecode.OpDiv:
			vm.push(bytecode.Real(x / y)) // IEEE-754 Inf/NaN allowed, no divide-by-zero check
		}
	default:
		vm.fail(errs.RuntimeKindGeneric, "%v: operand type mismatch (%v, %v)", op, a.Kind(), b.Kind())
	}
}

func (vm *VM) execNegate() {
	v := vm.pop()
	switch {
	case v.IsInteger():
		x := v.AsInteger()
		if x == math.MinInt64 {
			vm.fail(errs.RuntimeKindGeneric, "integer overflow: -(%d)", x)
		}
		vm.push(bytecode.Integer(-x))
	case v.IsReal():
		vm.push(bytecode.Real(-v.AsReal()))
	default:
		vm.fail(errs.RuntimeKindGeneric, "negate: operand type mismatch (%v)", v.Kind())
	}
}

func (vm *VM) execNot() {
	v := vm.pop()
	if !v.IsBoolean() {
		vm.fail(errs.RuntimeKindGeneric, "not: operand type mismatch (%v)", v.Kind())
	}
	vm.push(bytecode.Boolean(!v.AsBoolean()))
}

// execEqual implements Equal, special-casing heap strings to compare by
// content: bytecode.ValuesEqual compares ObjectRef payloads by handle
// identity, which would make two separately-allocated but textually
// identical strings unequal ("string equality is by
// content").
func (vm *VM) execEqual() {
	b := vm.pop()
	a := vm.pop()

	if sa, ok := vm.isStringValue(a); ok {
		if sb, ok := vm.isStringValue(b); ok {
			vm.push(bytecode.Boolean(sa.Text == sb.Text))
			return
		}
		vm.push(bytecode.Boolean(false))
		return
	}

	vm.push(bytecode.Boolean(bytecode.ValuesEqual(a, b)))
}

func (vm *VM) execCompare(op bytecode.OpCode) {
	b := vm.pop()
	a := vm.pop()

	var result bool
	switch {
	case a.IsInteger() && b.IsInteger():
		if op == bytecode.OpGreater {
			result = a.AsInteger() > b.AsInteger()
		} else {
			result = a.AsInteger() < b.AsInteger()
		}
	case a.IsReal() && b.IsReal():
		if op == bytecode.OpGreater {
			result = a.AsReal() > b.AsReal()
		} else {
			result = a.AsReal() < b.AsReal()
		}
	default:
		vm.fail(errs.RuntimeKindGeneric, "%v: operand type mismatch (%v, %v)", op, a.Kind(), b.Kind())
	}
	vm.push(bytecode.Boolean(result))
}

func addOverflows(a, b int64) bool {
	s := a + b
	return ((a ^ s) & (b ^ s)) < 0
}

func subOverflows(a, b int64) bool {
	if b == math.MinInt64 {
		return a >= 0
	}
	return addOverflows(a, -b)
}

func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	p := a * b
	return p/b != a
}

//
// Calls
//

// execCall implements Call n for an ordinary callee: a FunctionRef pushes
// a new frame and continues the loop (suspend=false); a FunctionExt
// (reached via a plain identifier bound by Import) is
// serviced exactly like CallExt (suspend=true, caller must return the
// Outcome).
func (vm *VM) execCall(argc int) (Outcome, bool) {
	callee := vm.peek(argc)

	switch {
	case callee.IsFunctionRef():
		obj := vm.heap.MustGet(callee.AsHandle())
		fn, ok := obj.(*heap.Function)
		if !ok {
			vm.fail(errs.RuntimeKindGeneric, "call: function handle does not reference a Function")
		}
		if argc != int(fn.Arity) {
			vm.fail(errs.RuntimeKindGeneric, "call: %v expects %d argument(s), got %d", fn.Name, fn.Arity, argc)
		}
		vm.pushFrame(callee.AsHandle(), fn, argc)
		return Outcome{}, false

	case callee.IsObjectRef():
		if obj, ok := vm.heap.Get(callee.AsHandle()); ok {
			if ext, ok := obj.(*heap.FunctionExt); ok {
				return vm.suspendCallExt(ext, argc), true
			}
		}
		vm.fail(errs.RuntimeKindGeneric, "call: value is not callable")
		return Outcome{}, false

	default:
		vm.fail(errs.RuntimeKindGeneric, "call: value is not callable (%v)", callee.Kind())
		return Outcome{}, false
	}
}

// execCallExt implements CallExt n: the callee is always a compile-time
// FunctionExt constant (pushed by genPatternCallExpr).
func (vm *VM) execCallExt(argc int) Outcome {
	callee := vm.peek(argc)
	if !callee.IsObjectRef() {
		vm.fail(errs.RuntimeKindGeneric, "call_ext: callee is not an object reference")
	}
	obj := vm.heap.MustGet(callee.AsHandle())
	ext, ok := obj.(*heap.FunctionExt)
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "call_ext: callee is not a package function descriptor")
	}
	return vm.suspendCallExt(ext, argc)
}

// suspendCallExt builds the VmCall for a FunctionExt invocation and
// returns an OutcomeCall, leaving the operand stack untouched: Resolve or
// ResolveError consumes the callee+argc values later ("VM
// state preserved untouched").
func (vm *VM) suspendCallExt(ext *heap.FunctionExt, argc int) Outcome {
	if vm.cancelled {
		vm.fail(errs.RuntimeKindCancelled, "execution cancelled")
	}
	if argc > len(ext.Parameters) {
		vm.fail(errs.RuntimeKindGeneric, "%v.%v: too many arguments (%d, expected at most %d)", ext.Package, ext.Name, argc, len(ext.Parameters))
	}
	for i := argc; i < len(ext.Parameters); i++ {
		if !ext.Parameters[i].Optional {
			vm.fail(errs.RuntimeKindGeneric, "%v.%v: missing required argument %q", ext.Package, ext.Name, ext.Parameters[i].Name)
		}
	}

	args := make(map[string]bytecode.Value, argc)
	for i := 0; i < argc; i++ {
		args[ext.Parameters[i].Name] = vm.peek(argc - 1 - i)
	}

	location := ""
	if n := len(vm.locationStack); n > 0 {
		location = vm.locationStack[n-1]
	}

	vm.pendingArgCount = argc
	return callOutcome(&executor.VmCall{
		RequestID:  executor.NewRequestID(),
		Package:    ext.Package,
		Version:    ext.Version,
		Kind:       ext.Kind,
		Function:   ext.Name,
		Arguments:  args,
		ReturnType: ext.ReturnType,
		Location:   location,
	})
}

// execBuiltIn implements BuiltIn code, n: pops n arguments (in call
// order), invokes the built-in, and pushes its result. No frame is
// pushed -- built-ins run synchronously inside the dispatcher
// .
func (vm *VM) execBuiltIn(code byte, argc int) {
	args := make([]bytecode.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	result, err := builtins.Call(code, args, vm.heap, vm.mouth)
	if err != nil {
		if rt, ok := err.(*errs.Runtime); ok {
			rt.StackTrace = vm.stackTrace()
			panic(rt)
		}
		panic(&errs.Runtime{Kind: errs.RuntimeKindGeneric, Message: err.Error(), StackTrace: vm.stackTrace()})
	}
	vm.push(result)
}

// execReturn implements Return: collapses the current frame's locals (and
// the callee value itself) off the shared stack, pushes the return value
// in their place, and pops the frame. When the returning frame was the
// top-level one, the VM is done: done=true and out carries OutcomeOk
// unconditionally -- an explicit `return` always reports its value,
// regardless of AlwaysReturn.
func (vm *VM) execReturn() (out Outcome, done bool) {
	value := vm.pop()
	base := vm.frame.stack.base
	vm.stack.truncateTo(base)
	vm.stack.push(value)

	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		return okOutcome(value, true), true
	}
	vm.frame = vm.frames[len(vm.frames)-1]
	return Outcome{}, false
}

//
// Objects
//

func (vm *VM) execImport() {
	name := vm.constantString(vm.readConstantIndex())
	if vm.pkgIndex == nil {
		vm.fail(errs.RuntimeKindGeneric, "import %v: no package index configured", name)
	}

	pkgName, version := splitPackageConstant(name)
	info, ok := vm.pkgIndex.Get(pkgName, version)
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "import %v: unknown package", name)
	}

	for _, fd := range info.Functions {
		extHandle := vm.heap.NewFunctionExt(&heap.FunctionExt{
			Name:       fd.Name,
			Package:    info.Name,
			Version:    info.Version,
			Kind:       info.Kind,
			Parameters: fd.Parameters,
			ReturnType: fd.ReturnType,
		})
		vm.globals[fd.Name] = bytecode.ObjectRef(extHandle)
	}
}

// splitPackageConstant splits an OpImport name constant of the form
// "name" or "name@version" (mirroring genImportStmt's encoding) back into
// its parts.
func splitPackageConstant(s string) (name string, version *string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			v := s[i+1:]
			return s[:i], &v
		}
	}
	return s, nil
}

// execNew implements New classK, namesK: pops len(constants[namesK].Elements)
// values, zips them with those pre-built field names, and pushes a new
// Instance of class constants[classK].
func (vm *VM) execNew() {
	classK := vm.readConstantIndex()
	namesK := vm.readConstantIndex()

	classVal := vm.program.Constants[classK]
	if !classVal.IsObjectRef() {
		panic(errs.NewICE("vm: New's class constant is not an object reference"))
	}

	namesVal := vm.program.Constants[namesK]
	namesObj, ok := vm.heap.Get(namesVal.AsHandle())
	if !ok {
		panic(errs.NewICE("vm: New's field-names constant is stale"))
	}
	namesArray, ok := namesObj.(*heap.Array)
	if !ok {
		panic(errs.NewICE("vm: New's field-names constant is not an array"))
	}

	n := len(namesArray.Elements)
	properties := make(map[string]bytecode.Value, n)
	for i := n - 1; i >= 0; i-- {
		fieldNameVal := namesArray.Elements[i]
		s, ok := vm.isStringValue(fieldNameVal)
		if !ok {
			panic(errs.NewICE("vm: New's field name is not a string"))
		}
		properties[s.Text] = vm.pop()
	}

	handle := vm.heap.NewInstance(classVal.AsHandle(), properties)
	vm.push(bytecode.ObjectRef(handle))
}

// execGetProperty implements GetProperty k: pops an Instance, pushes its
// field named name if it has one, falling back to its class's method
// table (uniform field/method access).
func (vm *VM) execGetProperty(name string) {
	v := vm.pop()
	inst := vm.instanceOf(v, "get_property")

	if val, ok := inst.Properties[name]; ok {
		vm.push(val)
		return
	}

	classObj, ok := vm.heap.Get(inst.Class)
	if ok {
		if class, ok := classObj.(*heap.Class); ok {
			if m, ok := class.Methods[name]; ok {
				vm.push(m)
				return
			}
		}
	}

	vm.fail(errs.RuntimeKindGeneric, "no such property or method: %v", name)
}

// execSetProperty implements SetProperty k: pops value then object, sets
// the field, and pushes value back (every Set* opcode peeks-equivalent,
// leaving the assigned value as the expression's result).
func (vm *VM) execSetProperty(name string) {
	value := vm.pop()
	obj := vm.pop()
	inst := vm.instanceOf(obj, "set_property")
	inst.Properties[name] = value
	vm.push(value)
}

func (vm *VM) instanceOf(v bytecode.Value, context string) *heap.Instance {
	if !v.IsObjectRef() {
		vm.fail(errs.RuntimeKindGeneric, "%v: value is not an instance (%v)", context, v.Kind())
	}
	obj, ok := vm.heap.Get(v.AsHandle())
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "%v: stale object handle", context)
	}
	inst, ok := obj.(*heap.Instance)
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "%v: value is not an instance", context)
	}
	return inst
}

func (vm *VM) execArray(n int) {
	elements := make([]bytecode.Value, n)
	for i := n - 1; i >= 0; i-- {
		elements[i] = vm.pop()
	}
	handle := vm.heap.NewArray("any", elements)
	vm.push(bytecode.ObjectRef(handle))
}

func (vm *VM) arrayOf(v bytecode.Value) *heap.Array {
	if !v.IsObjectRef() {
		vm.fail(errs.RuntimeKindGeneric, "value is not an array (%v)", v.Kind())
	}
	obj, ok := vm.heap.Get(v.AsHandle())
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "stale array handle")
	}
	arr, ok := obj.(*heap.Array)
	if !ok {
		vm.fail(errs.RuntimeKindGeneric, "value is not an array")
	}
	return arr
}

func (vm *VM) execIndex() {
	indexVal := vm.pop()
	arrVal := vm.pop()
	arr := vm.arrayOf(arrVal)
	if !indexVal.IsInteger() {
		vm.fail(errs.RuntimeKindGeneric, "array index must be an integer")
	}
	i := indexVal.AsInteger()
	if i < 0 || i >= int64(len(arr.Elements)) {
		vm.fail(errs.RuntimeKindIndexOutOfBounds, "array index %d out of bounds (length %d)", i, len(arr.Elements))
	}
	vm.push(arr.Elements[i])
}

func (vm *VM) execSetIndex() {
	value := vm.pop()
	indexVal := vm.pop()
	arrVal := vm.pop()
	arr := vm.arrayOf(arrVal)
	if !indexVal.IsInteger() {
		vm.fail(errs.RuntimeKindGeneric, "array index must be an integer")
	}
	i := indexVal.AsInteger()
	if i < 0 || i >= int64(len(arr.Elements)) {
		vm.fail(errs.RuntimeKindIndexOutOfBounds, "array index %d out of bounds (length %d)", i, len(arr.Elements))
	}
	arr.Elements[i] = value
	vm.push(value)
}

//
// parallel blocks
//

// execParallel implements Parallel n: pops n zero-arg FunctionRefs (each a
// `parallel` branch, compiled by genParallelBlock into its own chunk) and
// returns OutcomeParallel with one freshly forked child VM per branch,
// already positioned at the start of its chunk. The façade drives each
// child with Resume (concurrently with its siblings) and reports the
// results back via ResolveParallel.
func (vm *VM) execParallel(n int) Outcome {
	handles := make([]bytecode.Value, n)
	for i := n - 1; i >= 0; i-- {
		handles[i] = vm.pop()
	}

	children := make([]*VM, n)
	for i, h := range handles {
		if !h.IsFunctionRef() {
			vm.fail(errs.RuntimeKindGeneric, "parallel: branch %d is not a function", i)
		}
		obj := vm.heap.MustGet(h.AsHandle())
		fn, ok := obj.(*heap.Function)
		if !ok {
			vm.fail(errs.RuntimeKindGeneric, "parallel: branch %d's handle is not a Function", i)
		}

		child := vm.newChild(vm.mouth)
		// Every chunk reserves slot 0 for the callee itself (see
		// compileChunkBody); an ordinary call gets it for free because the
		// caller already pushed the callee value, but a parallel branch has
		// no caller, so its child VM pushes a placeholder to match.
		child.stack.push(bytecode.Unit)
		child.frames = append(child.frames, &callFrame{
			chunkIndex: fn.ChunkIndex,
			stack:      child.stack.createView(1),
			handle:     h.AsHandle(),
		})
		child.frame = child.frames[0]
		children[i] = child
	}

	return parallelOutcome(children)
}
