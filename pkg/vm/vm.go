/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package vm implements the BraneScript dispatcher: a bytecode-stepping
// state machine whose Resume returns one of {Ok, Call, Error, Parallel,
// Yield} rather than a coroutine. A VM never awaits
// anything itself -- Resume always returns promptly, either because the
// program finished, because it hit a CallExt that needs a package
// function serviced, because a parallel block needs its branches run, or
// because it hit a fatal error. Owning the actual wait (on an
// executor.Executor, or on a set of child VMs) is the façade's job, not
// this package's; see pkg/branescript.
//
// Grounded on a classic stack-VM design (Stack/StackView, callFrame, the
// run loop's opcode switch and its runtimeError stack-trace builder), with
// every blocking operation replaced by a suspend-at-CallExt design instead:
// an external package call may take arbitrarily long, and this package must
// never block its own goroutine waiting on one.
package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/executor"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
	"github.com/brane-lang/branescript/pkg/romutil"
)

// Options configures a VM's behavior.
type Options struct {
	// AlwaysReturn makes the top-level program's falling off the end of
	// its main chunk report Ok(Some(top-of-stack)) instead of Ok(None),
	// useful for REPL-style one-shot evaluation. Has no effect on an
	// explicit top-level `return`, which always carries its value
	// regardless of this flag -- see Resume's handling of OpReturn. Never
	// applies to a nested function call falling off its own chunk, which
	// always yields Unit to its caller.
	AlwaysReturn bool

	// Budget, when non-nil, is consulted between opcodes; a true result
	// makes Resume return OutcomeYield instead of executing the next
	// opcode, a cooperative fairness hook for a host running many VMs on
	// one goroutine pool.
	Budget func() bool
}

// VM is a BraneScript virtual machine: one compiled program, one heap, one
// operand stack, one set of call frames. A VM is not safe for concurrent
// use by multiple goroutines; a `parallel` block instead forks one child
// VM per branch (see NewChild), each independently driven by the façade.
// Every child shares this VM's heap, debug info and compiled program, so
// the façade must not call Resume (or any allocating operation) on two
// VMs of the same family concurrently -- only the time a child spends
// suspended on OutcomeCall, awaiting its Executor, genuinely overlaps with
// its siblings' execution.
type VM struct {
	// DebugTraceExecution makes Resume print the stack and disassemble
	// each instruction before running it, mirroring a classic
	// DebugTraceExecution flag.
	DebugTraceExecution bool

	program   *bytecode.CompiledProgram
	debugInfo *bytecode.DebugInfo
	heap      *heap.Heap
	mouth     romutil.Mouth
	pkgIndex  packageindex.PackageIndex
	opts      Options

	// family is shared by a VM and every descendant forked from it by a
	// `parallel` block, all of which share one Heap: its roots method is
	// what Heap.Roots actually calls, so a collection triggered while
	// running a parallel branch still traces every sibling's stack and
	// globals, not just the VM that happened to trigger it.
	family *vmFamily

	globals map[string]bytecode.Value

	stack  *Stack
	frames []*callFrame
	frame  *callFrame

	// locationStack is the stack of `on` block locations currently active,
	// innermost on top; OpOnEnter/OpOnExit push/pop it. A CallExt made
	// inside an `on` block reports the top of this stack as its
	// VmCall.Location.
	locationStack []string

	// pendingArgCount is the number of operand-stack arguments (not
	// counting the callee itself) still waiting on the Executor's answer
	// to the last OutcomeCall this VM produced. Negative when no call is
	// outstanding.
	pendingArgCount int

	// cancelled is set by Cancel and checked before every opcode and
	// before ever producing an OutcomeCall ("cancellation
	// signal checked before each opcode and before awaiting executor").
	cancelled bool
}

// New creates a VM ready to run program, starting from its main chunk.
// mouth receives built-in output (the `print` built-in); debugInfo may be
// nil, in which case runtime errors and trace output fall back to
// handle-only rendering. pkgIndex resolves `import` statements at runtime
// (binding a package's functions as globals); it may be nil
// for programs known never to import anything.
func New(program *bytecode.CompiledProgram, debugInfo *bytecode.DebugInfo, h *heap.Heap, mouth romutil.Mouth, pkgIndex packageindex.PackageIndex, opts Options) *VM {
	if mouth == nil {
		mouth = romutil.NewWriterMouth(io.Discard)
	}
	vm := &VM{
		program:         program,
		debugInfo:       debugInfo,
		heap:            h,
		mouth:           mouth,
		pkgIndex:        pkgIndex,
		opts:            opts,
		globals:         make(map[string]bytecode.Value),
		stack:           &Stack{},
		pendingArgCount: -1,
	}
	vm.family = &vmFamily{members: []*VM{vm}}
	if h != nil {
		h.Roots = vm.family.roots
	}
	return vm
}

// vmFamily is the set of VMs sharing one Heap: the original VM plus every
// descendant a `parallel` block forked from it (transitively, since a
// branch may itself contain a nested `parallel` block). Heap.Roots is
// bound to one vmFamily's roots method, so a collection triggered from any
// family member traces every member's stack and globals.
type vmFamily struct {
	members []*VM
}

func (f *vmFamily) roots() []bytecode.Handle {
	var acc []bytecode.Handle
	for _, m := range f.members {
		acc = m.ownRoots(acc)
	}
	return acc
}

// newChild creates a VM that shares this VM's program, debugInfo, heap,
// pkgIndex and family but starts with a snapshot of its globals and its own
// empty stack/frames -- used for one `parallel` branch (each branch gets its own Open
// Question 1). mouth is the child's own sink, so concurrent branches don't
// interleave partial writes through one shared Mouth's buffer.
func (vm *VM) newChild(mouth romutil.Mouth) *VM {
	child := &VM{
		program:         vm.program,
		debugInfo:       vm.debugInfo,
		heap:            vm.heap,
		mouth:           mouth,
		pkgIndex:        vm.pkgIndex,
		opts:            vm.opts,
		family:          vm.family,
		globals:         make(map[string]bytecode.Value, len(vm.globals)),
		stack:           &Stack{},
		pendingArgCount: -1,
	}
	for k, v := range vm.globals {
		child.globals[k] = v
	}
	vm.family.members = append(vm.family.members, child)
	return child
}

// ownRoots appends to acc every handle directly reachable from this VM
// alone: the operand stack, the globals map, and every active frame's
// function handle.
func (vm *VM) ownRoots(acc []bytecode.Handle) []bytecode.Handle {
	for _, v := range vm.stack.data {
		if v.IsObjectRef() || v.IsFunctionRef() {
			acc = append(acc, v.AsHandle())
		}
	}
	for _, v := range vm.globals {
		if v.IsObjectRef() || v.IsFunctionRef() {
			acc = append(acc, v.AsHandle())
		}
	}
	for _, f := range vm.frames {
		if !f.handle.Zero() {
			acc = append(acc, f.handle)
		}
	}
	return acc
}

// Start begins executing program's main chunk from the top and runs it
// until the first suspension point or termination.
func (vm *VM) Start() Outcome {
	vm.frames = append(vm.frames, &callFrame{
		chunkIndex: vm.program.MainChunk,
		stack:      vm.stack.createView(0),
	})
	vm.frame = vm.frames[0]
	return vm.Resume()
}

// Call begins executing the global function named name with the given
// arguments already evaluated, as if the façade itself had written
// `name(args...)` as the program's only statement. Used for REPL-style
// one-shot invocation of a single function rather than a whole program
// (the façade's "run(function?)" entry point). The called function's own
// frame is treated as the top-level frame: its eventual Return (every
// function chunk ends with one, explicit or compiler-appended) yields
// OutcomeOk exactly as a program's main chunk would. The main chunk is not
// run: when name is not yet a global, every function in the program's
// constant pool is first bound as a global under its own name, so the
// callee and the functions it calls resolve; top-level `let` bindings,
// classes and imports stay unbound.
func (vm *VM) Call(name string, args []bytecode.Value) Outcome {
	if _, ok := vm.globals[name]; !ok {
		for _, c := range vm.program.Constants {
			if !c.IsFunctionRef() {
				continue
			}
			if obj, live := vm.heap.Get(c.AsHandle()); live {
				if fn, isFn := obj.(*heap.Function); isFn {
					if _, bound := vm.globals[fn.Name]; !bound {
						vm.globals[fn.Name] = c
					}
				}
			}
		}
	}
	callee, ok := vm.globals[name]
	if !ok || !callee.IsFunctionRef() {
		return vm.runtimeError(errs.RuntimeKindUndefinedGlobal, "no such function: %v", name)
	}
	obj, ok := vm.heap.Get(callee.AsHandle())
	if !ok {
		return vm.runtimeError(errs.RuntimeKindUndefinedGlobal, "%v: stale function handle", name)
	}
	fn, ok := obj.(*heap.Function)
	if !ok {
		return vm.runtimeError(errs.RuntimeKindGeneric, "%v is not callable", name)
	}
	if len(args) != int(fn.Arity) {
		return vm.runtimeError(errs.RuntimeKindGeneric, "%v expects %d argument(s), got %d", name, fn.Arity, len(args))
	}

	vm.stack.push(callee)
	for _, a := range args {
		vm.stack.push(a)
	}
	vm.pushFrame(callee.AsHandle(), fn, len(args))
	return vm.Resume()
}

// pushFrame starts a call into fn: argc arguments plus the callee itself
// are already the top argc+1 values of the shared backing stack (BraneScript's
// calling convention, see callFrame), so the new frame's view need only be
// offset past them.
func (vm *VM) pushFrame(handle bytecode.Handle, fn *heap.Function, argc int) {
	frame := &callFrame{
		chunkIndex: fn.ChunkIndex,
		stack:      vm.stack.createView(argc + 1),
		handle:     handle,
	}
	vm.frames = append(vm.frames, frame)
	vm.frame = frame
}

// Cancel requests that this VM (and, transitively, any still-running
// children forked from it) stop at the next opportunity: before its next
// opcode, or before it would otherwise suspend awaiting an Executor call.
// The next Resume call reports OutcomeError with errs.RuntimeKindCancelled.
func (vm *VM) Cancel() {
	vm.cancelled = true
}

// Resolve supplies the result of the OutcomeCall most recently returned by
// Resume, replacing the CallExt's callee and arguments on the operand
// stack with value, and continues execution.
func (vm *VM) Resolve(value bytecode.Value) Outcome {
	if vm.pendingArgCount < 0 {
		return errorOutcome(errs.NewICE("vm: Resolve called with no outstanding CallExt"))
	}
	vm.stack.popN(vm.pendingArgCount + 1)
	vm.pendingArgCount = -1
	vm.push(value)
	return vm.Resume()
}

// ResolveError reports that the Executor failed to service the
// OutcomeCall most recently returned by Resume. An
// ExecutorError surfaces as a runtime error with no automatic retry --
// this terminates the VM rather than resuming it.
func (vm *VM) ResolveError(execErr error) Outcome {
	vm.pendingArgCount = -1

	kind := errs.RuntimeKindExecutorFailed
	if ee, ok := execErr.(*executor.Error); ok && ee.Kind == executor.Cancelled {
		kind = errs.RuntimeKindCancelled
	}
	return errorOutcome(&errs.Runtime{
		Kind:       kind,
		Message:    execErr.Error(),
		StackTrace: vm.stackTrace(),
	})
}

// ResolveParallel supplies the results of the OutcomeParallel most
// recently returned by Resume, in declaration order, packs them into a
// heap Array and pushes it in place of the branches' FunctionRefs, and
// continues execution.
func (vm *VM) ResolveParallel(results []bytecode.Value) Outcome {
	n := len(results)
	vm.stack.popN(n)
	handle := vm.heap.NewArray("any", results)
	vm.push(bytecode.ObjectRef(handle))
	return vm.Resume()
}

//
// Stack helpers (operate on the current frame's view)
//

func (vm *VM) push(v bytecode.Value) { vm.frame.stack.push(v) }
func (vm *VM) pop() bytecode.Value   { return vm.frame.stack.pop() }
func (vm *VM) peek(distance int) bytecode.Value {
	return vm.frame.stack.peek(distance)
}

func (vm *VM) currentChunk() *bytecode.Chunk {
	return vm.program.Chunks[vm.frame.chunkIndex]
}

// readConstantIndex reads a 16-bit constant-pool index at the frame's
// current ip and advances ip past it.
func (vm *VM) readConstantIndex() int {
	chunk := vm.currentChunk()
	index := bytecode.DecodeUInt16(chunk.Code[vm.frame.ip:])
	vm.frame.ip += bytecode.OperandConstant
	return int(index)
}

// readConstant reads a 16-bit constant index at the frame's current ip,
// advances ip past it, and returns the constant.
func (vm *VM) readConstant() bytecode.Value {
	return vm.program.Constants[vm.readConstantIndex()]
}

// readUInt16Operand reads a raw 16-bit operand (a jump offset) at the
// frame's current ip and advances past it.
func (vm *VM) readUInt16Operand() int {
	chunk := vm.currentChunk()
	v := bytecode.DecodeUInt16(chunk.Code[vm.frame.ip:])
	vm.frame.ip += bytecode.OperandJump
	return int(v)
}

func (vm *VM) readByte() byte {
	b := vm.currentChunk().Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

// constantString dereferences constant index k as a heap String and
// returns its text, or panics with an ICE if the constant isn't one --
// every call site reading a name constant (global/property/import names)
// is reading something the compiler itself emitted as a heap String, so a
// mismatch can only be an internal bug.
func (vm *VM) constantString(k int) string {
	c := vm.program.Constants[k]
	if !c.IsObjectRef() {
		panic(errs.NewICE("vm: name constant %v is not an object reference", k))
	}
	obj := vm.heap.MustGet(c.AsHandle())
	s, ok := obj.(*heap.String)
	if !ok {
		panic(errs.NewICE("vm: name constant %v is not a string", k))
	}
	return s.Text
}

// builtinMouth exposes the Mouth this VM's built-ins write to, for
// builtins.Call.
func (vm *VM) builtinMouth() romutil.Mouth {
	return vm.mouth
}

// traceStep writes the current stack and the instruction about to run to
// stdout, mirroring a classic DebugTraceExecution rendering.
func (vm *VM) traceStep() {
	fmt.Print("Stack: ")
	for _, v := range vm.stack.data {
		fmt.Printf("[ %v ]", v.DebugString(vm.debugInfo))
	}
	fmt.Print("\n")
	vm.program.DisassembleInstruction(vm.currentChunk(), os.Stdout, vm.frame.ip, vm.debugInfo, vm.frame.chunkIndex)
}

// stackTrace renders every active frame, innermost first, grounded on a
// classic runtimeError renderer -- but building the string instead of
// writing it to os.Stderr: the core never logs to stdout/stderr itself,
// only returns structured errors for a host to render.
func (vm *VM) stackTrace() string {
	sb := strings.Builder{}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		offset := f.ip - 1
		if offset < 0 {
			offset = 0
		}
		name := "<main>"
		if vm.debugInfo != nil {
			if n, ok := vm.debugInfo.FunctionName(f.handle); ok {
				name = n
			}
		}
		line := -1
		if vm.debugInfo != nil && f.chunkIndex < len(vm.debugInfo.ChunksLines) {
			lines := vm.debugInfo.ChunksLines[f.chunkIndex]
			if offset < len(lines) {
				line = lines[offset]
			}
		}
		sb.WriteString(fmt.Sprintf("[line %v] in %v\n", line, name))
	}
	return sb.String()
}

// runtimeError builds a classified runtime error carrying the current
// stack trace. It does not panic or write anything: every dispatch-loop
// call site returns its result through runtimeErrorOutcome instead, so
// Resume can simply `return`.
func (vm *VM) runtimeError(kind errs.RuntimeKind, format string, a ...interface{}) Outcome {
	return errorOutcome(&errs.Runtime{
		Kind:       kind,
		Message:    fmt.Sprintf(format, a...),
		StackTrace: vm.stackTrace(),
	})
}
