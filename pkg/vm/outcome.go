/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/executor"
)

// OutcomeKind discriminates the result of a Resume call. At its core, the
// dispatcher is a state machine whose step returns one of three outcomes
// -- Ok, Call, RuntimeError -- so a host loop never needs to know about
// goroutines, channels or any other concurrency primitive to drive it: it
// only needs to look at Kind and react.
//
// OutcomeParallel is this package's one addition to that three-outcome
// contract, forced by BraneScript's own concurrency model: a `parallel` block
// spawns one child VM per branch, sharing the Executor, and only the
// caller of Resume (the façade) owns the goroutines needed to run several
// children concurrently while each awaits its own external calls. Folding
// that into OutcomeCall would mean smuggling heap handles through a
// VmCall meant for an external Executor; a dedicated kind keeps that
// contract honest instead.
type OutcomeKind int

const (
	// OutcomeOk means the VM (or, for a child VM, this parallel branch)
	// ran to completion. Value/HasValue report whether a value resulted.
	OutcomeOk OutcomeKind = iota

	// OutcomeCall means a CallExt instruction needs a package function
	// serviced before execution can continue. The VM's state (stack,
	// frames, instruction pointers) is left exactly as it was; the caller
	// is expected to run Call through an Executor and report the result
	// back via Resolve or ResolveError before calling Resume again.
	OutcomeCall

	// OutcomeParallel means a `parallel` block needs its branches run
	// concurrently. Children is one child VM per branch, each already
	// positioned at the start of its block and ready to be driven with
	// Resume; the caller collects each child's eventual OutcomeOk value,
	// in declaration order, and reports the resulting array back via
	// ResolveParallel before calling Resume again.
	OutcomeParallel

	// OutcomeYield means the host-provided Options.Budget callback asked
	// for a cooperative yield between opcodes ("optionally,
	// when a host-provided budget callback requests a yield"). VM state is
	// left exactly as it was, mid-chunk; the caller should simply call
	// Resume again whenever it likes (after running other goroutines,
	// servicing its own I/O, etc.) -- unlike OutcomeCall/OutcomeParallel,
	// nothing needs to be reported back first.
	OutcomeYield

	// OutcomeError means the VM hit a fatal condition -- a type mismatch,
	// an out-of-bounds index, a cancellation, a failed Executor call -- and
	// has stopped for good. Err carries the classified error.
	OutcomeError
)

// Outcome is what Resume (and the Resolve/ResolveError/ResolveParallel
// calls that continue a suspended VM) returns.
type Outcome struct {
	Kind OutcomeKind

	// Value and HasValue are populated only when Kind is OutcomeOk.
	Value    bytecode.Value
	HasValue bool

	// Call is populated only when Kind is OutcomeCall.
	Call *executor.VmCall

	// Children is populated only when Kind is OutcomeParallel.
	Children []*VM

	// Err is populated only when Kind is OutcomeError.
	Err errs.Error
}

func okOutcome(value bytecode.Value, hasValue bool) Outcome {
	return Outcome{Kind: OutcomeOk, Value: value, HasValue: hasValue}
}

func callOutcome(call *executor.VmCall) Outcome {
	return Outcome{Kind: OutcomeCall, Call: call}
}

func parallelOutcome(children []*VM) Outcome {
	return Outcome{Kind: OutcomeParallel, Children: children}
}

func errorOutcome(err errs.Error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err}
}

func yieldOutcome() Outcome {
	return Outcome{Kind: OutcomeYield}
}
