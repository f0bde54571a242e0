/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package executor defines the bridge between a running BraneScript program
// and the outside world: the VmCall record a dispatcher hands up whenever
// bytecode reaches a package function, the Executor interface that turns
// one into a Value, and the ExecutorError classes an Executor may fail
// with. Grounded on the original system's VmExecutor trait
// (original_source/brane-bvm/src/executor.rs), generalized from its single
// `call`/`wait_until` pair to the fuller package-kind/version/location
// shape the host side of the bridge needs.
package executor

import (
	"context"
	"fmt"

	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/google/uuid"
)

// VmCall is everything an Executor needs to run one package function: the
// package it belongs to, the function itself, its arguments by name, and
// (when the call occurred inside an `on` block) the location that block
// named. Built by the VM dispatcher from a CallExt instruction's operands,
// never by any other part of the core.
type VmCall struct {
	// RequestID identifies this one call for logging and tracing. It has no
	// meaning to the VM itself; an Executor may pass it through to whatever
	// backend it dispatches to.
	RequestID string

	Package  string
	Version  string
	Kind     string // the package's backend: "ecu" | "oas" | "cwl" | "std"
	Function string

	// Arguments maps each parameter name (per the FunctionExt descriptor
	// the call pattern resolved to) to the Value the caller passed for it.
	Arguments map[string]bytecode.Value

	ReturnType string

	// Location is the innermost `on` block's location at the time of the
	// call, or "" if the call happened outside any `on` block.
	Location string
}

// NewRequestID generates a short identifier for tagging one VmCall across
// logs, suitable for correlating a suspended call with the Outcome that
// eventually resolves it.
func NewRequestID() string {
	return uuid.New().String()[:8]
}

// ErrorKind classifies why an Executor failed to service a VmCall
// .
type ErrorKind int

const (
	// NotFound means the named function/package isn't known to this
	// Executor, despite having passed compile-time package-index
	// resolution (e.g. the backing service was undeployed after compile).
	NotFound ErrorKind = iota

	// InvalidArguments means the arguments didn't satisfy the function's
	// declared parameter shape.
	InvalidArguments

	// ExecutionFailed means the call reached the backend but the backend
	// itself reported failure; Message carries its diagnostic.
	ExecutionFailed

	// Cancelled means the call was abandoned because the VM's caller
	// cancelled execution.
	Cancelled

	// Unsupported means this Executor implementation never services any
	// call of this kind (e.g. NoExtExecutor).
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidArguments:
		return "invalid arguments"
	case ExecutionFailed:
		return "execution failed"
	case Cancelled:
		return "cancelled"
	case Unsupported:
		return "unsupported"
	default:
		return "<unknown executor error kind>"
	}
}

// Error is the error type an Executor's Execute returns on failure. The VM
// dispatcher never inspects Message directly -- it surfaces Kind as the
// matching errs.RuntimeKind and folds Message into the runtime error it
// reports ("ExecutorError.* surfaced as runtime error, no
// automatic retry").
type Error struct {
	Kind    ErrorKind
	Message string
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("executor: %v: %v", e.Kind, e.Message)
}

// Executor services VmCalls on behalf of a running VM. A call may suspend
// for an arbitrary amount of real time; ctx carries
// cancellation, not a timeout -- enforcing any per-call deadline is the
// Executor implementation's own responsibility ("timeouts are
// the executor's, not the VM's").
//
// An Executor must be safe for concurrent use by multiple goroutines: a
// `parallel` block's branches may each be awaiting a call to
// the same Executor at once.
type Executor interface {
	Execute(ctx context.Context, call VmCall) (bytecode.Value, error)
}

// NoExtExecutor rejects every call. Grounded on the original system's
// NoExtExecutor (original_source/brane-bvm/src/executor.rs), useful as a
// default for compiling and running scripts that never import a package,
// and in tests that only exercise the pure-BraneScript subset.
type NoExtExecutor struct{}

// Execute always fails with Unsupported.
func (NoExtExecutor) Execute(ctx context.Context, call VmCall) (bytecode.Value, error) {
	return bytecode.Unit, NewError(Unsupported, "package function calls are not supported by this executor")
}
