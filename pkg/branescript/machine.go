/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package branescript is the VM façade: the one piece that wires the
// compiler, the heap, the dispatcher and a host-supplied Executor together
// into something a CLI or embedding host can just call. Nothing in
// pkg/frontend, pkg/backend or pkg/vm ever awaits anything or spawns a
// goroutine; this package owns both of those concerns on their behalf.
package branescript

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/backend"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/executor"
	"github.com/brane-lang/branescript/pkg/frontend"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
	"github.com/brane-lang/branescript/pkg/romutil"
	"github.com/brane-lang/branescript/pkg/vm"
)

// Machine is a compiled BraneScript program together with everything
// needed to run it: its heap, its package index, the Executor that
// services external calls, and the VM options the dispatcher was built
// with. One Machine corresponds to one compile; Run/Call may each be
// invoked on it any number of times (each starts a fresh top-level VM
// sharing the same heap and globals snapshot rules a `parallel` block
// uses internally).
type Machine struct {
	Program   *bytecode.CompiledProgram
	DebugInfo *bytecode.DebugInfo
	Heap      *heap.Heap
	PkgIndex  packageindex.PackageIndex

	executor executor.Executor
	opts     vm.Options

	// heapLock serializes every opcode-stepping call (Start/Resume/Resolve/
	// ResolveError/ResolveParallel) across this Machine and every child VM
	// a `parallel` block forks from it, all of which share one Heap and one
	// globals map lineage. pkg/vm documents the contract this lock
	// enforces: a family member may run concurrently with its siblings only
	// for the duration it spends suspended awaiting the Executor, never
	// while actually stepping the dispatcher. See DESIGN.md.
	heapLock *sync.Mutex
}

// Options bundles what Compile/CompileFile need beyond the source itself.
type Options struct {
	PkgIndex packageindex.PackageIndex
	Executor executor.Executor
	Mouth    romutil.Mouth
	VM       vm.Options
}

// Compile parses and compiles in-memory BraneScript source into a ready-to-
// run Machine. fileName attributes compile errors and is embedded in debug
// info; it may be empty for a script with no associated file (e.g. piped
// through stdin or embedded by a host program).
func Compile(fileName, source string, opts Options) (*Machine, error) {
	program, err := frontend.ParseSource(fileName, source)
	if err != nil {
		return nil, err
	}
	return compileProgram(program, fileName, opts)
}

// CompileFile is Compile's file-reading convenience wrapper, used by
// cmd/branescript's `run`/`build`/`disassemble` subcommands.
func CompileFile(fileName string, opts Options) (*Machine, error) {
	program, err := frontend.ParseFile(fileName)
	if err != nil {
		return nil, err
	}
	return compileProgram(program, fileName, opts)
}

func compileProgram(program *ast.Program, fileName string, opts Options) (*Machine, error) {
	compiled, debugInfo, h, err := backend.GenerateCode(program, fileName, opts.PkgIndex)
	if err != nil {
		return nil, err
	}

	exec := opts.Executor
	if exec == nil {
		exec = executor.NoExtExecutor{}
	}

	return &Machine{
		Program:   compiled,
		DebugInfo: debugInfo,
		Heap:      h,
		PkgIndex:  opts.PkgIndex,
		executor:  exec,
		opts:      opts.VM,
		heapLock:  &sync.Mutex{},
	}, nil
}

// newVM builds one top-level VM for this Machine, wiring its own mouth (so
// concurrent runs of the same Machine don't interleave print output
// through a shared buffer) and sharing everything else.
func (m *Machine) newVM(mouth romutil.Mouth) *vm.VM {
	if mouth == nil {
		mouth = romutil.StdMouth()
	}
	return vm.New(m.Program, m.DebugInfo, m.Heap, mouth, m.PkgIndex, m.opts)
}

// Run executes the program's main chunk to completion, awaiting the
// Executor on every external call and running any `parallel` block's
// branches concurrently, and returns its final value (if any). ctx governs
// cancellation: cancelling ctx stops the VM at its next opportunity and
// reports a Cancelled runtime error, same as calling the VM's own Cancel
// directly.
func (m *Machine) Run(ctx context.Context, mouth romutil.Mouth) (bytecode.Value, bool, error) {
	vmi := m.newVM(mouth)
	m.heapLock.Lock()
	outcome := vmi.Start()
	m.heapLock.Unlock()
	return m.drive(ctx, vmi, outcome)
}

// Call runs the global function named name with args already evaluated, as
// if it were the program's only top-level statement. Used for REPL-style
// one-shot invocation of a single function without running the rest of the
// program.
func (m *Machine) Call(ctx context.Context, mouth romutil.Mouth, name string, args []bytecode.Value) (bytecode.Value, bool, error) {
	vmi := m.newVM(mouth)
	m.heapLock.Lock()
	outcome := vmi.Call(name, args)
	m.heapLock.Unlock()
	return m.drive(ctx, vmi, outcome)
}

// Disassemble writes a human-readable disassembly of every chunk in the
// compiled program to w, for cmd/branescript's `disassemble` subcommand.
// Needs no Executor or heap interaction: disassembly is a pure read of the
// already-compiled bytecode and debug info.
func (m *Machine) Disassemble(w io.Writer) {
	for i := range m.Program.Chunks {
		m.Program.DisassembleChunk(i, w, m.DebugInfo)
	}
}

// drive runs vmi's suspend/resume cycle to completion: awaiting the
// Executor on every OutcomeCall, fanning a `parallel` block's branches out
// across goroutines on every OutcomeParallel, and simply looping again on
// OutcomeYield.
func (m *Machine) drive(ctx context.Context, vmi *vm.VM, outcome vm.Outcome) (bytecode.Value, bool, error) {
	for {
		switch outcome.Kind {
		case vm.OutcomeOk:
			return outcome.Value, outcome.HasValue, nil

		case vm.OutcomeError:
			return bytecode.Unit, false, outcome.Err

		case vm.OutcomeYield:
			m.heapLock.Lock()
			outcome = vmi.Resume()
			m.heapLock.Unlock()

		case vm.OutcomeCall:
			if err := ctx.Err(); err != nil {
				vmi.Cancel()
				m.heapLock.Lock()
				outcome = vmi.ResolveError(executor.NewError(executor.Cancelled, "context cancelled: %v", err))
				m.heapLock.Unlock()
				continue
			}

			// The Executor call itself runs with heapLock released: it may
			// take arbitrarily long, and it never touches this Machine's
			// heap or VM state directly.
			call := outcome.Call
			log.Debug().
				Str("request_id", call.RequestID).
				Str("package", call.Package).
				Str("function", call.Function).
				Msg("dispatching package function call")
			value, err := m.executor.Execute(ctx, *call)

			m.heapLock.Lock()
			if err != nil {
				log.Debug().Str("request_id", call.RequestID).Err(err).Msg("package function call failed")
				outcome = vmi.ResolveError(err)
			} else {
				log.Debug().Str("request_id", call.RequestID).Msg("package function call resolved")
				outcome = vmi.Resolve(value)
			}
			m.heapLock.Unlock()

		case vm.OutcomeParallel:
			results, err := m.runParallel(ctx, outcome.Children)
			if err != nil {
				return bytecode.Unit, false, err
			}
			m.heapLock.Lock()
			outcome = vmi.ResolveParallel(results)
			m.heapLock.Unlock()

		default:
			return bytecode.Unit, false, errs.NewICE("branescript: unknown outcome kind %v", outcome.Kind)
		}
	}
}

// runParallel drives every branch of a `parallel` block concurrently, one
// child VM per branch sharing this Machine's Executor and heap. Modeled on
// the errgroup.WithContext fan-out pattern: one goroutine per child, the
// group's derived context cancelling every sibling as soon as one branch
// fails. Results are returned in declaration order regardless of which
// branch finishes first.
func (m *Machine) runParallel(ctx context.Context, children []*vm.VM) ([]bytecode.Value, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]bytecode.Value, len(children))

	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			m.heapLock.Lock()
			outcome := child.Resume()
			m.heapLock.Unlock()

			value, _, err := m.drive(gctx, child, outcome)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
