/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import "github.com/brane-lang/branescript/pkg/bytecode"

// callFrame holds the runtime state of one ongoing function call: which
// chunk it's executing, its instruction pointer, and its view into the
// shared operand stack. Grounded on a classic callFrame design,
// generalized from a single proc field to a chunkIndex
// (every frame, including the implicit top-level one, runs a chunk) plus
// the heap handle of the function it's running (zero for the top-level
// frame, which has none) -- the handle is what debugInfo.FunctionName
// needs to name a frame in a stack trace.
type callFrame struct {
	// chunkIndex is the index, into the program's Chunks, of the bytecode
	// this frame is executing.
	chunkIndex int

	// ip is the instruction pointer: an index into Chunks[chunkIndex].Code
	// of the next instruction to execute.
	ip int

	// stack is this frame's view into the VM's shared operand stack.
	stack *StackView

	// handle is the heap handle of the Function this frame is running, or
	// the zero Handle for the implicit top-level frame.
	handle bytecode.Handle
}
