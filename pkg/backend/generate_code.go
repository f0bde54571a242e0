/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package backend

import (
	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// mainChunkName is the debug-info name of the implicit top-level chunk
// every program compiles its top-level statements into.
const mainChunkName = "<main>"

// GenerateCode compiles program into a CompiledProgram: a declaration pass
// registers every function and class (so forward references and mutual
// recursion resolve regardless of declaration order), and a code
// generation pass fills in the bytecode. fileName is used for error
// messages and debug information; pkgIndex resolves `import` statements
// and call-pattern expressions.
//
// Uses the same panic/recover convention turning a deep panic(*errs.CompileTime) or
// panic(*errs.ICE) into a returned error, same two-pass structure sharing
// one codeGenerator/compilationContext.
func GenerateCode(program *ast.Program, fileName string, pkgIndex packageindex.PackageIndex) (
	compiled *bytecode.CompiledProgram,
	debugInfo *bytecode.DebugInfo,
	h *heap.Heap,
	err error) {

	defer func() {
		if r := recover(); r != nil {
			compiled, debugInfo, h = nil, nil, nil
			switch e := r.(type) {
			case *errs.CompileTime:
				err = e
			case *errs.ICE:
				err = e
			default:
				err = errs.NewICE("unexpected panic during code generation: %v (%T)", r, r)
			}
		}
	}()

	cg := &codeGenerator{
		fileName:  fileName,
		program:   &bytecode.CompiledProgram{},
		debugInfo: bytecode.NewDebugInfo(),
		heap:      heap.New(),
		cc:        newCompilationContext(),
		pkgIndex:  pkgIndex,
		nodeStack: make([]ast.Node, 0, 64),
	}

	mainChunkIndex := cg.newChunk(mainChunkName, bytecode.Handle{})
	cg.program.MainChunk = mainChunkIndex
	cg.mainChunkIndex = mainChunkIndex

	passOne := &declarationPass{cg: cg}
	program.Walk(passOne)

	if len(cg.nodeStack) > 0 {
		panic(errs.NewICE("node stack not empty between compilation passes"))
	}

	cg.currentChunkIndex = mainChunkIndex
	genProgram(cg, program)

	return cg.program, cg.debugInfo, cg.heap, nil
}

// newChunk appends a fresh Chunk to the program being compiled and
// registers matching debug info, keeping the two lockstep (every chunk
// index must be a valid index into both program.Chunks and every
// debugInfo.Chunks* slice). handle is the owning Function's heap handle,
// or the zero Handle for the implicit main chunk, which has none.
func (cg *codeGenerator) newChunk(name string, handle bytecode.Handle) int {
	chunkIndex := len(cg.program.Chunks)
	cg.program.Chunks = append(cg.program.Chunks, &bytecode.Chunk{})

	diIndex := cg.debugInfo.RegisterChunk(handle, name, cg.fileName, []int{})
	if diIndex != chunkIndex {
		cg.ice("chunk index %v and debug-info index %v diverged", chunkIndex, diIndex)
	}
	return chunkIndex
}
