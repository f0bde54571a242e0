/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package backend

import (
	"fmt"

	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// localVar is one entry of the current function's locals vector: a name
// plus the scope depth it was declared at. Depth lets a block's locals be
// popped off the vector together when the block ends, and lets a shadowing
// declaration in a nested block resolve to the innermost matching name
// instead of an outer one.
type localVar struct {
	name  string
	depth int
}

// loopContext tracks the backpatch state for one active loop: forward-jump
// placeholders for every `continue` and `break` seen in the loop body so
// far, still waiting for their target. continueJumps are patched once the
// body is fully compiled (right before the loop's re-test, or its post
// clause for a for-loop); breakJumps are patched once the whole loop is
// compiled.
type loopContext struct {
	continueJumps []int
	breakJumps    []int
}

// codeGenerator holds everything shared between the declaration pass and
// the code-generation pass, plus all per-function compilation state: the
// program being built, the shared heap, the compilation context, and (reset
// on every function entered) the current chunk, locals and loop stack.
// Mirrors the shape of a typical single-pass code generator struct
// in spirit -- csw/debugInfo/compilationContext/nodeStack/scopeDepth kept
// under the same names and roles, generalized with a heap reference (an
// unboxed Value union needed none) and per-function local/loop state
// (an earlier stub backend never compiled an expression, let alone a
// loop).
type codeGenerator struct {
	fileName string

	program   *bytecode.CompiledProgram
	debugInfo *bytecode.DebugInfo
	heap      *heap.Heap
	cc        *compilationContext
	pkgIndex  packageindex.PackageIndex

	// nodeStack tracks the nodes being processed, current one on top --
	// used only to recover the current source line for error messages and
	// debug-info line tables.
	nodeStack []ast.Node

	// scopeDepth is the current lexical scope depth within the function
	// being compiled. 0 is the function's own top scope (where its
	// parameters live); each nested Block is one level deeper.
	scopeDepth int

	// currentChunkIndex is the index, into program.Chunks, of the chunk
	// currently being emitted into.
	currentChunkIndex int

	// mainChunkIndex is the index of the implicit top-level chunk, set once
	// at the start of GenerateCode. Used by isTopLevelMain to tell a
	// top-level declaration from a nested one.
	mainChunkIndex int

	// locals is the current function's locals vector; its length doubles
	// as "how many stack slots this function has claimed so far".
	locals []localVar

	// loopStack is the stack of loopContexts for currently-open while/for
	// loops, innermost on top, consulted by break/continue.
	loopStack []*loopContext
}

//
// Node stack / source line tracking
//

func (cg *codeGenerator) pushNode(node ast.Node) {
	cg.nodeStack = append(cg.nodeStack, node)
}

func (cg *codeGenerator) popNode() {
	cg.nodeStack = cg.nodeStack[:len(cg.nodeStack)-1]
}

func (cg *codeGenerator) nodeStackTop() ast.Node {
	return cg.nodeStack[len(cg.nodeStack)-1]
}

func (cg *codeGenerator) currentLine() int {
	return cg.nodeStackTop().Line()
}

//
// Errors
//

// error panics with a *errs.CompileTime tied to the node currently on top
// of the stack -- caught by the single recover() in Compile, exactly as
// a typical codeGenerator.error does.
func (cg *codeGenerator) error(format string, a ...interface{}) {
	panic(&errs.CompileTime{
		Message:  fmt.Sprintf(format, a...),
		FileName: cg.nodeStackTop().SourceFile(),
		Line:     cg.currentLine(),
	})
}

// ice reports an Internal Compiler Error -- the compiler found itself in a
// state that should be unreachable given a successfully parsed AST.
func (cg *codeGenerator) ice(format string, a ...interface{}) {
	panic(errs.NewICE(format, a...))
}

//
// Scopes and locals
//

func (cg *codeGenerator) beginScope() {
	cg.scopeDepth++
}

// isTopLevelMain reports whether the declaration currently being compiled
// sits directly in the program's top-level scope, where
// "classes and functions declared at top level are stored as globals" --
// extended here to `let` bindings for the same reason (the main chunk's own
// top scope is where the program's globals live).
func (cg *codeGenerator) isTopLevelMain() bool {
	return cg.currentChunkIndex == cg.mainChunkIndex && cg.scopeDepth == 0
}

// endScope pops every local declared at the scope being left, emitting one
// OpPop per local so the operand stack matches the enclosing scope's depth
// again. Harmless if control already left the block via an explicit
// return: the popped-over value, if any, was already consumed by OpReturn
// resetting the frame to its stack base, so this dead code never executes.
func (cg *codeGenerator) endScope() {
	cg.scopeDepth--
	for len(cg.locals) > 0 && cg.locals[len(cg.locals)-1].depth > cg.scopeDepth {
		cg.locals = cg.locals[:len(cg.locals)-1]
		cg.emitBytes(byte(bytecode.OpPop))
	}
}

// declareLocal adds name as a new local at the current scope depth. Its
// slot is its index in cg.locals, which is also its position on the
// operand stack relative to the frame's stack base, since callers only
// call this right after emitting the code that pushes the local's value.
func (cg *codeGenerator) declareLocal(name string) int {
	cg.locals = append(cg.locals, localVar{name: name, depth: cg.scopeDepth})
	return len(cg.locals) - 1
}

// resolveLocal searches the current function's locals, innermost
// declaration first, for name. Returns its slot and true if found.
func (cg *codeGenerator) resolveLocal(name string) (int, bool) {
	for i := len(cg.locals) - 1; i >= 0; i-- {
		if cg.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

//
// Emission
//

func (cg *codeGenerator) currentChunk() *bytecode.Chunk {
	return cg.program.Chunks[cg.currentChunkIndex]
}

func (cg *codeGenerator) currentLines() *[]int {
	return &cg.debugInfo.ChunksLines[cg.currentChunkIndex]
}

// emitBytes appends one or more raw bytes to the current chunk, recording
// the current source line for each, the same way a
// codeGeneratorPassTwo.emitBytes does.
func (cg *codeGenerator) emitBytes(bs ...byte) {
	chunk := cg.currentChunk()
	lines := cg.currentLines()
	line := cg.currentLine()
	for _, b := range bs {
		chunk.Code = append(chunk.Code, b)
		*lines = append(*lines, line)
	}
}

// emitUInt16 appends a 16-bit big-endian operand (used for constant
// indices and jump offsets).
func (cg *codeGenerator) emitUInt16(v int) {
	var buf [2]byte
	bytecode.EncodeUInt16(buf[:], uint16(v))
	cg.emitBytes(buf[0], buf[1])
}

// emitConstant emits OpConstant for value and returns its constant index.
func (cg *codeGenerator) emitConstant(value bytecode.Value) int {
	k := cg.makeConstant(value)
	cg.emitBytes(byte(bytecode.OpConstant))
	cg.emitUInt16(k)
	return k
}

// makeConstant interns value into the program's constant pool, returning
// the existing index if an equal constant is already present -- mirrors
// a classic makeConstant, including its "constants are constant, no
// need to duplicate them" rationale.
func (cg *codeGenerator) makeConstant(value bytecode.Value) int {
	if i := cg.program.SearchConstant(value); i >= 0 {
		return i
	}
	k := cg.program.AddConstant(value)
	if k >= bytecode.MaxConstants {
		cg.error("too many constants in one program, the maximum is %v", bytecode.MaxConstants)
		return 0
	}
	return k
}

// nameConstant interns name as a heap String and returns the constant
// index of an ObjectRef to it -- the "constants[k]'s name" convention used
// by OpDefineGlobal/OpGetGlobal/OpSetGlobal/OpImport/OpOnEnter/
// OpGetProperty/OpSetProperty.
func (cg *codeGenerator) nameConstant(name string) int {
	return cg.makeConstant(bytecode.ObjectRef(cg.heap.NewString(name)))
}

//
// Jumps
//

// emitJump emits op followed by a two-byte placeholder offset and returns
// the offset of that placeholder, to be fixed up later by patchJump --
// "emit placeholder, backpatch length".
func (cg *codeGenerator) emitJump(op bytecode.OpCode) int {
	cg.emitBytes(byte(op), 0, 0)
	return len(cg.currentChunk().Code) - bytecode.OperandJump
}

// patchJump rewrites the placeholder at jumpOffset so that it jumps to the
// current end of the chunk.
func (cg *codeGenerator) patchJump(jumpOffset int) {
	code := cg.currentChunk().Code
	jumpValue := len(code) - (jumpOffset + bytecode.OperandJump)
	if jumpValue < 0 || jumpValue > 0xffff {
		cg.error("jump target out of 16-bit range")
		return
	}
	bytecode.EncodeUInt16(code[jumpOffset:], uint16(jumpValue))
}

// emitLoopBack emits OpJumpBack targeting loopStart (the offset of the
// first instruction of the loop condition/body to re-execute).
func (cg *codeGenerator) emitLoopBack(loopStart int) {
	cg.emitBytes(byte(bytecode.OpJumpBack), 0, 0)
	offset := len(cg.currentChunk().Code) - bytecode.OperandJump
	back := offset + bytecode.OperandJump - loopStart
	if back < 0 || back > 0xffff {
		cg.error("loop body too large to jump back over")
		return
	}
	bytecode.EncodeUInt16(cg.currentChunk().Code[offset:], uint16(back))
}
