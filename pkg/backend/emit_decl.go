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
	"github.com/brane-lang/branescript/pkg/heap"
)

// compileFunctionBody compiles fd's body into program.Chunks[chunkIndex],
// which the declaration pass already reserved. Saves and restores every
// piece of per-function compiler state so a nested function declaration
// (or a class method) can be compiled in the middle of compiling its
// enclosing function without disturbing it.
func compileFunctionBody(cg *codeGenerator, fd *ast.FuncDecl, chunkIndex int) {
	compileChunkBody(cg, chunkIndex, fd.Parameters, fd.Body)
}

// compileChunkBody is the shared machinery behind compileFunctionBody and
// the anonymous zero-arg thunks a parallel block compiles one per branch:
// reserve a fresh local-variable frame, declare the reserved callee slot
// and one local per parameter, compile body, and emit the fall-off-the-end
// safety net every function chunk gets (`return;` is `return unit;`,
// by design).
func compileChunkBody(cg *codeGenerator, chunkIndex int, params []ast.Parameter, body *ast.Block) {
	savedChunk := cg.currentChunkIndex
	savedDepth := cg.scopeDepth
	savedLocals := cg.locals
	savedLoopStack := cg.loopStack

	cg.currentChunkIndex = chunkIndex
	cg.scopeDepth = 0
	cg.locals = nil
	cg.loopStack = nil

	cg.declareLocal("") // slot 0: reserved for the callee itself
	for _, p := range params {
		cg.declareLocal(p.Name)
	}

	genBlock(cg, body)
	cg.emitBytes(byte(bytecode.OpUnit), byte(bytecode.OpReturn))

	cg.currentChunkIndex = savedChunk
	cg.scopeDepth = savedDepth
	cg.locals = savedLocals
	cg.loopStack = savedLoopStack
}

// genFuncDecl compiles a (non-method) function's body, then binds its
// FunctionRef under its name: a global at top level, a local everywhere
// else (classes and functions declared at top level are
// stored as globals").
func genFuncDecl(cg *codeGenerator, n *ast.FuncDecl) {
	handle, ok := cg.cc.funcNameToHandle[n.Name]
	if !ok {
		cg.ice("function %v missing from the declaration pass", n.Name)
	}

	compileFunctionBody(cg, n, n.ChunkIndex)
	cg.emitConstant(bytecode.FunctionRef(handle))

	if cg.isTopLevelMain() {
		k := cg.nameConstant(n.Name)
		cg.emitBytes(byte(bytecode.OpDefineGlobal))
		cg.emitUInt16(k)
	} else {
		cg.declareLocal(n.Name)
	}
}

// genClassDecl compiles every method body into its pre-reserved chunk,
// writes each resulting FunctionRef into the class's heap method table
// (pre-registered with an empty table by the declaration pass, so a
// method body may reference its own class, or another class declared
// later in the program), then pushes and binds the class itself.
func genClassDecl(cg *codeGenerator, n *ast.ClassDecl) {
	classHandle, ok := cg.cc.classNameToHandle[n.Name]
	if !ok {
		cg.ice("class %v missing from the declaration pass", n.Name)
	}
	obj, ok := cg.heap.Get(classHandle)
	if !ok {
		cg.ice("class %v's heap object vanished before code generation", n.Name)
	}
	class := obj.(*heap.Class)

	for _, m := range n.Methods {
		qualifiedName := methodQualifiedName(n.Name, m.Name)
		chunkIndex, ok := cg.cc.funcNameToChunk[qualifiedName]
		if !ok {
			cg.ice("method %v missing from the declaration pass", qualifiedName)
		}
		methodHandle := cg.cc.funcNameToHandle[qualifiedName]

		compileFunctionBody(cg, m, chunkIndex)
		class.Methods[m.Name] = bytecode.FunctionRef(methodHandle)
	}

	classK := cg.makeConstant(bytecode.ObjectRef(classHandle))
	cg.emitBytes(byte(bytecode.OpClass))
	cg.emitUInt16(classK)

	if cg.isTopLevelMain() {
		k := cg.nameConstant(n.Name)
		cg.emitBytes(byte(bytecode.OpDefineGlobal))
		cg.emitUInt16(k)
	} else {
		cg.declareLocal(n.Name)
	}
}

// genImportStmt resolves n against the package index and emits OpImport.
// The version, when pinned, rides along with the package name inside the
// single string constant OpImport's one-operand shape allows, split again
// by the VM: "name" or "name@version".
func genImportStmt(cg *codeGenerator, n *ast.ImportStmt) {
	var version *string
	if n.Version != "" {
		version = &n.Version
	}

	info, ok := cg.pkgIndex.Get(n.Package, version)
	if !ok {
		cg.error("unknown package: %v", n.Package)
		return
	}

	cc := cg.cc
	cc.importedPackages[n.Package] = info
	cc.importOrder = append(cc.importOrder, n.Package)

	constantName := n.Package
	if n.Version != "" {
		constantName = n.Package + "@" + n.Version
	}
	k := cg.nameConstant(constantName)
	cg.emitBytes(byte(bytecode.OpImport))
	cg.emitUInt16(k)
}
