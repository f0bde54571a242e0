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
)

// declarationPass walks the whole program once, before any bytecode is
// emitted, registering every function and class it finds: a Chunk and a
// heap object for each. This lets the code-generation pass resolve a call
// or a class reference regardless of where, relative to the reference, the
// declaration itself appears -- mirrors a typical declaration pass,
// generalized from "one flat namespace of procedures" to functions,
// nested functions, and class method tables.
type declarationPass struct {
	cg *codeGenerator
}

func (p *declarationPass) Enter(node ast.Node) {
	switch n := node.(type) {
	case *ast.ClassDecl:
		p.registerClass(n)
	case *ast.FuncDecl:
		if !p.insideClass() {
			p.registerFunc(n, n.Name)
		}
	}
	p.cg.pushNode(node)
}

func (p *declarationPass) Leave(node ast.Node) {
	p.cg.popNode()
}

// insideClass reports whether the node about to be entered is a direct
// child of a ClassDecl (i.e. one of its Methods) -- such FuncDecls are
// registered by registerClass itself, under a class-qualified name, rather
// than by the generic *ast.FuncDecl case above.
func (p *declarationPass) insideClass() bool {
	if len(p.cg.nodeStack) == 0 {
		return false
	}
	_, ok := p.cg.nodeStack[len(p.cg.nodeStack)-1].(*ast.ClassDecl)
	return ok
}

// registerClass pre-allocates an empty-Methods heap Class for n, then
// registers each of its methods under a class-qualified name so two
// classes may each declare a method of the same name without colliding.
func (p *declarationPass) registerClass(n *ast.ClassDecl) {
	cc := p.cg.cc
	if _, exists := cc.classNameToHandle[n.Name]; exists {
		p.cg.pushNode(n)
		p.cg.error("duplicate class declaration: %v", n.Name)
	}

	handle := p.cg.heap.NewClass(n.Name, map[string]bytecode.Value{})
	cc.classNameToHandle[n.Name] = handle

	for _, m := range n.Methods {
		p.registerFunc(m, methodQualifiedName(n.Name, m.Name))
	}
}

// registerFunc creates a Chunk and a heap Function for fd, registering both
// under qualifiedName in the compilationContext. The chunk is reserved
// first so its index is known before the heap Function (which embeds it)
// is created.
func (p *declarationPass) registerFunc(fd *ast.FuncDecl, qualifiedName string) {
	cg := p.cg
	cc := cg.cc
	if _, exists := cc.funcNameToChunk[qualifiedName]; exists {
		cg.pushNode(fd)
		cg.error("duplicate function declaration: %v", qualifiedName)
	}

	chunkIndex := len(cg.program.Chunks)
	cg.program.Chunks = append(cg.program.Chunks, &bytecode.Chunk{})

	handle := cg.heap.NewFunction(fd.Name, byte(len(fd.Parameters)), chunkIndex)

	diIndex := cg.debugInfo.RegisterChunk(handle, qualifiedName, cg.fileName, []int{})
	if diIndex != chunkIndex {
		cg.ice("chunk index %v and debug-info index %v diverged", chunkIndex, diIndex)
	}

	fd.ChunkIndex = chunkIndex
	cc.funcNameToChunk[qualifiedName] = chunkIndex
	cc.funcNameToHandle[qualifiedName] = handle
}

// methodQualifiedName builds the compilationContext key for a class method,
// disambiguating identically-named methods across different classes.
func methodQualifiedName(className, methodName string) string {
	return className + "." + methodName
}
