/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package frontend

import (
	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/errs"
)

// semanticChecker is a node visitor that implements assorted checks the
// grammar alone can't enforce: duplicate top-level declarations, break/
// continue appearing outside any loop, and try/catch's ResolveError
// (the grammar accepts it, but nothing downstream can execute it).
type semanticChecker struct {
	fileName string
	errors   *errs.CompileTimeCollection

	nodeStack []ast.Node
	loopDepth int

	funcLine  map[string]int
	classLine map[string]int
}

// NewSemanticChecker returns a checker that attributes errors to fileName.
func NewSemanticChecker(fileName string) *semanticChecker {
	return &semanticChecker{
		fileName:  fileName,
		errors:    &errs.CompileTimeCollection{},
		funcLine:  make(map[string]int),
		classLine: make(map[string]int),
	}
}

// Errors returns the errors collected during the walk, if any.
func (sc *semanticChecker) Errors() *errs.CompileTimeCollection {
	return sc.errors
}

func (sc *semanticChecker) Enter(node ast.Node) {
	sc.nodeStack = append(sc.nodeStack, node)

	switch n := node.(type) {
	case *ast.FuncDecl:
		if len(sc.nodeStack) >= 2 {
			if _, isProgram := sc.nodeStack[len(sc.nodeStack)-2].(*ast.Program); isProgram {
				if line, found := sc.funcLine[n.Name]; found {
					sc.errorAt(n.Line(), "Duplicate function %q. The first one was at line %v.", n.Name, line)
				} else {
					sc.funcLine[n.Name] = n.Line()
				}
			}
		}
	case *ast.ClassDecl:
		if line, found := sc.classLine[n.Name]; found {
			sc.errorAt(n.Line(), "Duplicate class %q. The first one was at line %v.", n.Name, line)
		} else {
			sc.classLine[n.Name] = n.Line()
		}
	case *ast.WhileStmt:
		sc.loopDepth++
	case *ast.ForStmt:
		sc.loopDepth++
	case *ast.BreakStmt:
		if sc.loopDepth == 0 {
			sc.errorAt(n.Line(), "'break' used outside of a loop.")
		}
	case *ast.ContinueStmt:
		if sc.loopDepth == 0 {
			sc.errorAt(n.Line(), "'continue' used outside of a loop.")
		}
	case *ast.TryCatchStmt:
		sc.errorAt(n.Line(), "try/catch is not yet implemented.")
	}
}

func (sc *semanticChecker) Leave(node ast.Node) {
	sc.nodeStack = sc.nodeStack[:len(sc.nodeStack)-1]

	switch node.(type) {
	case *ast.WhileStmt, *ast.ForStmt:
		sc.loopDepth--
	}
}

func (sc *semanticChecker) errorAt(line int, format string, a ...any) {
	sc.errors.Add(errs.NewCompileTime(sc.fileName, line, format, a...))
}
