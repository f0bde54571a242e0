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

// genProgram emits the top-level program's statements directly into
// cg.currentChunkIndex (the main chunk). Unlike a function body, whose
// every statement must have net-zero stack effect (the function only ever
// returns via an explicit `return`), the program's literal last statement
// is allowed to leave one residual value when it is an ExprStmt (its
// value) or a ParallelBlock (the array of branch results).
//
// This is a deliberate departure from a Visitor-based codeGeneratorPassTwo:
// jump emission for if/while/for/&&/|| needs to interleave with child
// codegen in ways a two-hook Enter/Leave visitor can't express, so pass two
// here is a direct recursive-descent emitter instead.
func genProgram(cg *codeGenerator, program *ast.Program) {
	cg.pushNode(program)
	defer cg.popNode()

	for i, stmt := range program.Statements {
		isLast := i == len(program.Statements)-1
		if es, ok := stmt.(*ast.ExprStmt); ok && isLast {
			genExprStmtKeepValue(cg, es)
			continue
		}
		if pb, ok := stmt.(*ast.ParallelBlock); ok && isLast {
			cg.pushNode(pb)
			genParallelBlock(cg, pb)
			cg.popNode()
			continue
		}
		genStmt(cg, stmt)
	}
}

// genStmt emits one statement, whose net effect on the operand stack is
// always zero apart from the locals it declares -- the uniform rule for
// every statement except the program's own literal last ExprStmt or
// ParallelBlock, handled separately by genProgram.
func genStmt(cg *codeGenerator, node ast.Node) {
	cg.pushNode(node)
	defer cg.popNode()

	switch n := node.(type) {
	case *ast.LetStmt:
		genLetStmt(cg, n)
	case *ast.AssignStmt:
		genAssignStmt(cg, n)
		cg.emitBytes(byte(bytecode.OpPop))
	case *ast.ExprStmt:
		genExpr(cg, n.Expr)
		cg.emitBytes(byte(bytecode.OpPop))
	case *ast.ReturnStmt:
		genReturnStmt(cg, n)
	case *ast.IfStmt:
		genIfStmt(cg, n)
	case *ast.WhileStmt:
		genWhileStmt(cg, n)
	case *ast.ForStmt:
		genForStmt(cg, n)
	case *ast.BreakStmt:
		genBreakStmt(cg, n)
	case *ast.ContinueStmt:
		genContinueStmt(cg, n)
	case *ast.OnBlock:
		genOnBlock(cg, n)
	case *ast.ParallelBlock:
		genParallelBlock(cg, n)
		cg.emitBytes(byte(bytecode.OpPop))
	case *ast.TryCatchStmt:
		cg.error("try/catch has no defined runtime semantics")
	case *ast.FuncDecl:
		genFuncDecl(cg, n)
	case *ast.ClassDecl:
		genClassDecl(cg, n)
	case *ast.ImportStmt:
		genImportStmt(cg, n)
	case *ast.Block:
		genBlock(cg, n)
	default:
		cg.ice("genStmt: unexpected node type %T", node)
	}
}

// genExprStmtKeepValue emits an ExprStmt's expression without the trailing
// Pop every other statement gets -- used only for the program's literal
// last top-level statement, per invariant 3.
func genExprStmtKeepValue(cg *codeGenerator, n *ast.ExprStmt) {
	cg.pushNode(n)
	genExpr(cg, n.Expr)
	cg.popNode()
}

// genBlock compiles a brace-delimited statement sequence in its own lexical
// scope: every local declared inside is popped again on the way out.
func genBlock(cg *codeGenerator, block *ast.Block) {
	cg.pushNode(block)
	cg.beginScope()
	for _, s := range block.Statements {
		genStmt(cg, s)
	}
	cg.endScope()
	cg.popNode()
}
