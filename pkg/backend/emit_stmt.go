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
)

// genLetStmt evaluates the initializer and binds it under Name: a global
// at top level, a local everywhere else. A local's value simply stays
// where its initializer left it on the operand stack -- no separate store
// instruction needed.
func genLetStmt(cg *codeGenerator, n *ast.LetStmt) {
	genExpr(cg, n.Initializer)

	if cg.isTopLevelMain() {
		k := cg.nameConstant(n.Name)
		cg.emitBytes(byte(bytecode.OpDefineGlobal))
		cg.emitUInt16(k)
	} else {
		cg.declareLocal(n.Name)
	}
}

// genAssignStmt compiles an assignment to any of the three settable
// target kinds. It always leaves exactly the assigned value on the stack
// (every Set* opcode peeks rather than pops) -- genStmt's ExprStmt/
// AssignStmt case adds the trailing Pop a statement-position assignment
// needs; genExpr's AssignStmt case (an assignment used as a sub-expression,
// e.g. inside a parenthesized condition) does not.
func genAssignStmt(cg *codeGenerator, n *ast.AssignStmt) {
	switch target := n.Target.(type) {
	case *ast.Identifier:
		genExpr(cg, n.Value)
		if slot, ok := cg.resolveLocal(target.Name); ok {
			cg.emitBytes(byte(bytecode.OpSetLocal), byte(slot))
		} else {
			k := cg.nameConstant(target.Name)
			cg.emitBytes(byte(bytecode.OpSetGlobal))
			cg.emitUInt16(k)
		}

	case *ast.IndexExpr:
		genExpr(cg, target.Array)
		genExpr(cg, target.Index)
		genExpr(cg, n.Value)
		cg.emitBytes(byte(bytecode.OpSetIndex))

	case *ast.GetExpr:
		genExpr(cg, target.Object)
		genExpr(cg, n.Value)
		k := cg.nameConstant(target.Name)
		cg.emitBytes(byte(bytecode.OpSetProperty))
		cg.emitUInt16(k)

	default:
		cg.ice("genAssignStmt: unexpected assignment target %T", n.Target)
	}
}

// genReturnStmt evaluates Value (or pushes Unit for a bare `return;`) and
// emits OpReturn, which pops the frame itself -- no extra Pop needed.
func genReturnStmt(cg *codeGenerator, n *ast.ReturnStmt) {
	if n.Value != nil {
		genExpr(cg, n.Value)
	} else {
		cg.emitBytes(byte(bytecode.OpUnit))
	}
	cg.emitBytes(byte(bytecode.OpReturn))
}

// genIfStmt emits the classic "jump past then, unconditional jump past
// else" shape, popping the condition value on both the taken and
// not-taken side of the first jump.
func genIfStmt(cg *codeGenerator, n *ast.IfStmt) {
	genExpr(cg, n.Condition)
	thenJump := cg.emitJump(bytecode.OpJumpIfFalse)
	cg.emitBytes(byte(bytecode.OpPop))

	genStmt(cg, n.Then)

	elseJump := cg.emitJump(bytecode.OpJump)
	cg.patchJump(thenJump)
	cg.emitBytes(byte(bytecode.OpPop))

	if n.Else != nil {
		genStmt(cg, n.Else)
	}
	cg.patchJump(elseJump)
}

// genWhileStmt compiles a condition-checked loop. `continue` jumps forward
// to just past the body (i.e. back to the condition re-test); `break`
// jumps forward to just past the loop.
func genWhileStmt(cg *codeGenerator, n *ast.WhileStmt) {
	loopStart := len(cg.currentChunk().Code)
	cg.loopStack = append(cg.loopStack, &loopContext{})
	lc := cg.loopStack[len(cg.loopStack)-1]

	genExpr(cg, n.Condition)
	exitJump := cg.emitJump(bytecode.OpJumpIfFalse)
	cg.emitBytes(byte(bytecode.OpPop))

	genBlock(cg, n.Body)

	for _, j := range lc.continueJumps {
		cg.patchJump(j)
	}
	cg.emitLoopBack(loopStart)

	cg.patchJump(exitJump)
	cg.emitBytes(byte(bytecode.OpPop))

	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
	for _, j := range lc.breakJumps {
		cg.patchJump(j)
	}
}

// genForStmt compiles a C-style three-clause loop in its own scope (so
// Init's binding, if any, doesn't leak past the loop). `continue` jumps
// forward to the post clause rather than straight back to the condition,
// so a `for (;; i := i + 1)` loop still runs its post clause on continue.
func genForStmt(cg *codeGenerator, n *ast.ForStmt) {
	cg.beginScope()
	if n.Init != nil {
		genStmt(cg, n.Init)
	}

	loopStart := len(cg.currentChunk().Code)
	cg.loopStack = append(cg.loopStack, &loopContext{})
	lc := cg.loopStack[len(cg.loopStack)-1]

	hasCond := n.Condition != nil
	var exitJump int
	if hasCond {
		genExpr(cg, n.Condition)
		exitJump = cg.emitJump(bytecode.OpJumpIfFalse)
		cg.emitBytes(byte(bytecode.OpPop))
	}

	genBlock(cg, n.Body)

	for _, j := range lc.continueJumps {
		cg.patchJump(j)
	}
	if n.Post != nil {
		genStmt(cg, n.Post)
	}
	cg.emitLoopBack(loopStart)

	if hasCond {
		cg.patchJump(exitJump)
		cg.emitBytes(byte(bytecode.OpPop))
	}

	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
	for _, j := range lc.breakJumps {
		cg.patchJump(j)
	}
	cg.endScope()
}

func genBreakStmt(cg *codeGenerator, n *ast.BreakStmt) {
	if len(cg.loopStack) == 0 {
		cg.error("break outside of a loop")
		return
	}
	lc := cg.loopStack[len(cg.loopStack)-1]
	lc.breakJumps = append(lc.breakJumps, cg.emitJump(bytecode.OpJump))
}

func genContinueStmt(cg *codeGenerator, n *ast.ContinueStmt) {
	if len(cg.loopStack) == 0 {
		cg.error("continue outside of a loop")
		return
	}
	lc := cg.loopStack[len(cg.loopStack)-1]
	lc.continueJumps = append(lc.continueJumps, cg.emitJump(bytecode.OpJump))
}

// genOnBlock pushes Location onto the VM's location stack for the
// duration of Body. OpOnEnter's single constant operand means the
// location has to be known at compile time, so (as ast.OnBlock's doc
// comment says) anything but a plain string literal is a compile error.
func genOnBlock(cg *codeGenerator, n *ast.OnBlock) {
	lit, ok := n.Location.(*ast.LiteralExpr)
	if !ok || lit.Kind != ast.LiteralString {
		cg.error("on-block location must be a string literal")
		return
	}

	k := cg.nameConstant(lit.String)
	cg.emitBytes(byte(bytecode.OpOnEnter))
	cg.emitUInt16(k)

	genBlock(cg, n.Body)

	cg.emitBytes(byte(bytecode.OpOnExit))
}

// genParallelBlock compiles each branch as an anonymous zero-arg function
// in its own fresh chunk, pushes the resulting FunctionRefs, and emits
// OpParallel to run them concurrently.
func genParallelBlock(cg *codeGenerator, n *ast.ParallelBlock) {
	if len(n.Blocks) > 0xff {
		cg.error("too many parallel branches, the maximum is 255")
		return
	}

	for i, b := range n.Blocks {
		name := fmt.Sprintf("<parallel#%d>", i)
		chunkIndex := cg.newChunk(name, bytecode.Handle{})
		handle := cg.heap.NewFunction(name, 0, chunkIndex)

		compileChunkBody(cg, chunkIndex, nil, b)
		cg.emitConstant(bytecode.FunctionRef(handle))
	}

	cg.emitBytes(byte(bytecode.OpParallel), byte(len(n.Blocks)))
}
