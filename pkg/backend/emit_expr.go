/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package backend

import (
	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/builtins"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/heap"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// genExpr emits node's value-producing bytecode, leaving exactly one
// value on the operand stack.
func genExpr(cg *codeGenerator, node ast.Node) {
	cg.pushNode(node)
	defer cg.popNode()

	switch n := node.(type) {
	case *ast.LiteralExpr:
		genLiteralExpr(cg, n)
	case *ast.Identifier:
		genIdentifier(cg, n)
	case *ast.BinaryExpr:
		genBinaryExpr(cg, n)
	case *ast.UnaryExpr:
		genUnaryExpr(cg, n)
	case *ast.CallExpr:
		genCallExpr(cg, n)
	case *ast.PatternCallExpr:
		genPatternCallExpr(cg, n)
	case *ast.GetExpr:
		genGetExpr(cg, n)
	case *ast.IndexExpr:
		genIndexExpr(cg, n)
	case *ast.ArrayLiteralExpr:
		genArrayLiteralExpr(cg, n)
	case *ast.InstanceExpr:
		genInstanceExpr(cg, n)
	case *ast.AssignStmt:
		// An assignment used as a sub-expression, e.g. `true || (x := 1)`
		// -- genAssignStmt already leaves the
		// assigned value on the stack, so there is nothing more to do.
		genAssignStmt(cg, n)
	default:
		cg.ice("genExpr: unexpected node type %T", node)
	}
}

func genLiteralExpr(cg *codeGenerator, n *ast.LiteralExpr) {
	switch n.Kind {
	case ast.LiteralBool:
		if n.Bool {
			cg.emitBytes(byte(bytecode.OpTrue))
		} else {
			cg.emitBytes(byte(bytecode.OpFalse))
		}
	case ast.LiteralInt:
		cg.emitConstant(bytecode.Integer(n.Int))
	case ast.LiteralReal:
		cg.emitConstant(bytecode.Real(n.Real))
	case ast.LiteralString, ast.LiteralSemver:
		handle := cg.heap.NewString(n.String)
		cg.emitConstant(bytecode.ObjectRef(handle))
	case ast.LiteralUnit:
		cg.emitBytes(byte(bytecode.OpUnit))
	default:
		cg.ice("genLiteralExpr: unexpected literal kind %v", n.Kind)
	}
}

// genIdentifier resolves name as a local first, falling back to a global
// lookup -- which also covers top-level functions/classes, plain `let`
// globals, and names bound at runtime by OpImport.
func genIdentifier(cg *codeGenerator, n *ast.Identifier) {
	if slot, ok := cg.resolveLocal(n.Name); ok {
		cg.emitBytes(byte(bytecode.OpGetLocal), byte(slot))
		return
	}
	k := cg.nameConstant(n.Name)
	cg.emitBytes(byte(bytecode.OpGetGlobal))
	cg.emitUInt16(k)
}

// genBinaryExpr compiles `&&`/`||` with short-circuit jumps (the operand
// left on the stack by the failing/succeeding side becomes the result,
// short-circuiting both branches); every other operator evaluates both
// sides unconditionally. `!=`, `<=` and `>=` are derived from
// Equal/Greater/Less plus Not, since the VM only needs to implement three
// comparison opcodes.
func genBinaryExpr(cg *codeGenerator, n *ast.BinaryExpr) {
	switch n.Op {
	case "&&":
		genExpr(cg, n.Left)
		j := cg.emitJump(bytecode.OpJumpIfFalse)
		cg.emitBytes(byte(bytecode.OpPop))
		genExpr(cg, n.Right)
		cg.patchJump(j)
		return
	case "||":
		genExpr(cg, n.Left)
		j := cg.emitJump(bytecode.OpJumpIfTrue)
		cg.emitBytes(byte(bytecode.OpPop))
		genExpr(cg, n.Right)
		cg.patchJump(j)
		return
	}

	genExpr(cg, n.Left)
	genExpr(cg, n.Right)

	switch n.Op {
	case "+":
		cg.emitBytes(byte(bytecode.OpAdd))
	case "-":
		cg.emitBytes(byte(bytecode.OpSub))
	case "*":
		cg.emitBytes(byte(bytecode.OpMul))
	case "/":
		cg.emitBytes(byte(bytecode.OpDiv))
	case "==":
		cg.emitBytes(byte(bytecode.OpEqual))
	case "!=":
		cg.emitBytes(byte(bytecode.OpEqual), byte(bytecode.OpNot))
	case "<":
		cg.emitBytes(byte(bytecode.OpLess))
	case "<=":
		cg.emitBytes(byte(bytecode.OpGreater), byte(bytecode.OpNot))
	case ">":
		cg.emitBytes(byte(bytecode.OpGreater))
	case ">=":
		cg.emitBytes(byte(bytecode.OpLess), byte(bytecode.OpNot))
	default:
		cg.ice("genBinaryExpr: unknown operator %q", n.Op)
	}
}

func genUnaryExpr(cg *codeGenerator, n *ast.UnaryExpr) {
	genExpr(cg, n.Operand)
	switch n.Op {
	case "-":
		cg.emitBytes(byte(bytecode.OpNegate))
	case "!":
		cg.emitBytes(byte(bytecode.OpNot))
	default:
		cg.ice("genUnaryExpr: unknown operator %q", n.Op)
	}
}

// genCallExpr emits OpBuiltIn for a bare, unshadowed reference to a
// built-in name -- "short-circuited inside the dispatcher, no frame
// pushed" -- and an ordinary OpCall otherwise.
func genCallExpr(cg *codeGenerator, n *ast.CallExpr) {
	if id, isIdent := n.Callee.(*ast.Identifier); isIdent {
		if _, shadowed := cg.resolveLocal(id.Name); !shadowed {
			if code, ok := builtins.Lookup(id.Name); ok {
				if len(n.Args) > 0xff {
					cg.error("too many arguments to %v, the maximum is 255", id.Name)
					return
				}
				for _, a := range n.Args {
					genExpr(cg, a)
				}
				cg.emitBytes(byte(bytecode.OpBuiltIn), code, byte(len(n.Args)))
				return
			}
		}
	}

	genExpr(cg, n.Callee)
	for _, a := range n.Args {
		genExpr(cg, a)
	}
	if len(n.Args) > 0xff {
		cg.error("too many arguments, the maximum is 255")
		return
	}
	cg.emitBytes(byte(bytecode.OpCall), byte(len(n.Args)))
}

// genGetExpr compiles a property access uniformly for fields and methods:
// the VM's GetProperty handler falls back from Instance.Properties to
// Instance.Class.Methods when the name isn't a plain field.
func genGetExpr(cg *codeGenerator, n *ast.GetExpr) {
	genExpr(cg, n.Object)
	k := cg.nameConstant(n.Name)
	cg.emitBytes(byte(bytecode.OpGetProperty))
	cg.emitUInt16(k)
}

func genIndexExpr(cg *codeGenerator, n *ast.IndexExpr) {
	genExpr(cg, n.Array)
	genExpr(cg, n.Index)
	cg.emitBytes(byte(bytecode.OpIndex))
}

func genArrayLiteralExpr(cg *codeGenerator, n *ast.ArrayLiteralExpr) {
	if len(n.Elements) > 0xff {
		cg.error("array literal too large, the maximum is 255 elements")
		return
	}
	for _, e := range n.Elements {
		genExpr(cg, e)
	}
	cg.emitBytes(byte(bytecode.OpArray), byte(len(n.Elements)))
}

// genInstanceExpr pre-builds the field-name Array constant at compile
// time (mirroring the compile-time-built Class/Function constants),
// pushes each field's initializer value in declaration order, then emits
// OpNew to zip them together at runtime.
func genInstanceExpr(cg *codeGenerator, n *ast.InstanceExpr) {
	classHandle, ok := cg.cc.classNameToHandle[n.ClassName]
	if !ok {
		cg.error("unknown class: %v", n.ClassName)
		return
	}

	names := make([]bytecode.Value, len(n.Fields))
	for i, f := range n.Fields {
		names[i] = bytecode.ObjectRef(cg.heap.NewString(f.Name))
	}
	namesHandle := cg.heap.NewArray("string", names)

	for _, f := range n.Fields {
		genExpr(cg, f.Value)
	}

	classK := cg.makeConstant(bytecode.ObjectRef(classHandle))
	namesK := cg.makeConstant(bytecode.ObjectRef(namesHandle))
	cg.emitBytes(byte(bytecode.OpNew))
	cg.emitUInt16(classK)
	cg.emitUInt16(namesK)
}

// genPatternCallExpr resolves a call-pattern expression against every
// function of every imported package, concatenated in import order so
// ambiguity across packages falls back to that same declaration order
// (packageindex.Match already breaks same-package ties that way). The
// match builds its own compile-time FunctionExt descriptor, pushed like
// an ordinary callee before OpCallExt.
func genPatternCallExpr(cg *codeGenerator, n *ast.PatternCallExpr) {
	var keywords []string
	var operands []ast.Node
	for _, f := range n.Fragments {
		if f.Operand != nil {
			operands = append(operands, f.Operand)
		} else {
			keywords = append(keywords, f.Keyword)
		}
	}

	var combined []packageindex.FunctionDesc
	var owners []*packageindex.PackageInfo
	for _, pkgName := range cg.cc.importOrder {
		info := cg.cc.importedPackages[pkgName]
		combined = append(combined, info.Functions...)
		for range info.Functions {
			owners = append(owners, info)
		}
	}

	best, ok := packageindex.Match(combined, keywords, len(operands))
	if !ok {
		cg.error("no imported function matches this call pattern")
		return
	}

	var owner *packageindex.PackageInfo
	for i := range combined {
		if &combined[i] == best {
			owner = owners[i]
			break
		}
	}
	if owner == nil {
		cg.ice("matched call pattern %v has no owning package", best.Name)
	}

	extHandle := cg.heap.NewFunctionExt(&heap.FunctionExt{
		Name:       best.Name,
		Package:    owner.Name,
		Version:    owner.Version,
		Kind:       owner.Kind,
		Parameters: best.Parameters,
		ReturnType: best.ReturnType,
	})
	cg.emitConstant(bytecode.ObjectRef(extHandle))

	if len(operands) > 0xff {
		cg.error("too many operands in call pattern, the maximum is 255")
		return
	}
	for _, op := range operands {
		genExpr(cg, op)
	}
	cg.emitBytes(byte(bytecode.OpCallExt), byte(len(operands)))
}
