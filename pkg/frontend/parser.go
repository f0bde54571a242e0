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

// precedence levels, lowest to highest.
type precedence int

const (
	precNone       precedence = iota
	precOr                    // ||
	precAnd                   // &&
	precEquality              // == !=
	precComparison            // < <= > >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . () []
	precPrimary
)

var binaryPrecedence = map[TokenKind]precedence{
	TokenKindOr:           precOr,
	TokenKindAnd:          precAnd,
	TokenKindEqualEqual:   precEquality,
	TokenKindBangEqual:    precEquality,
	TokenKindLess:         precComparison,
	TokenKindLessEqual:    precComparison,
	TokenKindGreater:      precComparison,
	TokenKindGreaterEqual: precComparison,
	TokenKindPlus:         precTerm,
	TokenKindMinus:        precTerm,
	TokenKindStar:         precFactor,
	TokenKindSlash:        precFactor,
}

// parser is a recursive-descent parser for BraneScript, with a
// precedence-climbing (Pratt) expression parser for operator expressions.
// It also recognizes "pattern calls" -- sequences of bare keywords and
// operand expressions that don't fit the ordinary call/binary/unary grammar
// -- and defers their resolution to the package index at code-generation
// time.
type parser struct {
	fileName string

	currentToken  *Token
	previousToken *Token

	// hadError indicates whether we found at least one syntax error.
	hadError bool

	// panicMode indicates we are resynchronizing after an error: further
	// errors are suppressed until we reach a statement boundary.
	panicMode bool

	errors *errs.CompileTimeCollection

	scanner *Scanner
}

// newParser returns a new parser that will parse source, attributing errors
// to fileName (which may be empty for in-memory scripts).
func newParser(fileName, source string) *parser {
	return &parser{
		fileName: fileName,
		scanner:  NewScanner(source),
		errors:   &errs.CompileTimeCollection{},
	}
}

// Parse parses a BraneScript source file and returns its AST. fileName is
// used only to attribute error messages and AST node locations; pass "" for
// in-memory scripts.
func Parse(fileName, source string) (*ast.Program, error) {
	p := newParser(fileName, source)
	prog := p.parse()
	if !p.errors.IsEmpty() {
		return nil, p.errors
	}
	return prog, nil
}

func (p *parser) parse() *ast.Program {
	prog := &ast.Program{BaseNode: ast.BaseNode{FileName: p.fileName}}

	p.advance()
	for !p.check(TokenKindEOF) {
		stmt := p.declaration()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		if p.panicMode {
			p.synchronize()
		}
	}

	return prog
}

//
// Token stream helpers
//

func (p *parser) advance() {
	p.previousToken = p.currentToken
	for {
		p.currentToken = p.scanner.Token()
		if p.currentToken.Kind != TokenKindError {
			break
		}
		p.errorAtCurrent(p.currentToken.Lexeme)
	}
}

func (p *parser) check(kind TokenKind) bool {
	return p.currentToken.Kind == kind
}

func (p *parser) match(kind TokenKind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(kind TokenKind, message string) {
	if p.currentToken.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) base() ast.BaseNode {
	return ast.BaseNode{FileName: p.fileName, LineNumber: p.previousToken.Line}
}

//
// Declarations and statements
//

func (p *parser) declaration() ast.Node {
	switch {
	case p.match(TokenKindImport):
		return p.importStmt()
	case p.match(TokenKindClass):
		return p.classDecl()
	case p.match(TokenKindFunc):
		return p.funcDecl()
	default:
		return p.statement()
	}
}

func (p *parser) importStmt() ast.Node {
	base := p.base()
	p.consume(TokenKindIdentifier, "Expected package name after 'import'.")
	pkg := p.previousToken.Lexeme
	version := ""
	if p.match(TokenKindSemver) {
		version = p.previousToken.Lexeme
	}
	p.consume(TokenKindSemicolon, "Expected ';' after import statement.")
	return &ast.ImportStmt{BaseNode: base, Package: pkg, Version: version}
}

func (p *parser) funcDecl() *ast.FuncDecl {
	base := p.base()
	p.consume(TokenKindIdentifier, "Expected function name.")
	name := p.previousToken.Lexeme

	p.consume(TokenKindLeftParen, "Expected '(' after function name.")
	params := p.parameterList()

	p.consume(TokenKindLeftBrace, "Expected '{' to start function body.")
	body := p.blockNoConsumeBrace()

	return &ast.FuncDecl{BaseNode: base, Name: name, Parameters: params, Body: body}
}

func (p *parser) parameterList() []ast.Parameter {
	var params []ast.Parameter
	if p.check(TokenKindRightParen) {
		p.advance()
		return params
	}
	for {
		p.consume(TokenKindIdentifier, "Expected parameter name.")
		params = append(params, ast.Parameter{Name: p.previousToken.Lexeme})
		if !p.match(TokenKindComma) {
			break
		}
	}
	p.consume(TokenKindRightParen, "Expected ')' after parameter list.")
	return params
}

func (p *parser) classDecl() *ast.ClassDecl {
	base := p.base()
	p.consume(TokenKindIdentifier, "Expected class name.")
	name := p.previousToken.Lexeme
	p.consume(TokenKindLeftBrace, "Expected '{' to start class body.")

	var methods []*ast.FuncDecl
	for !p.check(TokenKindRightBrace) && !p.check(TokenKindEOF) {
		p.consume(TokenKindFunc, "Expected method declaration inside class body.")
		methods = append(methods, p.funcDecl())
	}
	p.consume(TokenKindRightBrace, "Expected '}' to close class body.")

	return &ast.ClassDecl{BaseNode: base, Name: name, Methods: methods}
}

// block parses a `{ ... }` block; the opening brace must not yet have been
// consumed.
func (p *parser) block() *ast.Block {
	p.consume(TokenKindLeftBrace, "Expected '{'.")
	return p.blockNoConsumeBrace()
}

// blockNoConsumeBrace parses the contents of a block whose opening brace has
// just been consumed, consuming the closing brace too.
func (p *parser) blockNoConsumeBrace() *ast.Block {
	base := p.base()
	blk := &ast.Block{BaseNode: base}
	for !p.check(TokenKindRightBrace) && !p.check(TokenKindEOF) {
		stmt := p.declaration()
		if stmt != nil {
			blk.Statements = append(blk.Statements, stmt)
		}
		if p.panicMode {
			break
		}
	}
	p.consume(TokenKindRightBrace, "Expected '}' to close block.")
	return blk
}

func (p *parser) statement() ast.Node {
	switch {
	case p.match(TokenKindLet):
		return p.letStmt()
	case p.match(TokenKindIf):
		return p.ifStmt()
	case p.match(TokenKindWhile):
		return p.whileStmt()
	case p.match(TokenKindFor):
		return p.forStmt()
	case p.match(TokenKindReturn):
		return p.returnStmt()
	case p.match(TokenKindBreak):
		base := p.base()
		p.consume(TokenKindSemicolon, "Expected ';' after 'break'.")
		return &ast.BreakStmt{BaseNode: base}
	case p.match(TokenKindContinue):
		base := p.base()
		p.consume(TokenKindSemicolon, "Expected ';' after 'continue'.")
		return &ast.ContinueStmt{BaseNode: base}
	case p.match(TokenKindOn):
		return p.onBlock()
	case p.match(TokenKindParallel):
		return p.parallelBlock()
	case p.match(TokenKindTry):
		return p.tryCatchStmt()
	case p.check(TokenKindLeftBrace):
		return p.block()
	default:
		return p.exprOrAssignStmt()
	}
}

func (p *parser) letStmt() ast.Node {
	base := p.base()
	p.consume(TokenKindIdentifier, "Expected variable name after 'let'.")
	name := p.previousToken.Lexeme
	p.consume(TokenKindColonEqual, "Expected ':=' after variable name.")
	init := p.expression()
	p.consume(TokenKindSemicolon, "Expected ';' after 'let' statement.")
	return &ast.LetStmt{BaseNode: base, Name: name, Initializer: init}
}

func (p *parser) ifStmt() ast.Node {
	base := p.base()
	cond := p.expression()
	then := p.block()

	var elseNode ast.Node
	if p.match(TokenKindElse) {
		if p.match(TokenKindIf) {
			elseNode = p.ifStmt()
		} else {
			elseNode = p.block()
		}
	}

	return &ast.IfStmt{BaseNode: base, Condition: cond, Then: then, Else: elseNode}
}

func (p *parser) whileStmt() ast.Node {
	base := p.base()
	cond := p.expression()
	body := p.block()
	return &ast.WhileStmt{BaseNode: base, Condition: cond, Body: body}
}

func (p *parser) forStmt() ast.Node {
	base := p.base()
	p.consume(TokenKindLeftParen, "Expected '(' after 'for'.")

	var init ast.Node
	if !p.check(TokenKindSemicolon) {
		init = p.forClauseStmt()
	}
	p.consume(TokenKindSemicolon, "Expected ';' after for-loop initializer.")

	var cond ast.Node
	if !p.check(TokenKindSemicolon) {
		cond = p.expression()
	}
	p.consume(TokenKindSemicolon, "Expected ';' after for-loop condition.")

	var post ast.Node
	if !p.check(TokenKindRightParen) {
		post = p.forClauseStmt()
	}
	p.consume(TokenKindRightParen, "Expected ')' after for-loop clauses.")

	body := p.block()
	return &ast.ForStmt{BaseNode: base, Init: init, Condition: cond, Post: post, Body: body}
}

// forClauseStmt parses a `let` declaration or an assignment/expression, as
// used in a for-loop's init and post clauses -- without consuming a
// trailing ';', since the caller (forStmt) owns the separators.
func (p *parser) forClauseStmt() ast.Node {
	if p.match(TokenKindLet) {
		base := p.base()
		p.consume(TokenKindIdentifier, "Expected variable name after 'let'.")
		name := p.previousToken.Lexeme
		p.consume(TokenKindColonEqual, "Expected ':=' after variable name.")
		init := p.expression()
		return &ast.LetStmt{BaseNode: base, Name: name, Initializer: init}
	}
	return p.exprOrAssign()
}

func (p *parser) returnStmt() ast.Node {
	base := p.base()
	var value ast.Node
	if !p.check(TokenKindSemicolon) {
		value = p.expression()
	}
	p.consume(TokenKindSemicolon, "Expected ';' after 'return' statement.")
	return &ast.ReturnStmt{BaseNode: base, Value: value}
}

func (p *parser) onBlock() ast.Node {
	base := p.base()
	loc := p.expression()
	body := p.block()
	return &ast.OnBlock{BaseNode: base, Location: loc, Body: body}
}

func (p *parser) parallelBlock() ast.Node {
	base := p.base()
	p.consume(TokenKindLeftBrace, "Expected '{' after 'parallel'.")

	var blocks []*ast.Block
	for !p.check(TokenKindRightBrace) && !p.check(TokenKindEOF) {
		blocks = append(blocks, p.block())
	}
	p.consume(TokenKindRightBrace, "Expected '}' to close 'parallel' block.")

	return &ast.ParallelBlock{BaseNode: base, Blocks: blocks}
}

func (p *parser) tryCatchStmt() ast.Node {
	base := p.base()
	tryBlock := p.block()
	p.consume(TokenKindCatch, "Expected 'catch' after 'try' block.")
	p.consume(TokenKindLeftParen, "Expected '(' after 'catch'.")
	p.consume(TokenKindIdentifier, "Expected catch parameter name.")
	param := p.previousToken.Lexeme
	p.consume(TokenKindRightParen, "Expected ')' after catch parameter.")
	catchBlock := p.block()
	return &ast.TryCatchStmt{BaseNode: base, Try: tryBlock, CatchParam: param, Catch: catchBlock}
}

// exprOrAssignStmt parses a statement that starts with an expression: either
// a plain expression statement, or an assignment (`target := value;`).
func (p *parser) exprOrAssignStmt() ast.Node {
	node := p.exprOrAssign()
	p.consume(TokenKindSemicolon, "Expected ';' after expression.")
	return node
}

func (p *parser) exprOrAssign() ast.Node {
	base := p.base()
	expr := p.expression()
	if p.match(TokenKindColonEqual) {
		value := p.expression()
		switch expr.(type) {
		case *ast.Identifier, *ast.IndexExpr, *ast.GetExpr:
		default:
			p.errorAtPrevious("Invalid assignment target.")
		}
		return &ast.AssignStmt{BaseNode: base, Target: expr, Value: value}
	}
	return &ast.ExprStmt{BaseNode: base, Expr: expr}
}

// groupedExpr parses the contents of a parenthesized `( ... )` expression,
// which -- unlike a statement-position expression -- may itself be an
// assignment: `(x := 1 == 1)` evaluates to the assigned value, since
// SetGlobal/SetLocal leave it on the stack instead of popping it. Returns
// the raw expression or *ast.AssignStmt, never wrapped in an ast.ExprStmt
// the way exprOrAssign's statement-position result is.
func (p *parser) groupedExpr() ast.Node {
	base := p.base()
	expr := p.expression()
	if p.match(TokenKindColonEqual) {
		value := p.expression()
		switch expr.(type) {
		case *ast.Identifier, *ast.IndexExpr, *ast.GetExpr:
		default:
			p.errorAtPrevious("Invalid assignment target.")
		}
		return &ast.AssignStmt{BaseNode: base, Target: expr, Value: value}
	}
	return expr
}

//
// Expressions (precedence climbing)
//

func (p *parser) expression() ast.Node {
	return p.parsePrecedence(precOr)
}

func (p *parser) parsePrecedence(minPrec precedence) ast.Node {
	left := p.unary()

	for {
		prec, ok := binaryPrecedence[p.currentToken.Kind]
		if !ok || prec < minPrec {
			break
		}
		base := p.base()
		p.advance()
		op := p.previousToken.Lexeme
		right := p.parsePrecedence(prec + 1)
		left = &ast.BinaryExpr{BaseNode: base, Op: op, Left: left, Right: right}
	}

	return left
}

func (p *parser) unary() ast.Node {
	if p.check(TokenKindBang) || p.check(TokenKindMinus) {
		base := p.base()
		p.advance()
		op := p.previousToken.Lexeme
		operand := p.unary()
		return &ast.UnaryExpr{BaseNode: base, Op: op, Operand: operand}
	}
	return p.call()
}

// call parses a primary expression followed by any chain of calls, index
// expressions, and property accesses.
func (p *parser) call() ast.Node {
	expr := p.primary()

	for {
		switch {
		case p.match(TokenKindLeftParen):
			base := p.base()
			args := p.argumentList()
			expr = &ast.CallExpr{BaseNode: base, Callee: expr, Args: args}
		case p.match(TokenKindDot):
			base := p.base()
			p.consume(TokenKindIdentifier, "Expected property name after '.'.")
			expr = &ast.GetExpr{BaseNode: base, Object: expr, Name: p.previousToken.Lexeme}
		case p.match(TokenKindLeftBracket):
			base := p.base()
			idx := p.expression()
			p.consume(TokenKindRightBracket, "Expected ']' after index expression.")
			expr = &ast.IndexExpr{BaseNode: base, Array: expr, Index: idx}
		default:
			return expr
		}
	}
}

func (p *parser) argumentList() []ast.Node {
	var args []ast.Node
	if p.check(TokenKindRightParen) {
		p.advance()
		return args
	}
	for {
		args = append(args, p.expression())
		if !p.match(TokenKindComma) {
			break
		}
	}
	p.consume(TokenKindRightParen, "Expected ')' after argument list.")
	return args
}

func (p *parser) primary() ast.Node {
	base := p.base()

	switch {
	case p.match(TokenKindTrue):
		return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralBool, Bool: true}
	case p.match(TokenKindFalse):
		return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralBool, Bool: false}
	case p.match(TokenKindUnitLit):
		return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralUnit}
	case p.match(TokenKindInteger):
		return p.integerLiteral(base)
	case p.match(TokenKindReal):
		return p.realLiteral(base)
	case p.match(TokenKindSemver):
		return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralSemver, String: p.previousToken.Lexeme}
	case p.match(TokenKindStringLit):
		return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralString, String: p.previousToken.Lexeme}
	case p.match(TokenKindLeftBracket):
		return p.arrayLiteral(base)
	case p.match(TokenKindNew):
		return p.instanceExpr(base)
	case p.match(TokenKindLeftParen):
		expr := p.groupedExpr()
		p.consume(TokenKindRightParen, "Expected ')' after expression.")
		return expr
	case p.match(TokenKindIdentifier):
		name := p.previousToken.Lexeme
		switch p.currentToken.Kind {
		case TokenKindIdentifier, TokenKindStringLit, TokenKindInteger, TokenKindReal,
			TokenKindSemver, TokenKindTrue, TokenKindFalse, TokenKindUnitLit:
			// No ordinary expression has an identifier directly followed by
			// another identifier or a literal: this is a pattern call whose
			// first fragment is the keyword just consumed.
			fragments := []ast.PatternFragment{{Keyword: name}}
			switch rest := p.patternCall(base).(type) {
			case *ast.PatternCallExpr:
				fragments = append(fragments, rest.Fragments...)
			default:
				fragments = append(fragments, ast.PatternFragment{Operand: rest})
			}
			return &ast.PatternCallExpr{BaseNode: base, Fragments: fragments}
		}
		return &ast.Identifier{BaseNode: base, Name: name}
	default:
		return p.patternCall(base)
	}
}

func (p *parser) integerLiteral(base ast.BaseNode) ast.Node {
	v, err := parseInt64(p.previousToken.Lexeme)
	if err != nil {
		p.errorAtPrevious("Invalid integer literal.")
	}
	return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralInt, Int: v}
}

func (p *parser) realLiteral(base ast.BaseNode) ast.Node {
	v, err := parseFloat64(p.previousToken.Lexeme)
	if err != nil {
		p.errorAtPrevious("Invalid real literal.")
	}
	return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralReal, Real: v}
}

func (p *parser) arrayLiteral(base ast.BaseNode) ast.Node {
	var elems []ast.Node
	if !p.check(TokenKindRightBracket) {
		for {
			elems = append(elems, p.expression())
			if !p.match(TokenKindComma) {
				break
			}
		}
	}
	p.consume(TokenKindRightBracket, "Expected ']' to close array literal.")
	return &ast.ArrayLiteralExpr{BaseNode: base, Elements: elems}
}

func (p *parser) instanceExpr(base ast.BaseNode) ast.Node {
	p.consume(TokenKindIdentifier, "Expected class name after 'new'.")
	className := p.previousToken.Lexeme
	p.consume(TokenKindLeftBrace, "Expected '{' to start instance literal.")

	var fields []ast.FieldInit
	for !p.check(TokenKindRightBrace) && !p.check(TokenKindEOF) {
		p.consume(TokenKindIdentifier, "Expected field name.")
		name := p.previousToken.Lexeme
		p.consume(TokenKindColonEqual, "Expected ':=' after field name.")
		value := p.expression()
		fields = append(fields, ast.FieldInit{Name: name, Value: value})
		if !p.match(TokenKindComma) {
			break
		}
	}
	p.consume(TokenKindRightBrace, "Expected '}' to close instance literal.")

	return &ast.InstanceExpr{BaseNode: base, ClassName: className, Fields: fields}
}

// patternCall parses a call-pattern expression: a sequence of one or more
// bare-keyword fragments and operand expressions (each a unary expression),
// e.g. `send "msg" to actor` or `wait 5 seconds`. It keeps consuming
// identifier fragments and operands until it hits a token that can't start
// either, then leaves the whole sequence unresolved for the compiler to
// match against the package index's call patterns. primary enters it only
// after an identifier, so a pattern call always begins with a keyword; a
// sequence that begins with an operand is not parsed as a pattern call.
func (p *parser) patternCall(base ast.BaseNode) ast.Node {
	var pf []ast.PatternFragment
	for {
		switch {
		case p.check(TokenKindIdentifier):
			p.advance()
			pf = append(pf, ast.PatternFragment{Keyword: p.previousToken.Lexeme})
		case p.canStartExpression():
			operand := p.unary()
			pf = append(pf, ast.PatternFragment{Operand: operand})
		default:
			if len(pf) == 0 {
				p.errorAtCurrent("Expected an expression.")
				return &ast.LiteralExpr{BaseNode: base, Kind: ast.LiteralUnit}
			}
			return &ast.PatternCallExpr{BaseNode: base, Fragments: pf}
		}

		if !p.canContinuePatternCall() {
			break
		}
	}

	if len(pf) == 1 && pf[0].Operand != nil {
		return pf[0].Operand
	}
	return &ast.PatternCallExpr{BaseNode: base, Fragments: pf}
}

// canStartExpression reports whether the current token could begin a
// primary/unary expression, without consuming it.
func (p *parser) canStartExpression() bool {
	switch p.currentToken.Kind {
	case TokenKindTrue, TokenKindFalse, TokenKindUnitLit, TokenKindInteger,
		TokenKindReal, TokenKindSemver, TokenKindStringLit, TokenKindLeftBracket,
		TokenKindNew, TokenKindLeftParen, TokenKindBang, TokenKindMinus:
		return true
	default:
		return false
	}
}

// canContinuePatternCall reports whether another fragment could follow the
// one just parsed, i.e. we haven't hit a statement/expression terminator.
func (p *parser) canContinuePatternCall() bool {
	switch p.currentToken.Kind {
	case TokenKindSemicolon, TokenKindRightParen, TokenKindRightBrace,
		TokenKindRightBracket, TokenKindComma, TokenKindColonEqual, TokenKindEOF,
		TokenKindLeftBrace:
		return false
	default:
		return p.check(TokenKindIdentifier) || p.canStartExpression()
	}
}

//
// Error reporting and recovery
//

func (p *parser) errorAtCurrent(message string) {
	p.errorAt(p.currentToken, message)
}

func (p *parser) errorAtPrevious(message string) {
	p.errorAt(p.previousToken, message)
}

func (p *parser) errorAt(tok *Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	ctErr := errs.NewCompileTime(p.fileName, tok.Line, "%v", message)
	ctErr.Lexeme = tok.Lexeme
	if tok.Kind == TokenKindEOF {
		ctErr.Lexeme = "end of file"
	}
	p.errors.Add(ctErr)
}

// synchronize skips tokens until it finds a plausible statement boundary,
// so that one syntax error doesn't cascade into a flood of spurious ones.
func (p *parser) synchronize() {
	p.panicMode = false

	for !p.check(TokenKindEOF) {
		if p.previousToken != nil && p.previousToken.Kind == TokenKindSemicolon {
			return
		}
		switch p.currentToken.Kind {
		case TokenKindClass, TokenKindFunc, TokenKindLet, TokenKindFor,
			TokenKindIf, TokenKindWhile, TokenKindReturn, TokenKindImport:
			return
		}
		p.advance()
	}
}
