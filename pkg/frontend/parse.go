/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package frontend

import (
	"os"

	"github.com/brane-lang/branescript/pkg/ast"
	"github.com/brane-lang/branescript/pkg/errs"
)

// ParseFile parses the BraneScript source file at fileName and returns its
// AST, having run the semantic checks (duplicate declarations, break/
// continue placement, try/catch rejection) in addition to the grammar
// itself.
func ParseFile(fileName string) (*ast.Program, error) {
	source, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errs.NewCompileTimeWithoutLine(fileName, "%v", err)
	}
	return ParseSource(fileName, string(source))
}

// ParseSource parses in-memory BraneScript source, attributing errors to
// fileName (which may be empty, e.g. when compiling a script handed to the
// CLI on stdin or embedded by a host program).
func ParseSource(fileName, source string) (*ast.Program, error) {
	prog, err := Parse(fileName, source)
	if err != nil {
		return nil, err
	}

	sc := NewSemanticChecker(fileName)
	prog.Walk(sc)
	if !sc.Errors().IsEmpty() {
		return nil, sc.Errors()
	}

	return prog, nil
}
