/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package backend

import (
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// A compilationContext stores information needed throughout both
// compilation passes: the declaration-registration pass populates it, the
// code-generation pass consults it to resolve names forward-declared
// anywhere in the program (mirrors a compilationContext, whose
// sole job was the same kind of name-to-chunk-index pre-registration, here
// generalized to functions, classes and imports).
type compilationContext struct {
	// funcNameToChunk maps a top-level or nested function's name to the
	// index of the Chunk its body compiles into.
	funcNameToChunk map[string]int

	// funcNameToHandle maps a function's name to the heap handle of its
	// Function object, so a later reference to the name (a call, or another
	// function closing over it) can push a FunctionRef constant without
	// re-deriving the handle.
	funcNameToHandle map[string]bytecode.Handle

	// classNameToHandle maps a class's name to the heap handle of its Class
	// object. The object exists (with an empty method table) from the end
	// of the declaration pass onward, so a class may reference itself (or
	// another class declared later in the same program) from a method body.
	classNameToHandle map[string]bytecode.Handle

	// importedPackages maps an imported package's name to the PackageInfo
	// the PackageIndex returned for it, used to resolve PatternCallExpr
	// fragments during code generation.
	importedPackages map[string]*packageindex.PackageInfo

	// importOrder records package names in the order they were imported,
	// since pattern-call ambiguity across packages is broken by import
	// declaration order (ties are resolved by declaration order,
	// extended here to the multi-package case).
	importOrder []string
}

// newCompilationContext creates an empty compilationContext.
func newCompilationContext() *compilationContext {
	return &compilationContext{
		funcNameToChunk:   map[string]int{},
		funcNameToHandle:  map[string]bytecode.Handle{},
		classNameToHandle: map[string]bytecode.Handle{},
		importedPackages:  map[string]*packageindex.PackageInfo{},
	}
}
