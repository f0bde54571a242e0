/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package errs

// Process exit codes. Kept as a flat list rather than an enum type because
// they are consumed at the very edge of the program (os.Exit) and never
// branched on internally.
const (
	// StatusCodeSuccess indicates a successful run.
	StatusCodeSuccess = 0

	// StatusCodeCompileTimeError indicates a lex/parse/resolve error.
	StatusCodeCompileTimeError = 1

	// StatusCodeRuntimeError indicates an error raised while running a
	// compiled script.
	StatusCodeRuntimeError = 2

	// StatusCodeBadUsage indicates bad CLI usage (wrong flags/arguments).
	StatusCodeBadUsage = 50

	// StatusCodeTestSuiteFailure indicates a golden-file test suite found a
	// case that didn't behave as its test.toml expected.
	StatusCodeTestSuiteFailure = 60

	// StatusCodeICE indicates an internal error -- a bug in this tool.
	StatusCodeICE = 125
)
