/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package errs defines the error taxonomy shared by every stage of
// BraneScript: lexing, parsing, compiling, and running. Every error
// implements the Error interface, which pairs the usual error message with
// a process exit code, so the CLI layer can report and exit consistently
// without caring which stage produced the failure.
package errs

import (
	"fmt"
	"strings"
)

// Error is a BraneScript error.
type Error interface {
	error
	ExitCode() int
}

//
// CompileTime
//

// CompileTime represents a single lex-time or parse-time or resolve-time
// error, tied to a specific source location.
type CompileTime struct {
	// Message is a user-friendly description of what went wrong.
	Message string

	// FileName is the source file where the error was detected. Empty for
	// single-script compiles with no associated file.
	FileName string

	// Line is the source line where the error was detected. Negative if not
	// tied to a specific line.
	Line int

	// Lexeme is the offending lexeme, if any.
	Lexeme string
}

// NewCompileTime creates a CompileTime error tied to a specific line.
func NewCompileTime(fileName string, line int, format string, a ...any) *CompileTime {
	return &CompileTime{
		Message:  fmt.Sprintf(format, a...),
		FileName: fileName,
		Line:     line,
	}
}

// NewCompileTimeWithoutLine creates a CompileTime error not tied to any
// specific line (e.g. "file not found").
func NewCompileTimeWithoutLine(fileName, format string, a ...any) *CompileTime {
	return &CompileTime{
		Message:  fmt.Sprintf(format, a...),
		FileName: fileName,
		Line:     -1,
	}
}

// Error fulfills the error interface.
func (e *CompileTime) Error() string {
	line := ""
	if e.Line > 0 {
		line = fmt.Sprintf(":%v", e.Line)
	}
	at := ""
	if e.Lexeme != "" {
		if e.Lexeme == "end of file" {
			at = fmt.Sprintf(" at %v", e.Lexeme)
		} else {
			at = fmt.Sprintf(" at `%v`", e.Lexeme)
		}
	}
	name := e.FileName
	if name == "" {
		name = "<script>"
	}
	return fmt.Sprintf("%v%v%v: %v", name, line, at, e.Message)
}

// ExitCode fulfills the Error interface.
func (e *CompileTime) ExitCode() int {
	return StatusCodeCompileTimeError
}

//
// CompileTimeCollection
//

// CompileTimeCollection bundles every CompileTime error found while
// compiling, so that one compile pass can report everything wrong with a
// script instead of aborting on the very first mistake.
type CompileTimeCollection struct {
	Errors []*CompileTime
}

// Add appends err to the collection. A no-op if err is nil.
func (e *CompileTimeCollection) Add(err *CompileTime) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

// AddMany appends every error in other to e.
func (e *CompileTimeCollection) AddMany(other *CompileTimeCollection) {
	if other == nil {
		return
	}
	e.Errors = append(e.Errors, other.Errors...)
}

// IsEmpty reports whether the collection has zero errors.
func (e *CompileTimeCollection) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Error fulfills the error interface, one line per error.
func (e *CompileTimeCollection) Error() string {
	s := strings.Builder{}
	s.WriteString("compile-time errors:\n")
	for _, err := range e.Errors {
		s.WriteString(err.Error())
		s.WriteByte('\n')
	}
	return s.String()
}

// ExitCode fulfills the Error interface.
func (e *CompileTimeCollection) ExitCode() int {
	return StatusCodeCompileTimeError
}

//
// Runtime
//

// RuntimeKind classifies a Runtime error so callers can branch on it
// without string matching (e.g. deciding whether to retry an executor call).
type RuntimeKind int

const (
	// RuntimeKindGeneric covers TypeError-shaped opcode operand mismatches
	// that don't warrant their own constant.
	RuntimeKindGeneric RuntimeKind = iota
	RuntimeKindDivisionByZero
	RuntimeKindIndexOutOfBounds
	RuntimeKindUndefinedGlobal
	RuntimeKindExecutorFailed
	RuntimeKindCancelled
)

// Runtime is an error that happened while a BraneScript program was running.
type Runtime struct {
	Kind    RuntimeKind
	Message string

	// StackTrace is a human-readable rendering of the call frames active
	// when the error was raised, innermost first. Empty if unavailable.
	StackTrace string
}

// NewRuntime creates a generic Runtime error.
func NewRuntime(format string, a ...any) *Runtime {
	return &Runtime{
		Kind:    RuntimeKindGeneric,
		Message: fmt.Sprintf(format, a...),
	}
}

// NewRuntimeKind creates a Runtime error of a specific kind.
func NewRuntimeKind(kind RuntimeKind, format string, a ...any) *Runtime {
	return &Runtime{
		Kind:    kind,
		Message: fmt.Sprintf(format, a...),
	}
}

// Error fulfills the error interface.
func (e *Runtime) Error() string {
	if e.StackTrace == "" {
		return "runtime error: " + e.Message
	}
	return "runtime error: " + e.Message + "\n" + e.StackTrace
}

// ExitCode fulfills the Error interface.
func (e *Runtime) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// ICE
//

// ICE is an Internal error -- used to report that the compiler or VM found
// itself in a state it should never be in. Always a bug in this
// implementation, never a user mistake.
type ICE struct {
	Message string
}

// NewICE creates an ICE.
func NewICE(format string, a ...any) *ICE {
	return &ICE{Message: fmt.Sprintf(format, a...)}
}

// Error fulfills the error interface.
func (e *ICE) Error() string {
	return "internal error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *ICE) ExitCode() int {
	return StatusCodeICE
}

//
// TestSuite
//

// TestSuite is an error raised by the golden-file test suite runner
// (pkg/test) when a case's actual behavior doesn't match its test.toml
// expectations -- wrong exit code, an output line that doesn't match, or an
// expected error message pattern that didn't appear.
type TestSuite struct {
	// Case identifies which test case failed, usually the directory holding
	// its test.toml.
	Case string

	Message string
}

// NewTestSuite creates a TestSuite error for the given case.
func NewTestSuite(testCase, format string, a ...any) *TestSuite {
	return &TestSuite{Case: testCase, Message: fmt.Sprintf(format, a...)}
}

// Error fulfills the error interface.
func (e *TestSuite) Error() string {
	return fmt.Sprintf("test case %v failed: %v", e.Case, e.Message)
}

// ExitCode fulfills the Error interface.
func (e *TestSuite) ExitCode() int {
	return StatusCodeTestSuiteFailure
}

//
// BadUsage
//

// BadUsage is an error caused by incorrect use of the CLI tool itself (bad
// flags, wrong number of arguments), as opposed to a problem with the script
// being compiled or run.
type BadUsage struct {
	Message string
}

// NewBadUsage creates a BadUsage error.
func NewBadUsage(format string, a ...any) *BadUsage {
	return &BadUsage{Message: fmt.Sprintf(format, a...)}
}

// Error fulfills the error interface.
func (e *BadUsage) Error() string {
	return "usage error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *BadUsage) ExitCode() int {
	return StatusCodeBadUsage
}
