/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package errs

import (
	"errors"
	"fmt"
	"os"
)

// ReportAndExit reports err to the end user (if any) and exits the process
// with the exit code appropriate for its kind. A nil err exits successfully.
func ReportAndExit(err error) {
	badUsageError := &BadUsage{}
	compTimeError := &CompileTime{}
	compTimeColl := &CompileTimeCollection{}
	runtimeError := &Runtime{}
	testSuiteError := &TestSuite{}
	iceErr := &ICE{}

	switch {
	case err == nil:
		os.Exit(StatusCodeSuccess)

	case errors.As(err, &badUsageError):
		fmt.Fprintf(os.Stderr, "%v\n", badUsageError)
		os.Exit(StatusCodeBadUsage)

	case errors.As(err, &compTimeColl):
		fmt.Fprintf(os.Stderr, "%v", compTimeColl)
		os.Exit(StatusCodeCompileTimeError)

	case errors.As(err, &compTimeError):
		fmt.Fprintf(os.Stderr, "%v\n", compTimeError)
		os.Exit(StatusCodeCompileTimeError)

	case errors.As(err, &runtimeError):
		fmt.Fprintf(os.Stderr, "%v\n", runtimeError)
		os.Exit(StatusCodeRuntimeError)

	case errors.As(err, &testSuiteError):
		fmt.Fprintf(os.Stderr, "%v\n", testSuiteError)
		os.Exit(StatusCodeTestSuiteFailure)

	case errors.As(err, &iceErr):
		fmt.Fprintf(os.Stderr, "%v\n", iceErr)
		os.Exit(StatusCodeICE)

	default:
		fmt.Fprintf(os.Stderr, "internal error: unexpected error of type %T: %v\n", err, err)
		os.Exit(StatusCodeICE)
	}
}
