/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor_test

import (
	"context"
	"testing"

	"github.com/brane-lang/branescript/pkg/executor"
)

func TestNoExtExecutorRejectsEveryCall(t *testing.T) {
	var e executor.Executor = executor.NoExtExecutor{}
	_, err := e.Execute(context.Background(), executor.VmCall{Package: "weather", Function: "forecast"})
	if err == nil {
		t.Fatal("expected NoExtExecutor to reject the call")
	}
	execErr, ok := err.(*executor.Error)
	if !ok {
		t.Fatalf("expected a *executor.Error, got %T", err)
	}
	if execErr.Kind != executor.Unsupported {
		t.Errorf("Kind = %v, want Unsupported", execErr.Kind)
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[executor.ErrorKind]string{
		executor.NotFound:          "not found",
		executor.InvalidArguments:  "invalid arguments",
		executor.ExecutionFailed:   "execution failed",
		executor.Cancelled:         "cancelled",
		executor.Unsupported:       "unsupported",
		executor.ErrorKind(99):     "<unknown executor error kind>",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(kind), got, want)
		}
	}
}
