/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package branescript_test

import (
	"context"
	"strings"
	"testing"

	"github.com/brane-lang/branescript/pkg/branescript"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/executor"
	"github.com/brane-lang/branescript/pkg/packageindex"
	"github.com/brane-lang/branescript/pkg/vm"
)

// weatherIndex resolves a single "weather" package exporting one pattern-
// callable function: `get <city>`.
type weatherIndex struct{}

func (weatherIndex) Get(name string, version *string) (*packageindex.PackageInfo, bool) {
	if name != "weather" {
		return nil, false
	}
	return &packageindex.PackageInfo{
		Name:    "weather",
		Version: "1.0.0",
		Kind:    "oas",
		Functions: []packageindex.FunctionDesc{
			{
				Name:       "get_weather",
				Parameters: []packageindex.Parameter{{Name: "city", DataType: "string"}},
				ReturnType: "string",
				Pattern:    &packageindex.CallPattern{Prefix: "get"},
			},
		},
	}, true
}

// recordingExecutor answers every call with Unit and records the calls it
// served, for assertions. failWith, if set, makes every call fail with that
// error instead.
type recordingExecutor struct {
	calls    []executor.VmCall
	failWith error
}

func (r *recordingExecutor) Execute(ctx context.Context, call executor.VmCall) (bytecode.Value, error) {
	r.calls = append(r.calls, call)
	if r.failWith != nil {
		return bytecode.Unit, r.failWith
	}
	return bytecode.Unit, nil
}

func compileMachine(t *testing.T, source string, opts branescript.Options) *branescript.Machine {
	t.Helper()
	m, err := branescript.Compile("test.bs", source, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return m
}

func TestRunPlainArithmeticNeedsNoExecutor(t *testing.T) {
	m := compileMachine(t, "return 2 + 3 * 4;", branescript.Options{})
	value, has, err := m.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !has {
		t.Fatal("expected a value, got none")
	}
	if value.AsInteger() != 14 {
		t.Errorf("value = %v, want 14", value.AsInteger())
	}
}

func TestRunAwaitsExecutorOnPatternCall(t *testing.T) {
	rec := &recordingExecutor{}
	m := compileMachine(t, `
		import weather;
		get "paris";
	`, branescript.Options{PkgIndex: weatherIndex{}, Executor: rec})

	_, _, err := m.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected exactly one executor call, got %v", len(rec.calls))
	}
	call := rec.calls[0]
	if call.Package != "weather" || call.Function != "get_weather" {
		t.Errorf("call = %+v, want weather.get_weather", call)
	}
	if !call.Arguments["city"].IsObjectRef() {
		t.Errorf("expected city argument to be a heap string reference")
	}
}

func TestRunSurfacesExecutorFailureAsRuntimeError(t *testing.T) {
	rec := &recordingExecutor{failWith: executor.NewError(executor.ExecutionFailed, "backend unreachable")}
	m := compileMachine(t, `
		import weather;
		get "paris";
	`, branescript.Options{PkgIndex: weatherIndex{}, Executor: rec})

	_, _, err := m.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected the executor's failure to surface as a runtime error")
	}
	if !strings.Contains(err.Error(), "backend unreachable") {
		t.Errorf("error = %v, want it to mention the executor's message", err)
	}
}

func TestCallEntryPointRunsOneFunctionOnly(t *testing.T) {
	m := compileMachine(t, `
		func add(a, b) {
			return a + b;
		}
		let unused := 999;
	`, branescript.Options{})

	value, has, err := m.Call(context.Background(), nil, "add", []bytecode.Value{bytecode.Integer(2), bytecode.Integer(3)})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !has || value.AsInteger() != 5 {
		t.Errorf("value = %v, has = %v, want 5, true", value, has)
	}
}

func TestRunExecutesParallelBranches(t *testing.T) {
	m := compileMachine(t, `
		parallel {
			{ 1 + 1; }
			{ 2 + 2; }
		}
	`, branescript.Options{VM: vm.Options{AlwaysReturn: true}})

	value, has, err := m.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !has {
		t.Fatal("expected a value")
	}
	if !value.IsObjectRef() {
		t.Errorf("expected an array object reference, got kind %v", value.Kind())
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	rec := &recordingExecutor{}
	m := compileMachine(t, `
		import weather;
		get "paris";
	`, branescript.Options{PkgIndex: weatherIndex{}, Executor: rec})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.Run(ctx, nil)
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestDisassembleWritesEveryChunk(t *testing.T) {
	m := compileMachine(t, `
		func fib(n) {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
		fib(5);
	`, branescript.Options{})

	var buf strings.Builder
	m.Disassemble(&buf)
	if !strings.Contains(buf.String(), "fib") {
		t.Error("expected disassembly output to mention fib")
	}
}
