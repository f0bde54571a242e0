/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brane-lang/branescript/pkg/branescript"
)

// compileEmptyMachineForTest returns a Machine with a live Heap, for tests
// that only need somewhere to allocate a string and don't care what the
// program itself does.
func compileEmptyMachineForTest(t *testing.T) *branescript.Machine {
	t.Helper()
	m, err := branescript.Compile("test.bs", "let _unused := 0;", branescript.Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return m
}

const testManifest = `
[[package]]
name = "weather"
version = "1.0.0"
kind = "oas"

[[package.function]]
name = "get_weather"
return_type = "string"
pattern_prefix = "get"

[[package.function.parameter]]
name = "city"
data_type = "string"
`

func writeTestManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packages.toml")
	if err := os.WriteFile(path, []byte(testManifest), 0o644); err != nil {
		t.Fatalf("writing test manifest: %v", err)
	}
	return path
}

func TestLoadPackageManifestRegistersFunctionsAndPattern(t *testing.T) {
	idx, err := loadPackageManifest(writeTestManifest(t))
	if err != nil {
		t.Fatalf("loadPackageManifest failed: %v", err)
	}

	info, ok := idx.Get("weather", nil)
	if !ok {
		t.Fatal("expected weather package to be registered")
	}
	if info.Version != "1.0.0" || info.Kind != "oas" {
		t.Errorf("info = %+v, want version 1.0.0 kind oas", info)
	}
	if len(info.Functions) != 1 {
		t.Fatalf("expected exactly one function, got %v", len(info.Functions))
	}

	fn := info.Functions[0]
	if fn.Name != "get_weather" || fn.ReturnType != "string" {
		t.Errorf("fn = %+v, want get_weather returning string", fn)
	}
	if fn.Pattern == nil || fn.Pattern.Prefix != "get" {
		t.Errorf("fn.Pattern = %+v, want Prefix \"get\"", fn.Pattern)
	}
	if len(fn.Parameters) != 1 || fn.Parameters[0].Name != "city" {
		t.Errorf("fn.Parameters = %+v, want one parameter named city", fn.Parameters)
	}
}

func TestLoadPackageManifestRejectsMissingFile(t *testing.T) {
	_, err := loadPackageManifest(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing manifest file")
	}
}

func TestResolvePackageIndexWithEmptyPathReturnsEmptyIndex(t *testing.T) {
	idx := resolvePackageIndex("")
	if _, ok := idx.Get("anything", nil); ok {
		t.Error("expected an empty manifest path to yield an index with no packages")
	}
}

func TestParseReplArgClassifiesScalars(t *testing.T) {
	m := compileEmptyMachineForTest(t)

	if v := parseReplArg(m, "42"); !v.IsInteger() || v.AsInteger() != 42 {
		t.Errorf("parseReplArg(42) = %v, want integer 42", v)
	}
	if v := parseReplArg(m, "3.5"); !v.IsReal() || v.AsReal() != 3.5 {
		t.Errorf("parseReplArg(3.5) = %v, want real 3.5", v)
	}
	if v := parseReplArg(m, "true"); !v.IsBoolean() || !v.AsBoolean() {
		t.Errorf("parseReplArg(true) = %v, want boolean true", v)
	}
	if v := parseReplArg(m, "paris"); !v.IsObjectRef() {
		t.Errorf("parseReplArg(paris) = %v, want an object reference", v)
	}
}
