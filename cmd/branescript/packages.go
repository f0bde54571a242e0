/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/packageindex"
)

// manifestConfig is the TOML shape of a --packages manifest: a flat list of
// packages, each exporting a flat list of functions. Mirrors the shape
// pkg/test's own TOML config uses for its suite files, applied here to
// package catalogues instead of test steps.
type manifestConfig struct {
	Packages []manifestPackage `toml:"package"`
}

type manifestPackage struct {
	Name      string             `toml:"name"`
	Version   string             `toml:"version"`
	Kind      string             `toml:"kind"`
	Functions []manifestFunction `toml:"function"`
}

type manifestFunction struct {
	Name           string              `toml:"name"`
	ReturnType     string              `toml:"return_type"`
	Parameters     []manifestParameter `toml:"parameter"`
	PatternPrefix  string              `toml:"pattern_prefix"`
	PatternInfix   []string            `toml:"pattern_infix"`
	PatternPostfix string              `toml:"pattern_postfix"`
}

type manifestParameter struct {
	Name     string `toml:"name"`
	DataType string `toml:"data_type"`
	Optional bool   `toml:"optional"`
}

// loadPackageManifest reads a TOML package manifest from path and returns a
// ready-to-use packageindex.PackageIndex, for the --packages flag shared by
// run/build/disassemble/repl. A function carrying none of the three
// pattern fields is registered with a nil CallPattern, meaning it is only
// callable as an ordinary `Func(args...)` call by the bare name its
// package's import binds.
func loadPackageManifest(path string) (packageindex.PackageIndex, errs.Error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewBadUsage("could not read package manifest %v: %v", path, err)
	}

	var cfg manifestConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, errs.NewBadUsage("could not parse package manifest %v: %v", path, err)
	}

	idx := packageindex.NewStaticIndex()
	for _, pkg := range cfg.Packages {
		info := &packageindex.PackageInfo{
			Name:    pkg.Name,
			Version: pkg.Version,
			Kind:    pkg.Kind,
		}
		for _, fn := range pkg.Functions {
			desc := packageindex.FunctionDesc{
				Name:       fn.Name,
				ReturnType: fn.ReturnType,
			}
			for _, p := range fn.Parameters {
				desc.Parameters = append(desc.Parameters, packageindex.Parameter{
					Name:     p.Name,
					DataType: p.DataType,
					Optional: p.Optional,
				})
			}
			if fn.PatternPrefix != "" || fn.PatternPostfix != "" || len(fn.PatternInfix) > 0 {
				desc.Pattern = &packageindex.CallPattern{
					Prefix:  fn.PatternPrefix,
					Infix:   fn.PatternInfix,
					Postfix: fn.PatternPostfix,
				}
			}
			info.Functions = append(info.Functions, desc)
		}
		idx.Register(info)
	}

	return idx, nil
}

// resolvePackageIndex loads a PackageIndex from manifestPath, or returns
// emptyPackageIndex{} if manifestPath is empty, exiting the process if the
// manifest can't be read or parsed. Shared by every subcommand that
// compiles a script and accepts a --packages flag.
func resolvePackageIndex(manifestPath string) packageindex.PackageIndex {
	if manifestPath == "" {
		return emptyPackageIndex{}
	}
	idx, err := loadPackageManifest(manifestPath)
	reportAndExitOnError(err)
	return idx
}

// emptyPackageIndex resolves no packages at all: Get always reports "not
// found". Used as the default PkgIndex so a script with no import
// statements still compiles with no --packages manifest, and one that does
// import something fails with an ordinary compile error instead of a nil
// interface panic.
type emptyPackageIndex struct{}

func (emptyPackageIndex) Get(name string, version *string) (*packageindex.PackageInfo, bool) {
	return nil, false
}
