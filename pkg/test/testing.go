/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package test

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/brane-lang/branescript/pkg/branescript"
	"github.com/brane-lang/branescript/pkg/errs"
	"github.com/brane-lang/branescript/pkg/romutil"
)

// config is the structure mirroring a test case's test.toml file.
type config struct {
	SourceFile    string
	Output        []string
	ExitCode      int
	ErrorMessages []string

	Steps []step `toml:"step"`
}

// step is a single step in a test case, run in order against a fresh
// Machine each time. A case with no explicit [[step]] entries gets one
// implicit step built from the top-level fields.
type step struct {
	SourceFile    string
	Output        []string
	ExitCode      int
	ErrorMessages []string
}

// ExecuteSuite runs every test.toml case found under suitePath, recursively.
func ExecuteSuite(suitePath string) errs.Error {
	err := romutil.ForEachMatchingFileRecursive(suitePath, regexp.MustCompile(`^test\.toml$`),
		func(configPath string) error {
			return runCase(configPath)
		},
	)
	if err == nil {
		return nil
	}
	if asErr, ok := err.(errs.Error); ok {
		return asErr
	}
	return errs.NewTestSuite(suitePath, "%v", err)
}

// runCase runs the test case defined at configPath.
func runCase(configPath string) errs.Error {
	testCase := path.Dir(configPath)

	testConf, err := readConfig(configPath)
	if err != nil {
		return err
	}
	canonicalizeConfig(testConf)

	for _, s := range testConf.Steps {
		scriptPath := path.Join(testCase, s.SourceFile)
		mouth := &romutil.MemoryMouth{}

		m, compileErr := branescript.CompileFile(scriptPath, branescript.Options{})

		var runErr error
		if compileErr == nil {
			_, _, runErr = m.Run(context.Background(), mouth)
			mouth.Flush()
		} else {
			runErr = compileErr
		}

		exitCode := 0
		if asErr, ok := runErr.(errs.Error); ok {
			exitCode = asErr.ExitCode()
		}
		if exitCode != s.ExitCode {
			return errs.NewTestSuite(testCase, "expected exit code %v, got %v", s.ExitCode, exitCode)
		}

		for _, expectedErrMsg := range s.ErrorMessages {
			re, reErr := regexp.Compile(expectedErrMsg)
			if reErr != nil {
				return errs.NewTestSuite(testCase, "compiling regexp '%v': %v", expectedErrMsg, reErr)
			}
			if runErr == nil || !re.MatchString(runErr.Error()) {
				return errs.NewTestSuite(testCase, "expected error message matching '%v', got %v", expectedErrMsg, runErr)
			}
		}

		if runErr != nil {
			// An error was expected and matched above (or no ErrorMessages
			// were given, in which case the caller only cared about the
			// exit code). Either way, output doesn't matter for this step.
			continue
		}

		if len(s.Output) != len(mouth.Outputs) {
			return errs.NewTestSuite(testCase, "got %v output line(s), expected %v", len(mouth.Outputs), len(s.Output))
		}
		for i, actual := range mouth.Outputs {
			if actual != s.Output[i] {
				return errs.NewTestSuite(testCase, "at output %v: expected %q, got %q", i, s.Output[i], actual)
			}
		}
	}

	fmt.Printf("Test case passed: %v.\n", testCase)
	return nil
}

// readConfig reads a test configuration from a TOML file.
func readConfig(path string) (*config, errs.Error) {
	tomlSource, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewTestSuite(path, "%v", err)
	}
	cfg := &config{}
	if err := toml.Unmarshal(tomlSource, cfg); err != nil {
		return nil, errs.NewTestSuite(path, "%v", err)
	}
	return cfg, nil
}

// canonicalizeConfig makes sure testConf has at least one step, and that
// every explicit step's SourceFile defaults to the top-level one when left
// unset. No other step field is inherited from the top level.
func canonicalizeConfig(testConf *config) {
	if testConf.SourceFile == "" {
		testConf.SourceFile = "main.bs"
	}

	if len(testConf.Steps) == 0 {
		testConf.Steps = append(testConf.Steps, step{
			SourceFile:    testConf.SourceFile,
			Output:        testConf.Output,
			ExitCode:      testConf.ExitCode,
			ErrorMessages: testConf.ErrorMessages,
		})
		return
	}

	for i, s := range testConf.Steps {
		if s.SourceFile == "" {
			s.SourceFile = testConf.SourceFile
		}
		testConf.Steps[i] = s
	}
}
