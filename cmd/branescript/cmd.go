/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// flagVerbose is the value of the root --verbose flag, shared by every
// subcommand. It is the only thing that ever touches log.Logger's level:
// nothing below cmd/branescript writes to stdout/stderr on its own, so this
// is the single knob for how chatty a run is.
var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:          "branescript",
	SilenceUsage: true,
	Short:        "branescript compiles and runs BraneScript workflow scripts",
	Long: `branescript is the reference command-line tool for BraneScript, a
small scripting language for orchestrating calls to external package
functions. It compiles scripts to bytecode and runs them on a suspendable
VM, bridging out to whatever Executor the host environment provides.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Log debug-level detail about compilation and execution to stderr")

	rootCmd.AddCommand(runCmd, buildCmd, disassembleCmd, replCmd)

	cobra.OnInitialize(initLogging)
}

// initLogging configures the package-level zerolog logger according to
// flagVerbose. Called once, after flag parsing, before any subcommand runs.
func initLogging() {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Execute runs the root command, reporting any cobra-level failure (bad
// flags, unknown subcommand) and exiting non-zero. Failures from within a
// subcommand's own Run func are reported via errs.ReportAndExit instead, so
// by the time Execute itself returns an error it is always a usage mistake
// cobra caught on its own.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
