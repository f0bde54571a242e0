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

	"github.com/spf13/cobra"

	"github.com/brane-lang/branescript/pkg/branescript"
)

// flagDisassemblePackages is the value of the `disassemble` command's
// --packages flag.
var flagDisassemblePackages string

var disassembleCmd = &cobra.Command{
	Use:   "disassemble <script-file>",
	Short: "Compiles a BraneScript program and prints its bytecode",
	Long: `Compiles a BraneScript program and prints a human-readable
disassembly of every compiled chunk, annotated with source line numbers
when debug info is available. Needs no Executor: disassembly never runs
the program.`,
	Args: cobra.ExactArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		opts := branescript.Options{PkgIndex: resolvePackageIndex(flagDisassemblePackages)}

		m, err := branescript.CompileFile(args[0], opts)
		reportAndExitOnError(err)

		fmt.Printf("Disassembling %s\n", args[0])
		fmt.Printf("%v chunk(s), %v constant(s)\n\n", len(m.Program.Chunks), len(m.Program.Constants))
		m.Disassemble(os.Stdout)
		reportAndExit(nil)
	},
}

func init() {
	disassembleCmd.Flags().StringVar(&flagDisassemblePackages, "packages", "",
		"Path to a TOML manifest describing the external packages this program may import")
}
