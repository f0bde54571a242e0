/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brane-lang/branescript/pkg/branescript"
)

// flagBuildPackages is the value of the `build` command's --packages flag.
var flagBuildPackages string

var buildCmd = &cobra.Command{
	Use:   "build <script-file>",
	Short: "Compiles a BraneScript program without running it",
	Long: `Compiles a BraneScript program and reports any lex/parse/resolve
errors, without running it. Useful for checking a script (and the import
statements it makes against a --packages manifest) in CI, before ever
wiring up a real Executor.`,
	Args: cobra.ExactArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		opts := branescript.Options{PkgIndex: resolvePackageIndex(flagBuildPackages)}

		log.Debug().Str("file", args[0]).Msg("compiling")
		m, err := branescript.CompileFile(args[0], opts)
		reportAndExitOnError(err)

		fmt.Printf("%v: compiled OK, %v chunk(s)\n", args[0], len(m.Program.Chunks))
		reportAndExit(nil)
	},
}

func init() {
	buildCmd.Flags().StringVar(&flagBuildPackages, "packages", "",
		"Path to a TOML manifest describing the external packages this program may import")
}
