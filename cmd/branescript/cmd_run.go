/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brane-lang/branescript/pkg/branescript"
	"github.com/brane-lang/branescript/pkg/romutil"
)

// flagRunPackages is the value of the `run` command's --packages flag.
var flagRunPackages string

var runCmd = &cobra.Command{
	Use:   "run <script-file>",
	Short: "Compiles and runs a BraneScript program",
	Long: `Compiles and runs a BraneScript program to completion, awaiting any
package function calls it makes through the default Executor and running
parallel blocks concurrently. The default Executor rejects every call as
unsupported; --packages only describes which packages and functions exist.`,
	Args: cobra.ExactArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		opts := branescript.Options{PkgIndex: resolvePackageIndex(flagRunPackages)}

		log.Debug().Str("file", args[0]).Msg("compiling")
		m, err := branescript.CompileFile(args[0], opts)
		reportAndExitOnError(err)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Debug().Str("file", args[0]).Msg("running")
		value, has, err := m.Run(ctx, romutil.StdMouth())
		reportAndExitOnError(err)

		if has {
			log.Debug().Str("result", value.String()).Msg("program finished")
		}
		reportAndExit(nil)
	},
}

func init() {
	runCmd.Flags().StringVar(&flagRunPackages, "packages", "",
		"Path to a TOML manifest describing the external packages this program may import")
}
