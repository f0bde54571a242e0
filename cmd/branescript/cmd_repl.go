/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brane-lang/branescript/pkg/branescript"
	"github.com/brane-lang/branescript/pkg/bytecode"
	"github.com/brane-lang/branescript/pkg/romutil"
)

// flagReplPackages is the value of the `repl` command's --packages flag.
var flagReplPackages string

var replCmd = &cobra.Command{
	Use:   "repl <script-file> <function> [arg...]",
	Short: "Compiles a program and calls a single one of its functions",
	Long: `Compiles a BraneScript program and invokes one global function by
name with the given arguments, without running the rest of the program --
the one-shot style of invocation the VM façade's own Call method exists
for, useful for poking at one function from a shell without writing a
throwaway call site into the script itself.`,
	Args: cobra.MinimumNArgs(2),

	Run: func(cmd *cobra.Command, args []string) {
		scriptFile, function, rawArgs := args[0], args[1], args[2:]

		opts := branescript.Options{PkgIndex: resolvePackageIndex(flagReplPackages)}

		log.Debug().Str("file", scriptFile).Msg("compiling")
		m, err := branescript.CompileFile(scriptFile, opts)
		reportAndExitOnError(err)

		callArgs := make([]bytecode.Value, len(rawArgs))
		for i, raw := range rawArgs {
			callArgs[i] = parseReplArg(m, raw)
		}

		log.Debug().Str("function", function).Int("args", len(callArgs)).Msg("calling")
		value, has, err := m.Call(context.Background(), romutil.StdMouth(), function, callArgs)
		reportAndExitOnError(err)

		if has {
			fmt.Println(value.DebugString(m.DebugInfo))
		}
		reportAndExit(nil)
	},
}

func init() {
	replCmd.Flags().StringVar(&flagReplPackages, "packages", "",
		"Path to a TOML manifest describing the external packages this program may import")
}

// parseReplArg converts one command-line argument into a Value: an integer
// or real literal if it parses as one, a boolean if it's exactly "true" or
// "false", and a heap string otherwise. There's no syntax for passing an
// array, object or function reference this way -- repl is for poking at
// functions over scalars, not for driving arbitrary call graphs.
func parseReplArg(m *branescript.Machine, raw string) bytecode.Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return bytecode.Integer(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return bytecode.Real(f)
	}
	if raw == "true" || raw == "false" {
		return bytecode.Boolean(raw == "true")
	}
	handle := m.Heap.NewString(raw)
	return bytecode.ObjectRef(handle)
}
