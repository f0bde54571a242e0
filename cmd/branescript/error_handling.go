/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"github.com/rs/zerolog/log"

	"github.com/brane-lang/branescript/pkg/errs"
)

// reportAndExit logs err at debug level (for --verbose runs, where the
// plain message printed by errs.ReportAndExit isn't enough to see which
// subcommand and arguments produced it) and then reports and exits exactly
// as errs.ReportAndExit does. It's fine if err is nil: this just means a
// successful run.
func reportAndExit(err error) {
	if err != nil {
		log.Debug().Str("exit_reason", err.Error()).Msg("exiting with error")
	}
	errs.ReportAndExit(err)
}

// reportAndExitOnError is reportAndExit, but a no-op if err is nil.
func reportAndExitOnError(err error) {
	if err == nil {
		return
	}
	reportAndExit(err)
}
