/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package test runs BraneScript's golden-file script suites: one test.toml
// per case, describing a script to compile and run, the output it should
// print, and the exit code and error messages it should fail with (if any).
// Kept separate from the packages it drives so the harness logic itself
// stays out of pkg/branescript.
package test
