/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package test

import (
	"testing"
)

// TestRunSuite runs the golden-file BraneScript test suite. This is not a
// conventional unit test -- it's a way to run end-to-end script suites (and
// pick up code coverage for them) through the ordinary `go test` path:
//
//	go test -coverpkg=github.com/brane-lang/branescript/... -covermode=count -coverprofile=cover.out ./...
//	go tool cover -html=cover.out
func TestRunSuite(t *testing.T) {
	if err := ExecuteSuite("../../test/suite"); err != nil {
		t.Fatalf("running test suite: %v", err)
	}
}
