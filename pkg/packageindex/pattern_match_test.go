/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package packageindex

import "testing"

func TestMatchPrefersLongestMatch(t *testing.T) {
	funcs := []FunctionDesc{
		{
			Name:    "add",
			Pattern: &CallPattern{Infix: []string{"plus"}},
		},
		{
			Name:    "addAndLog",
			Pattern: &CallPattern{Prefix: "log", Infix: []string{"plus"}},
		},
	}

	best, ok := Match(funcs, []string{"log", "plus"}, 2)
	if !ok {
		t.Fatalf("expected a match")
	}
	if best.Name != "addAndLog" {
		t.Errorf("expected longest match addAndLog, got %v", best.Name)
	}
}

func TestMatchTieBreaksByDeclarationOrder(t *testing.T) {
	funcs := []FunctionDesc{
		{Name: "first", Pattern: &CallPattern{Infix: []string{"plus"}}},
		{Name: "second", Pattern: &CallPattern{Infix: []string{"plus"}}},
	}

	best, ok := Match(funcs, []string{"plus"}, 2)
	if !ok {
		t.Fatalf("expected a match")
	}
	if best.Name != "first" {
		t.Errorf("expected declaration-order winner first, got %v", best.Name)
	}
}

func TestMatchNoPattern(t *testing.T) {
	funcs := []FunctionDesc{{Name: "plain"}}
	if _, ok := Match(funcs, []string{"wait"}, 1); ok {
		t.Errorf("expected no match for a function with no call pattern")
	}
}
