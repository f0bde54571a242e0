/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package packageindex

import "testing"

func TestStaticIndexGetLatest(t *testing.T) {
	idx := NewStaticIndex()
	idx.Register(&PackageInfo{Name: "math", Version: "1.0.0", Kind: "std"})
	idx.Register(&PackageInfo{Name: "math", Version: "1.2.0", Kind: "std"})

	info, ok := idx.Get("math", nil)
	if !ok {
		t.Fatalf("expected math package to be found")
	}
	if info.Version != "1.2.0" {
		t.Errorf("expected latest version 1.2.0, got %v", info.Version)
	}
}

func TestStaticIndexGetPinnedVersion(t *testing.T) {
	idx := NewStaticIndex()
	idx.Register(&PackageInfo{Name: "math", Version: "1.0.0", Kind: "std"})
	idx.Register(&PackageInfo{Name: "math", Version: "1.2.0", Kind: "std"})

	version := "1.0.0"
	info, ok := idx.Get("math", &version)
	if !ok {
		t.Fatalf("expected pinned version to be found")
	}
	if info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %v", info.Version)
	}
}

func TestStaticIndexGetUnknownPackage(t *testing.T) {
	idx := NewStaticIndex()
	if _, ok := idx.Get("nope", nil); ok {
		t.Errorf("expected unknown package lookup to fail")
	}
}

func TestStaticIndexGetUnknownVersion(t *testing.T) {
	idx := NewStaticIndex()
	idx.Register(&PackageInfo{Name: "math", Version: "1.0.0", Kind: "std"})

	version := "9.9.9"
	if _, ok := idx.Get("math", &version); ok {
		t.Errorf("expected unknown version lookup to fail")
	}
}
