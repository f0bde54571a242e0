/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package romutil

import (
	"os"
	"path"
	"regexp"

	"github.com/brane-lang/branescript/pkg/errs"
)

// ForEachMatchingFileRecursive walks the filesystem starting at root and
// calls action for every regular file whose base name matches pattern.
func ForEachMatchingFileRecursive(root string, pattern *regexp.Regexp, action func(path string) error) error {
	items, err := os.ReadDir(root)
	if err != nil {
		return errs.NewCompileTimeWithoutLine(root, "reading directory %v: %v", root, err)
	}
	for _, item := range items {
		itemPath := path.Join(root, item.Name())
		if item.IsDir() {
			if err := ForEachMatchingFileRecursive(itemPath, pattern, action); err != nil {
				return err
			}
			continue
		}
		if pattern.MatchString(item.Name()) {
			if err := action(itemPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
