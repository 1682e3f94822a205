// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// projectMarkers identify the dx-all-suite checkout root.
var projectMarkers = []string{
	"docker_build.sh",
	filepath.Join("tests", "docker"),
}

// FindProjectRoot walks up from start to the first directory containing one
// of the project markers. It returns start when none is found.
func FindProjectRoot(start string) string {
	dir := filepath.Clean(start)
	for {
		for _, m := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Clean(start)
		}
		dir = parent
	}
}

func resolveProjectRoot(opts LoadOptions) (string, error) {
	if opts.ProjectRoot != "" {
		abs, err := filepath.Abs(opts.ProjectRoot)
		if err != nil {
			return "", fmt.Errorf("resolve project root: %w", err)
		}
		return abs, nil
	}
	wd := opts.WorkDir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(wd)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return FindProjectRoot(abs), nil
}
