// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MustMkdirAll creates dir and its parents. The test fails immediately on error.
func MustMkdirAll(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}
}

// MustWriteFile writes content to path, creating missing parent directories.
// The test fails immediately on error.
func MustWriteFile(t testing.TB, path, content string, perm os.FileMode) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustWriteScript writes an executable shell script.
func MustWriteScript(t testing.TB, path, body string) {
	t.Helper()
	MustWriteFile(t, path, "#!/bin/bash\n"+body, 0o755)
}
