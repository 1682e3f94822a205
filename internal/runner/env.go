// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"maps"
	"slices"
	"strings"
)

// MergeEnv returns base ("KEY=value" entries, as from os.Environ) with the
// overrides applied. Entries of base whose key is overridden are dropped and
// the overrides are appended in key order; unrelated variables are kept.
func MergeEnv(base []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, kv)
	}
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

// LookupEnv returns the value of key in an environment slice. The last entry
// wins, matching how exec resolves duplicates.
func LookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
