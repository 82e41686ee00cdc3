// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"fmt"
	"sort"
	"strings"
)

// ParseOptions parses KEY=VALUE pairs. The value may itself contain '='.
func ParseOptions(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q: should be in key=value format", p)
		}
		opts[k] = v
	}
	return opts, nil
}

// FormatOptions renders opts as comma-separated KEY=VALUE pairs sorted by key.
func FormatOptions(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + opts[k]
	}
	return strings.Join(pairs, ",")
}
