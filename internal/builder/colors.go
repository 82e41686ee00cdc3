// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package builder

import (
	"fmt"
	"strings"
)

var lightColors = func() *strings.Replacer {
	var pairs []string
	for i := 0; i < 8; i++ {
		pairs = append(pairs, fmt.Sprintf("\x1b[9%dm", i), fmt.Sprintf("\x1b[3%dm", i))
	}
	return strings.NewReplacer(pairs...)
}()

// SimplifyColors rewrites bright foreground colors (SGR 90-97) to their
// basic counterparts (30-37). Build log viewers only render the basic set.
func SimplifyColors(s string) string {
	return lightColors.Replace(s)
}
