package templates

import (
	"fmt"
	"sort"
	"strings"
)

// Render replaces every literal {key} in pattern with the stringified value of
// vars[key]. Placeholders without a variable are left as they are.
//
// Keys are applied in sorted order so the output does not depend on map
// iteration. A substituted value that itself looks like a placeholder may be
// replaced again by a later key; Render makes no attempt to escape values.
func Render(pattern string, vars map[string]any) string {
	if pattern == "" || len(vars) == 0 {
		return pattern
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := pattern
	for _, k := range keys {
		placeholder := "{" + k + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, stringify(vars[k]))
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
