package query

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// knownKinds are the normalized symbol kinds graph indexers emit
var knownKinds = []string{
	"class", "constant", "enum", "field", "function", "impl", "interface",
	"macro", "method", "module", "static", "struct", "trait", "type",
	"union", "variable",
}

var kindAliases = map[string]string{
	"const":      "constant",
	"fn":         "function",
	"func":       "function",
	"mod":        "module",
	"namespace":  "module",
	"type_alias": "type",
	"typealias":  "type",
	"var":        "variable",
}

// maxSuggestionDistance bounds how far a typo may be from a known kind
const maxSuggestionDistance = 2

// NormalizeKind lowercases a kind and resolves common aliases
func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if alias, ok := kindAliases[k]; ok {
		return alias
	}
	return k
}

// NormalizeKinds normalizes a kind filter. Unknown kinds are kept; each
// produces a warning naming the nearest known kind when one is close.
func NormalizeKinds(kinds []string) ([]string, []string) {
	var normalized, warnings []string
	seen := make(map[string]bool)

	for _, raw := range kinds {
		k := NormalizeKind(raw)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		normalized = append(normalized, k)

		if isKnownKind(k) {
			continue
		}
		if best, dist := closestKind(k); dist <= maxSuggestionDistance {
			warnings = append(warnings, fmt.Sprintf("unknown kind '%s' (did you mean '%s'?)", raw, best))
		} else {
			warnings = append(warnings, fmt.Sprintf("unknown kind '%s'", raw))
		}
	}
	return normalized, warnings
}

func isKnownKind(k string) bool {
	for _, known := range knownKinds {
		if known == k {
			return true
		}
	}
	return false
}

func closestKind(k string) (string, int) {
	best := ""
	bestDistance := 1000
	for _, known := range knownKinds {
		if d := edlib.LevenshteinDistance(k, known); d < bestDistance {
			best = known
			bestDistance = d
		}
	}
	return best, bestDistance
}
