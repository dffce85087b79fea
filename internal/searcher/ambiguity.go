package searcher

import (
	"fmt"
	"strings"

	"github.com/oldnordic/llmgrep/pkg/types"
)

// maxAmbiguityCandidates bounds how many candidates the advisory lists
const maxAmbiguityCandidates = 5

// ambiguityWarning reports the first short name, in result order, that more
// than one distinct fully-qualified name shares. It returns "" when every
// name is unambiguous.
func ambiguityWarning(results []types.SymbolMatch) string {
	type candidate struct {
		fqn string
		id  string
	}
	byName := make(map[string][]candidate)
	var order []string

	for _, r := range results {
		fqn := r.FQN
		if fqn == "" {
			fqn = r.DisplayFQN
		}
		if fqn == "" {
			continue
		}
		cands, seen := byName[r.Name]
		if !seen {
			order = append(order, r.Name)
		}
		dup := false
		for _, c := range cands {
			if c.fqn == fqn {
				dup = true
				break
			}
		}
		if !dup {
			byName[r.Name] = append(cands, candidate{fqn: fqn, id: r.SymbolID})
		}
	}

	for _, name := range order {
		cands := byName[name]
		if len(cands) < 2 {
			continue
		}
		shown := cands
		if len(shown) > maxAmbiguityCandidates {
			shown = shown[:maxAmbiguityCandidates]
		}
		parts := make([]string, len(shown))
		for i, c := range shown {
			parts[i] = fmt.Sprintf("%s (%s)", c.fqn, c.id)
		}
		return fmt.Sprintf("ambiguous name '%s' matches %d symbols: %s; use fqn or symbol_id to select one",
			name, len(cands), strings.Join(parts, ", "))
	}
	return ""
}
