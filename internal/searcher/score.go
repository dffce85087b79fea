package searcher

import (
	"regexp"
	"strings"
)

// Relevance scores. Exact beats prefix beats contains, and short name
// beats display name beats fully-qualified name within each tier.
const (
	scoreExactName       = 100
	scoreExactDisplay    = 95
	scoreExactFQN        = 90
	scorePrefixName      = 80
	scorePrefixDisplay   = 70
	scoreContainsName    = 60
	scoreContainsDisplay = 50
	scoreContainsFQN     = 40

	scoreRegexName    = 70
	scoreRegexDisplay = 60
	scoreRegexFQN     = 50
)

// Score rates how well query matches a symbol's three names. Comparison is
// case-sensitive. Empty projections never match; an empty query scores 0.
func Score(query, name, display, fqn string) int {
	if query == "" {
		return 0
	}
	switch {
	case name == query:
		return scoreExactName
	case display == query:
		return scoreExactDisplay
	case fqn == query:
		return scoreExactFQN
	case strings.HasPrefix(name, query):
		return scorePrefixName
	case strings.HasPrefix(display, query):
		return scorePrefixDisplay
	case strings.Contains(name, query):
		return scoreContainsName
	case strings.Contains(display, query):
		return scoreContainsDisplay
	case strings.Contains(fqn, query):
		return scoreContainsFQN
	}
	return 0
}

// RegexScore rates a regex match against a symbol's three names
func RegexScore(re *regexp.Regexp, name, display, fqn string) int {
	switch {
	case name != "" && re.MatchString(name):
		return scoreRegexName
	case display != "" && re.MatchString(display):
		return scoreRegexDisplay
	case fqn != "" && re.MatchString(fqn):
		return scoreRegexFQN
	}
	return 0
}

// regexMatchesAny reports whether re matches any non-empty value
func regexMatchesAny(re *regexp.Regexp, values ...string) bool {
	for _, v := range values {
		if v != "" && re.MatchString(v) {
			return true
		}
	}
	return false
}

// containsFoldAny reports whether any value contains query, folding ASCII
// case only. This is the semantics of SQLite's LIKE.
func containsFoldAny(query string, values ...string) bool {
	q := asciiLower(query)
	for _, v := range values {
		if strings.Contains(asciiLower(v), q) {
			return true
		}
	}
	return false
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
