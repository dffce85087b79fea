package query

import "strings"

// LikeEscape is the escape character declared on every LIKE predicate
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so s matches literally
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// containsPattern matches s anywhere
func containsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// prefixPattern matches values starting with s
func prefixPattern(s string) string {
	return EscapeLike(s) + "%"
}

// suffixPattern matches values ending with s
func suffixPattern(s string) string {
	return "%" + EscapeLike(s)
}
