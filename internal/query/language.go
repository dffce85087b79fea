package query

import (
	"path/filepath"
	"sort"
	"strings"
)

// languageExtensions maps a language name to the file extensions it owns
var languageExtensions = map[string][]string{
	"c":          {".c", ".h"},
	"cpp":        {".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
	"go":         {".go"},
	"java":       {".java"},
	"javascript": {".js", ".mjs", ".cjs", ".jsx"},
	"python":     {".py", ".pyi"},
	"rust":       {".rs"},
	"typescript": {".ts", ".tsx"},
}

var languageAliases = map[string]string{
	"c++": "cpp",
	"js":  "javascript",
	"py":  "python",
	"rs":  "rust",
	"ts":  "typescript",
}

var extensionLanguage = func() map[string]string {
	m := make(map[string]string)
	for lang, exts := range languageExtensions {
		for _, ext := range exts {
			m[ext] = lang
		}
	}
	return m
}()

// CanonicalLanguage resolves a language name or alias, reporting whether
// it is known
func CanonicalLanguage(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if alias, ok := languageAliases[lang]; ok {
		lang = alias
	}
	_, ok := languageExtensions[lang]
	return lang, ok
}

// LanguageExtensions returns the extensions of a language
func LanguageExtensions(lang string) ([]string, bool) {
	canonical, ok := CanonicalLanguage(lang)
	if !ok {
		return nil, false
	}
	return languageExtensions[canonical], true
}

// LanguageForPath infers a language from a file extension, or ""
func LanguageForPath(path string) string {
	return extensionLanguage[strings.ToLower(filepath.Ext(path))]
}

// Languages lists the known language names in order
func Languages() []string {
	langs := make([]string, 0, len(languageExtensions))
	for lang := range languageExtensions {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
