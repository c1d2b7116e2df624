// Package langdetect maps file paths to editor language identifiers.
package langdetect

import (
	"path"
	"sort"
	"strings"
)

// PlainText is returned for paths whose extension is not in the table.
const PlainText = "plaintext"

// byExt is keyed by the lowercase final extension, dot included.
var byExt = map[string]string{
	".c":        "c",
	".h":        "c",
	".cpp":      "cpp",
	".cc":       "cpp",
	".cxx":      "cpp",
	".hpp":      "cpp",
	".hh":       "cpp",
	".hxx":      "cpp",
	".inl":      "cpp",
	".cs":       "csharp",
	".css":      "css",
	".go":       "go",
	".html":     "html",
	".htm":      "html",
	".java":     "java",
	".js":       "javascript",
	".mjs":      "javascript",
	".cjs":      "javascript",
	".json":     "json",
	".lua":      "lua",
	".md":       "markdown",
	".markdown": "markdown",
	".py":       "python",
	".rs":       "rust",
	".sh":       "shell",
	".bash":     "shell",
	".zsh":      "shell",
	".sql":      "sql",
	".ts":       "typescript",
	".tsx":      "typescript",
	".xml":      "xml",
	".yaml":     "yaml",
	".yml":      "yaml",
	".cmake":    "cmake",
	".txt":      PlainText,
}

// Detect returns the language identifier for p. Only the final extension is
// read ("a.tar.gz" is a ".gz" file) and the match is case-insensitive.
// Unknown or missing extensions yield PlainText.
func Detect(p string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, `\`, "/")))
	if lang, ok := byExt[ext]; ok {
		return lang
	}
	return PlainText
}

// Extensions returns a copy of the extension table, keys dot included.
func Extensions() map[string]string {
	out := make(map[string]string, len(byExt))
	for ext, lang := range byExt {
		out[ext] = lang
	}
	return out
}

// Known reports whether id is a language Detect can return.
func Known(id string) bool {
	if id == PlainText {
		return true
	}
	for _, lang := range byExt {
		if lang == id {
			return true
		}
	}
	return false
}

// Languages returns every identifier Detect can return, sorted.
func Languages() []string {
	seen := map[string]bool{PlainText: true}
	out := []string{PlainText}
	for _, lang := range byExt {
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}
