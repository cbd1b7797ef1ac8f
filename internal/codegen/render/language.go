package render

import (
	"path"
	"strings"
)

var extensionLanguages = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".vue":  "vue",
	".sql":  "sql",
	".java": "java",
	".xml":  "xml",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
	".scss": "scss",
}

// LanguageForPath maps a file extension to a language tag, plaintext when unknown.
func LanguageForPath(p string) string {
	if lang, ok := extensionLanguages[strings.ToLower(path.Ext(p))]; ok {
		return lang
	}
	return "plaintext"
}
