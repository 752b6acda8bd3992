// Package lang implements sdlctl's per-language extraction and call
// resolution (spec §4.4) as one data-driven adapter over
// github.com/smacker/go-tree-sitter, instead of one Go file per language.
// The node-type tables and name-extraction logic are generalized from
// SimplyLiz-CodeMCP's internal/complexity/treesitter.go and
// internal/symbols/treesitter.go, which hard-coded the same switch over a
// smaller language set; the generic tables here fold call-extraction and
// the resolution ladder (absent from the teacher) into the same table an
// extra column covers, rather than a second per-language switch.
package lang

import (
	"fmt"
	"strings"
)

// Language identifies one of the tags accepted in RepoConfig.Languages
// (spec §6, Language tags).
type Language string

const (
	LangTypeScript Language = "ts"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "js"
	LangJSX        Language = "jsx"
	LangPython     Language = "py"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangCSharp     Language = "cs"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangPHP        Language = "php"
	LangRust       Language = "rs"
	LangKotlin     Language = "kt"
	LangShell      Language = "sh"
)

// AllLanguages is the full tag set used when a repo's config omits
// `languages` (spec §6).
var AllLanguages = []Language{
	LangTypeScript, LangTSX, LangJavaScript, LangJSX, LangPython, LangGo,
	LangJava, LangCSharp, LangC, LangCPP, LangPHP, LangRust, LangKotlin, LangShell,
}

var extensionToLanguage = map[string]Language{
	".ts":   LangTypeScript,
	".mts":  LangTypeScript,
	".tsx":  LangTSX,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".jsx":  LangJSX,
	".py":   LangPython,
	".pyi":  LangPython,
	".go":   LangGo,
	".java": LangJava,
	".cs":   LangCSharp,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".cc":   LangCPP,
	".cxx":  LangCPP,
	".hpp":  LangCPP,
	".php":  LangPHP,
	".rs":   LangRust,
	".kt":   LangKotlin,
	".kts":  LangKotlin,
	".sh":   LangShell,
	".bash": LangShell,
}

// LanguageFromExtension maps a case-insensitive file extension (including
// the leading dot) to a Language tag, or ("", false) if unsupported.
func LanguageFromExtension(ext string) (Language, bool) {
	lang, ok := extensionToLanguage[strings.ToLower(ext)]
	return lang, ok
}

// ParseTag validates a language tag from RepoConfig.Languages.
func ParseTag(tag string) (Language, error) {
	for _, l := range AllLanguages {
		if string(l) == tag {
			return l, nil
		}
	}
	return "", fmt.Errorf("sdlctl: unsupported language tag %q", tag)
}
