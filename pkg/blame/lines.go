package blame

import (
	"strings"

	"github.com/src-d/enry/v2"
)

// LineKind classifies one source line.
type LineKind int

const (
	// Code is a line that is neither empty nor a comment.
	Code LineKind = iota
	// Comment is a line comment or a line inside a block comment.
	Comment
	// Empty is a line with no characters at all.
	Empty
	// Whitespace is a non-empty line containing only whitespace.
	Whitespace
)

type commentSyntax struct {
	line       []string
	blockStart string
	blockEnd   string
}

var cStyle = commentSyntax{line: []string{"//"}, blockStart: "/*", blockEnd: "*/"}

// syntaxByLanguage maps enry language names to their comment markers.
// Unlisted languages fall back to C style.
var syntaxByLanguage = map[string]commentSyntax{
	"C":           cStyle,
	"C++":         cStyle,
	"GLSL":        cStyle,
	"Go":          cStyle,
	"Java":        cStyle,
	"JavaScript":  cStyle,
	"TypeScript":  cStyle,
	"Python":      {line: []string{"#"}, blockStart: `"""`, blockEnd: `"""`},
	"Ruby":        {line: []string{"#"}, blockStart: "=begin", blockEnd: "=end"},
	"SQL":         {line: []string{"--"}, blockStart: "/*", blockEnd: "*/"},
	"PLpgSQL":     {line: []string{"--"}, blockStart: "/*", blockEnd: "*/"},
	"Shell":       {line: []string{"#"}},
	"Makefile":    {line: []string{"#"}},
	"YAML":        {line: []string{"#"}},
	"TOML":        {line: []string{"#"}},
	"INI":         {line: []string{"#"}},
	"HTML":        {blockStart: "<!--", blockEnd: "-->"},
	"XML":         {blockStart: "<!--", blockEnd: "-->"},
	"CSS":         {blockStart: "/*", blockEnd: "*/"},
	"Lua":         {line: []string{"--"}, blockStart: "--[[", blockEnd: "]]"},
	"Rust":        cStyle,
	"Kotlin":      cStyle,
	"Swift":       cStyle,
	"C#":          cStyle,
	"Objective-C": cStyle,
	"PHP":         {line: []string{"//", "#"}, blockStart: "/*", blockEnd: "*/"},
}

// SplitLines splits file content into lines without their terminators. A
// trailing newline does not produce a final empty line.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}

	s := strings.TrimSuffix(string(content), "\n")

	return strings.Split(s, "\n")
}

// ClassifyLines labels each line of a file as code, comment, empty or
// whitespace. The comment syntax is chosen from the language enry detects
// for the path and content.
func ClassifyLines(path string, content []byte) []LineKind {
	lines := SplitLines(content)
	if len(lines) == 0 {
		return nil
	}

	lang := enry.GetLanguage(path, content)

	syntax, ok := syntaxByLanguage[lang]
	if !ok {
		syntax = cStyle
	}

	kinds := make([]LineKind, len(lines))
	inBlock := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		kinds[i], inBlock = classify(trimmed, syntax, inBlock)

		if kinds[i] == Empty && line != "" {
			kinds[i] = Whitespace
		}
	}

	return kinds
}

func classify(trimmed string, syntax commentSyntax, inBlock bool) (LineKind, bool) {
	if trimmed == "" {
		return Empty, inBlock
	}

	if inBlock {
		if syntax.blockEnd != "" && strings.Contains(trimmed, syntax.blockEnd) {
			return Comment, false
		}

		return Comment, true
	}

	for _, prefix := range syntax.line {
		if strings.HasPrefix(trimmed, prefix) {
			return Comment, false
		}
	}

	if syntax.blockStart != "" && strings.HasPrefix(trimmed, syntax.blockStart) {
		rest := trimmed[len(syntax.blockStart):]
		if syntax.blockEnd != "" && strings.Contains(rest, syntax.blockEnd) {
			return Comment, false
		}

		return Comment, true
	}

	return Code, inBlock
}
