// Package textutils provides small text helpers shared by the
// pipeline and the emitters.
package textutils

import (
	"regexp"
	"strings"
)

// IndentString prepends indent nIndent times to each line beginning
// in s. Lines consisting only of whitespace are left empty instead of
// being indented.
func IndentString(s string, indent string, nIndent int) string {
	prefix := strings.Repeat(indent, nIndent)

	var res strings.Builder
	res.Grow(len(s) + (strings.Count(s, "\n")+1)*len(prefix))

	for i, line := range strings.SplitAfter(s, "\n") {
		if i > 0 && line == "" {
			// SplitAfter yields a trailing empty element when s ends
			// in a newline.
			break
		}
		if strings.TrimRight(line, " \t\v\f\r\n") == "" {
			res.WriteString(strings.TrimLeft(line, " \t\v\f"))
		} else {
			res.WriteString(prefix)
			res.WriteString(line)
		}
	}

	return res.String()
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`//[^\n]*`)
)

// StripComments removes block and line comments from C-family source
// text. Block comments are replaced by a single space so that tokens
// separated only by a comment stay separated; newlines inside block
// comments are kept so that line numbering and line structure survive.
func StripComments(s string) string {
	s = reBlockComment.ReplaceAllStringFunc(s, func(m string) string {
		return " " + strings.Repeat("\n", strings.Count(m, "\n"))
	})
	s = reLineComment.ReplaceAllString(s, "")
	return s
}
