package synth

import (
	"fmt"
	"strings"
)

// CodeBuilder is a wrapper around [strings.Builder] that simplifies
// building JavaScript code.
//
// The zero value is safely ready to use.
type CodeBuilder struct {
	// Indent is the indentation level (indentation is two spaces).
	Indent int

	b strings.Builder
}

// Linef writes a single line, prepended by the current indentation.
//
// Takes format and args like [fmt.Printf].
func (w *CodeBuilder) Linef(format string, args ...any) {
	for range w.Indent {
		w.b.WriteString("  ")
	}
	w.b.WriteString(fmt.Sprintf(format, args...))
	w.b.WriteString("\n")
}

// String returns the code built so far.
func (w *CodeBuilder) String() string {
	return w.b.String()
}
