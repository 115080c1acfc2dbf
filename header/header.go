// Package header extracts constant and routine declarations from a
// Swiss Ephemeris style C header.
//
// The dialect is deliberately narrow: constants are "#define NAME VALUE"
// lines with upper snake case names and a small set of accepted value
// shapes, and routines are "ext_def(returnType) name(params);"
// declarations. Anything else is dropped (see Set's dropped counters),
// unless strict mode is requested.
package header

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/swephjs/swegen/textutils"
)

// Constant is a single "#define NAME VALUE" declaration.
type Constant struct {
	Name  string
	Value string
	// Deps holds the upper snake case tokens appearing in Value,
	// excluding Name itself, in order of first appearance.
	Deps []string
}

// Param is a single routine parameter. Pointer qualifiers are stripped
// from Type and recorded in Pointer instead.
type Param struct {
	Type    string
	Name    string
	Pointer bool
}

// Routine is a single "ext_def(returnType) name(params);" declaration.
// Params keeps the exact declared order; it is positional and must
// match the native calling convention.
type Routine struct {
	Name   string
	Return string
	Params []Param
}

// Set is the result of extracting one header document.
type Set struct {
	Constants []Constant
	Routines  []Routine

	// Declarations matching the rough shape of a constant or routine
	// but failing the accepted grammar. Only informational; lenient
	// parsing drops them silently.
	DroppedConstants int
	DroppedRoutines  int
}

// Book-keeping symbols that are never useful as client constants.
var constantDenyList = map[string]struct{}{
	"TRUE":          {},
	"FALSE":         {},
	"MY_TRUE":       {},
	"MY_FALSE":      {},
	"SE_EPHE_PATH":  {},
	"SE_MAX_STNAME": {},
}

// Routines incompatible with the pointer/value model: they return a
// native string directly, or are documented as disabled.
var routineDenyList = map[string]struct{}{
	"swe_version":           {},
	"swe_get_library_path":  {},
	"swe_get_ayanamsa_name": {},
	"swe_house_name":        {},
	"swe_cs2timestr":        {},
	"swe_cs2lonlatstr":      {},
	"swe_cs2degstr":         {},
}

const (
	reNum = `(?:0[xX][0-9a-fA-F]+[LlUu]*|[0-9]+(?:\.[0-9]*)?[LlUu]*)`
	reRef = `[A-Z][A-Z0-9_]*`
)

// Accepted constant value shapes, tried in order.
var valueShapes = []*regexp.Regexp{
	// bare numeric literal, possibly negative
	regexp.MustCompile(`^-?` + reNum + `$`),
	// parenthesized negative numeric literal
	regexp.MustCompile(`^\(\s*-` + reNum + `\s*\)$`),
	// simple binary arithmetic between two numerals
	regexp.MustCompile(`^` + reNum + `\s*[-+*/]\s*` + reNum + `$`),
	// bit shift between two numerals
	regexp.MustCompile(`^` + reNum + `\s*(?:<<|>>)\s*` + reNum + `$`),
	// parenthesized expression mixing numerals with arithmetic or
	// bitwise operators
	regexp.MustCompile(`^\(\s*` + reNum + `(?:\s*(?:[-+*/|&^]|<<|>>)\s*` + reNum + `)+\s*\)$`),
	// bare reference to another constant
	regexp.MustCompile(`^` + reRef + `$`),
	// combination of constant references joined by | or +, either bare
	// or fully parenthesized
	regexp.MustCompile(`^(?:` + reRef + `(?:\s*[|+]\s*` + reRef + `)+|\(\s*` + reRef + `(?:\s*[|+]\s*` + reRef + `)*\s*\))$`),
}

var (
	reDefineLine  = regexp.MustCompile(`^\s*#\s*define\s+([A-Za-z_][A-Za-z0-9_]*)(\(?)\s*(.*?)\s*$`)
	reNumSuffix   = regexp.MustCompile(`(0[xX][0-9a-fA-F]+|[0-9]+(?:\.[0-9]*)?)[LlUu]+`)
	reUpperSnake  = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	reDepToken    = regexp.MustCompile(`\b[A-Z][A-Z0-9_]*\b`)
	reRoutineDecl = regexp.MustCompile(`(?ms)^\s*ext_def\s*\(\s*([A-Za-z_][A-Za-z0-9_ ]*?\s*\**)\s*\)\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(([^()]*)\)\s*;`)
	reIdent       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Parse extracts all recognized declarations from src. Unrecognized
// declarations are dropped and only counted.
func Parse(src []byte) (*Set, error) {
	return parse(src, false)
}

// ParseStrict is like Parse, but fails on the first declaration that
// matches the rough shape of a constant or routine without matching
// the accepted grammar.
func ParseStrict(src []byte) (*Set, error) {
	return parse(src, true)
}

func parse(src []byte, strict bool) (*Set, error) {
	text := textutils.StripComments(string(src))

	set := &Set{}
	if err := parseConstants(text, set, strict); err != nil {
		return nil, err
	}
	if err := parseRoutines(text, set, strict); err != nil {
		return nil, err
	}
	return set, nil
}

func parseConstants(text string, set *Set, strict bool) error {
	for lineNo, line := range strings.Split(text, "\n") {
		m := reDefineLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, paren, value := m[1], m[2], m[3]
		if !reUpperSnake.MatchString(name) {
			continue
		}
		if _, deny := constantDenyList[name]; deny {
			continue
		}
		if paren == "(" {
			// function-like macro; not representable as plain data
			continue
		}
		if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, `'`) {
			// string literals are not representable either
			continue
		}
		if !valueAccepted(value) {
			if strict {
				return fmt.Errorf("line %v: unrecognized value %q for constant %v", lineNo+1, value, name)
			}
			set.DroppedConstants++
			continue
		}
		// C integer suffixes are accepted on input but are not valid
		// JavaScript; emit the bare numeral.
		value = reNumSuffix.ReplaceAllString(value, "$1")
		set.Constants = append(set.Constants, Constant{
			Name:  name,
			Value: value,
			Deps:  dependencyTokens(name, value),
		})
	}
	return nil
}

func valueAccepted(value string) bool {
	if value == "" {
		return false
	}
	return slices.ContainsFunc(valueShapes, func(re *regexp.Regexp) bool {
		return re.MatchString(value)
	})
}

// dependencyTokens returns every upper snake case token in value other
// than name itself, deduplicated, in order of first appearance.
// Existence filtering is the resolver's job.
func dependencyTokens(name, value string) []string {
	var deps []string
	for _, tok := range reDepToken.FindAllString(value, -1) {
		if tok == name || slices.Contains(deps, tok) {
			continue
		}
		deps = append(deps, tok)
	}
	return deps
}

func parseRoutines(text string, set *Set, strict bool) error {
	matched := 0
	for _, m := range reRoutineDecl.FindAllStringSubmatch(text, -1) {
		matched++
		ret := strings.Join(strings.Fields(m[1]), " ")
		name := m[2]
		if _, deny := routineDenyList[name]; deny {
			continue
		}
		params, err := parseParams(m[3])
		if err != nil {
			if strict {
				return fmt.Errorf("routine %v: %w", name, err)
			}
			set.DroppedRoutines++
			continue
		}
		set.Routines = append(set.Routines, Routine{
			Name:   name,
			Return: ret,
			Params: params,
		})
	}

	// An "ext_def" at declaration position that the declaration regexp
	// didn't consume is a malformed routine.
	declSites := regexp.MustCompile(`(?m)^\s*ext_def\s*\(`).FindAllStringIndex(text, -1)
	if extra := len(declSites) - matched; extra > 0 {
		if strict {
			return fmt.Errorf("%v unrecognized ext_def declaration(s)", extra)
		}
		set.DroppedRoutines += extra
	}
	return nil
}

// parseParams splits a parameter list on top-level commas and derives
// each parameter's type, name and pointer classification.
func parseParams(list string) ([]Param, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "void" {
		return nil, nil
	}

	var params []Param
	for i, part := range splitTopLevel(list, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty parameter at position %v", i)
		}

		pointer := strings.Contains(part, "*")
		part = strings.ReplaceAll(part, "*", " ")
		fields := strings.Fields(part)
		if len(fields) == 0 {
			return nil, fmt.Errorf("unparseable parameter at position %v", i)
		}

		var typ, name string
		last := fields[len(fields)-1]
		if len(fields) >= 2 && reIdent.MatchString(last) && !isTypeWord(last) {
			typ = strings.Join(fields[:len(fields)-1], " ")
			name = last
		} else {
			// unnamed parameter; assign a synthetic positional name
			typ = strings.Join(fields, " ")
			name = fmt.Sprintf("arg%v", i)
		}
		if strings.ContainsAny(typ, "[]()") {
			return nil, fmt.Errorf("unsupported parameter type %q", typ)
		}

		params = append(params, Param{Type: typ, Name: name, Pointer: pointer})
	}
	return params, nil
}

// Words that can only be part of a type, never a parameter name.
func isTypeWord(s string) bool {
	switch s {
	case "void", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "const", "int32", "int64", "AS_BOOL",
		"centisec":
		return true
	}
	return false
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
