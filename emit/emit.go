// Package emit renders the generated artifact documents and writes
// them out. Every emitter is a pure formatting function over already
// computed data; rendering is deterministic, so regenerating from an
// unchanged header yields byte-identical artifacts.
package emit

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/swephjs/swegen/category"
	"github.com/swephjs/swegen/header"
	"github.com/swephjs/swegen/textutils"
)

//go:embed constants.js.tmpl
var templateSrcConstants string

//go:embed raw.d.ts.tmpl
var templateSrcRaw string

//go:embed swisseph.js.tmpl
var templateSrcWrappers string

var (
	templateConstants = template.Must(template.New("constants.js.tmpl").Parse(templateSrcConstants))
	templateRaw       = template.Must(template.New("raw.d.ts.tmpl").Parse(templateSrcRaw))
	templateWrappers  = template.Must(template.New("swisseph.js.tmpl").Parse(templateSrcWrappers))
)

// Artifact is one write-once output document.
type Artifact struct {
	Name string
	Data []byte
}

type constGroup struct {
	Title  string
	Consts []header.Constant
}

// Constants renders the dependency-ordered, category-grouped constant
// document. ordered must already respect dependency order (the
// resolver's output); grouping keeps that order intact by pulling a
// constant into its dependency's group whenever category boundaries
// would otherwise place a dependency after its dependent.
func Constants(source string, ordered []header.Constant) (Artifact, error) {
	cats := make(map[string]category.Category, len(ordered))
	for _, c := range ordered {
		cats[c.Name] = category.OfConstant(c.Name)
	}

	groupIdx := func(c category.Category) int { return slices.Index(category.All, c) }

	// Fix-point: a dependency emitted in a later group than its
	// dependent would emit out of order; move the dependent down.
	for {
		moved := false
		for _, c := range ordered {
			for _, d := range c.Deps {
				dc, ok := cats[d]
				if !ok {
					continue
				}
				if groupIdx(dc) > groupIdx(cats[c.Name]) {
					cats[c.Name] = dc
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}

	var groups []constGroup
	for _, cat := range category.All {
		g := constGroup{Title: cat.Title()}
		for _, c := range ordered {
			if cats[c.Name] == cat {
				g.Consts = append(g.Consts, c)
			}
		}
		if len(g.Consts) > 0 {
			groups = append(groups, g)
		}
	}

	return render(templateConstants, "constants.js", struct {
		Source string
		Groups []constGroup
	}{source, groups})
}

type sigGroup struct {
	Title string
	Sigs  []string
}

// RawSignatures renders one declaration per native routine, grouped
// by cosmetic category, with all pointer parameters typed uniformly
// as memory addresses.
func RawSignatures(source string, routs []header.Routine) (Artifact, error) {
	var groups []sigGroup
	for _, cat := range category.All {
		g := sigGroup{Title: cat.Title()}
		for _, r := range routs {
			if category.OfRoutine(r.Name) == cat {
				g.Sigs = append(g.Sigs, rawSignature(r))
			}
		}
		if len(g.Sigs) > 0 {
			groups = append(groups, g)
		}
	}

	return render(templateRaw, "raw.d.ts", struct {
		Source string
		Groups []sigGroup
	}{source, groups})
}

func rawSignature(r header.Routine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v(", r.Name)
	for i, p := range r.Params {
		if i != 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: %v", p.Name, tsType(p.Type, p.Pointer))
	}
	fmt.Fprintf(&b, "): %v;", tsReturnType(r.Return))
	return b.String()
}

func tsType(cType string, pointer bool) string {
	if pointer {
		return "Ptr"
	}
	return "number"
}

func tsReturnType(cType string) string {
	switch {
	case cType == "void":
		return "void"
	case strings.Contains(cType, "*"):
		return "Ptr"
	}
	return "number"
}

// Wrappers renders the friendly wrapper class document from the
// synthesized method texts.
func Wrappers(source string, methods []string) (Artifact, error) {
	var body strings.Builder
	for i, m := range methods {
		if i != 0 {
			body.WriteString("\n")
		}
		body.WriteString(textutils.IndentString(m, "  ", 1))
	}

	return render(templateWrappers, "swisseph.js", struct {
		Source   string
		Wrappers string
	}{source, body.String()})
}

// ExportList renders the flat linkage export list consumed by the
// native build step: every routine plus the allocator pair.
func ExportList(routs []header.Routine) Artifact {
	var b bytes.Buffer
	for _, r := range routs {
		fmt.Fprintf(&b, "_%v\n", r.Name)
	}
	b.WriteString("_malloc\n")
	b.WriteString("_free\n")
	return Artifact{Name: "wasm_exports.txt", Data: b.Bytes()}
}

func render(t *template.Template, name string, data any) (Artifact, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return Artifact{}, fmt.Errorf("render %v: %w", name, err)
	}
	return Artifact{Name: name, Data: b.Bytes()}, nil
}

// WriteAll materializes every artifact under dir. All artifacts must
// already be rendered; a write failure aborts immediately and the
// partially written output set is not to be considered valid.
func WriteAll(dir string, arts []Artifact) error {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return err
	}
	for _, a := range arts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0o666); err != nil {
			return fmt.Errorf("write %v: %w", a.Name, err)
		}
	}
	return nil
}
