// Package routines holds the hand-maintained generation metadata
// driving wrapper synthesis: which parameters are output buffers,
// which are input strings, how the native return value is interpreted,
// and the optional named result shape.
//
// The table is authored as TOML (see routines.toml) and embedded into
// the binary. A user-supplied TOML file can override individual
// entries; values set in an override entry take precedence over the
// built-in table.
package routines

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/iancoleman/strcase"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed routines.toml
var defaultTable []byte

// Kind of an output parameter.
type Kind int

const (
	Double Kind = iota
	Int32
	DoubleArray
	Int32Array
	String
	ErrorBuffer
)

// Output describes one output parameter: its element type, shape and
// the published field name.
type Output struct {
	// Type is "double", "int32", "string" or "error".
	Type string `toml:"type"`
	// Count is the fixed element count for double/int32 outputs;
	// 0 or 1 means a single scalar.
	Count int `toml:"count"`
	// Size is the buffer byte size for string/error outputs.
	Size int `toml:"size"`
	// Name is the published field name; defaults to the parameter name.
	Name string `toml:"name"`
}

// Kind classifies the output descriptor.
func (o Output) Kind() (Kind, error) {
	switch o.Type {
	case "double":
		if o.Count > 1 {
			return DoubleArray, nil
		}
		return Double, nil
	case "int32":
		if o.Count > 1 {
			return Int32Array, nil
		}
		return Int32, nil
	case "string":
		return String, nil
	case "error":
		return ErrorBuffer, nil
	}
	return 0, fmt.Errorf("unknown output type %q", o.Type)
}

// ByteSize is the number of bytes to allocate for the output buffer:
// 8 per float64 element, 4 per int32 element, the declared size for
// string and error buffers.
func (o Output) ByteSize() (int, error) {
	kind, err := o.Kind()
	if err != nil {
		return 0, err
	}
	switch kind {
	case Double, DoubleArray:
		return max(o.Count, 1) * 8, nil
	case Int32, Int32Array:
		return max(o.Count, 1) * 4, nil
	case String, ErrorBuffer:
		if o.Size <= 0 {
			return 0, fmt.Errorf("%v output requires a positive size", o.Type)
		}
		return o.Size, nil
	}
	panic("unreachable")
}

// ReturnMode governs whether and how the native numeric return value
// signals failure.
type ReturnMode string

const (
	ReturnVoid    ReturnMode = "void"
	ReturnNumber  ReturnMode = "number"
	CheckNegative ReturnMode = "check-negative"
	CheckError    ReturnMode = "check-error"
)

// Config is the generation metadata for one routine.
type Config struct {
	// Name is the friendly wrapper name. Defaults to the native name
	// with the table prefix stripped, converted to lower camel case.
	Name   string     `toml:"name"`
	Return ReturnMode `toml:"return"`
	// Shape names a fixed result field layout (see package synth).
	Shape string `toml:"shape"`
	// Strings lists parameters that are text inputs requiring an
	// allocated, null-terminated buffer.
	Strings []string `toml:"strings"`
	// Out maps parameter names to output descriptors.
	Out map[string]Output `toml:"out"`
	// Skip suppresses wrapper generation entirely.
	Skip bool `toml:"skip"`
}

// ErrorOut returns the name of the designated error-buffer parameter,
// if any.
func (c Config) ErrorOut() string {
	for param, out := range c.Out {
		if out.Type == "error" {
			return param
		}
	}
	return ""
}

// Table is the full routine configuration table.
type Table struct {
	// Prefix is the native name prefix stripped when deriving
	// friendly names.
	Prefix   string            `toml:"prefix"`
	Routines map[string]Config `toml:"routines"`
}

// Default decodes the embedded table.
func Default() (*Table, error) {
	t := &Table{}
	err := toml.NewDecoder(bytes.NewReader(defaultTable)).
		DisallowUnknownFields().
		Decode(t)
	if err != nil {
		return nil, fmt.Errorf("decode built-in routine table: %w", err)
	}
	return t, nil
}

// Load reads a user override table from path and merges the embedded
// defaults underneath it.
func Load(path string) (*Table, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &Table{}
	err = toml.NewDecoder(bytes.NewReader(file)).
		DisallowUnknownFields().
		Decode(t)
	if err != nil {
		var tErr *toml.DecodeError
		if errors.As(err, &tErr) {
			return nil, fmt.Errorf("%v: %v", path, tErr.String())
		}
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	def, err := Default()
	if err != nil {
		return nil, err
	}
	if t.Prefix == "" {
		t.Prefix = def.Prefix
	}
	if t.Routines == nil {
		t.Routines = map[string]Config{}
	}
	// Merge entry by entry: mergo does not descend into map values, so
	// a whole-table merge would leave an override entry's unset fields
	// zero instead of filling them from the built-in entry.
	for name, base := range def.Routines {
		over, ok := t.Routines[name]
		if !ok {
			t.Routines[name] = base
			continue
		}
		if err := mergo.Merge(&over, base); err != nil {
			return nil, fmt.Errorf("merge routine tables: %w", err)
		}
		t.Routines[name] = over
	}
	return t, nil
}

// Lookup resolves the configuration for a native routine name. A
// routine absent from the table receives the implicit default:
// derived friendly name, no outputs, numeric return.
func (t *Table) Lookup(name string) Config {
	cfg, ok := t.Routines[name]
	if !ok {
		cfg = Config{}
	}
	if cfg.Name == "" {
		cfg.Name = strcase.ToLowerCamel(strings.TrimPrefix(name, t.Prefix))
	}
	if cfg.Return == "" {
		cfg.Return = ReturnNumber
	}
	return cfg
}
