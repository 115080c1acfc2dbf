// Package synth generates the friendly JavaScript wrapper method for
// each native routine.
//
// Every wrapper is self-contained: it allocates the output and input
// string buffers it needs from the module's linear memory, calls the
// native routine positionally, interprets the return value according
// to the configured mode, constructs the result, and releases every
// allocation in a finally block so that a thrown failure never leaks
// memory.
package synth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/swephjs/swegen/header"
	"github.com/swephjs/swegen/routines"
)

// The house system parameter accepts either a numeric code or a
// single-character symbolic code ('P', 'K', ...); the call site
// converts the latter to its ordinal value.
const houseSystemParam = "hsys"

type outParam struct {
	param string // buffer variable (the native parameter name)
	out   routines.Output
}

type allocation struct {
	varName string
	// sizeExpr is the malloc argument; empty for input strings, which
	// allocate through the string helper instead.
	sizeExpr  string
	stringSrc string
}

// Routine synthesizes the wrapper method for decl under cfg. It
// returns "" if the routine is configured to be skipped.
func Routine(decl header.Routine, cfg routines.Config) (string, error) {
	if cfg.Skip {
		return "", nil
	}
	for param := range cfg.Out {
		if !slices.ContainsFunc(decl.Params, func(p header.Param) bool { return p.Name == param }) {
			return "", fmt.Errorf("%v: configured output %v is not a declared parameter", decl.Name, param)
		}
	}
	for _, param := range cfg.Strings {
		if !slices.ContainsFunc(decl.Params, func(p header.Param) bool { return p.Name == param }) {
			return "", fmt.Errorf("%v: configured string input %v is not a declared parameter", decl.Name, param)
		}
	}

	// Partition parameters. Outputs leave the public signature and
	// become callee-managed allocations; string inputs stay but
	// require an allocation of their own; the rest pass through.
	var (
		publicParams []string
		callArgs     []string
		allocs       []allocation
		outs         []outParam // non-error outputs, in declared order
		errBuf       string
		hsysConv     bool
	)
	for _, p := range decl.Params {
		if out, ok := cfg.Out[p.Name]; ok {
			if !p.Pointer {
				return "", fmt.Errorf("%v: output parameter %v is not a pointer", decl.Name, p.Name)
			}
			size, err := out.ByteSize()
			if err != nil {
				return "", fmt.Errorf("%v: output %v: %w", decl.Name, p.Name, err)
			}
			allocs = append(allocs, allocation{varName: p.Name, sizeExpr: fmt.Sprint(size)})
			callArgs = append(callArgs, p.Name)
			if out.Type == "error" {
				errBuf = p.Name
			} else {
				outs = append(outs, outParam{param: p.Name, out: out})
			}
			continue
		}
		if slices.Contains(cfg.Strings, p.Name) {
			pub := strcase.ToLowerCamel(p.Name)
			buf := pub + "Ptr"
			publicParams = append(publicParams, pub)
			allocs = append(allocs, allocation{varName: buf, stringSrc: pub})
			callArgs = append(callArgs, buf)
			continue
		}
		if p.Name == houseSystemParam {
			publicParams = append(publicParams, houseSystemParam)
			callArgs = append(callArgs, "hsysCode")
			hsysConv = true
			continue
		}
		pub := strcase.ToLowerCamel(p.Name)
		publicParams = append(publicParams, pub)
		callArgs = append(callArgs, pub)
	}

	checked := cfg.Return == routines.CheckNegative || cfg.Return == routines.CheckError
	needRet := checked || (cfg.Return == routines.ReturnNumber && len(outs) == 0)

	var cb CodeBuilder
	cb.Linef(`// Wraps %v.`, decl.Name)
	cb.Linef(`%v(%v) {`, cfg.Name, strings.Join(publicParams, ", "))
	cb.Indent++

	if hsysConv {
		cb.Linef(`const hsysCode = typeof hsys === "string" ? hsys.charCodeAt(0) : hsys;`)
	}

	// Allocation plan: one free obligation per allocation. Buffers
	// allocate inside the protected region; a failed allocation must
	// not leak the earlier ones.
	if len(allocs) > 0 {
		for _, a := range allocs {
			cb.Linef(`let %v = 0;`, a.varName)
		}
		cb.Linef(`try {`)
		cb.Indent++
		for _, a := range allocs {
			if a.stringSrc != "" {
				cb.Linef(`%v = this._allocString(%v);`, a.varName, a.stringSrc)
			} else {
				cb.Linef(`%v = this._malloc(%v);`, a.varName, a.sizeExpr)
			}
		}
	}

	recv := ""
	if needRet {
		recv = "const ret = "
	}
	cb.Linef(`%vthis._wasm.%v(%v);`, recv, decl.Name, strings.Join(callArgs, ", "))

	if checked {
		cb.Linef(`if (ret < 0) {`)
		cb.Indent++
		if errBuf != "" {
			cb.Linef(`throw new Error(this._readString(%v) || %q);`, errBuf, decl.Name+" failed")
		} else {
			cb.Linef(`throw new Error(%q);`, decl.Name+" failed")
		}
		cb.Indent--
		cb.Linef(`}`)
	}

	if err := buildResult(&cb, decl, cfg, outs); err != nil {
		return "", err
	}

	// Cleanup: release every allocation exactly once, on every exit
	// path.
	if len(allocs) > 0 {
		cb.Indent--
		cb.Linef(`} finally {`)
		cb.Indent++
		for _, a := range allocs {
			cb.Linef(`if (%v) this._free(%v);`, a.varName, a.varName)
		}
		cb.Indent--
		cb.Linef(`}`)
	}

	cb.Indent--
	cb.Linef(`}`)
	return cb.String(), nil
}

func buildResult(cb *CodeBuilder, decl header.Routine, cfg routines.Config, outs []outParam) error {
	switch {
	case len(outs) == 0:
		if cfg.Return != routines.ReturnVoid {
			cb.Linef(`return ret;`)
		}
		return nil
	case cfg.Shape != "":
		shape, ok := shapes[cfg.Shape]
		if !ok {
			return fmt.Errorf("%v: unknown result shape %q", decl.Name, cfg.Shape)
		}
		if err := shape(cb, outs); err != nil {
			return fmt.Errorf("%v: %w", decl.Name, err)
		}
		return nil
	case len(outs) == 1:
		expr, err := readExpr(outs[0])
		if err != nil {
			return fmt.Errorf("%v: %w", decl.Name, err)
		}
		cb.Linef(`return %v;`, expr)
		return nil
	default:
		cb.Linef(`return {`)
		cb.Indent++
		for _, o := range outs {
			expr, err := readExpr(o)
			if err != nil {
				return fmt.Errorf("%v: %w", decl.Name, err)
			}
			cb.Linef(`%v: %v,`, fieldName(o), expr)
		}
		cb.Indent--
		cb.Linef(`};`)
		return nil
	}
}

// readExpr is the post-call read strategy for one output buffer.
func readExpr(o outParam) (string, error) {
	kind, err := o.out.Kind()
	if err != nil {
		return "", err
	}
	switch kind {
	case routines.Double:
		return fmt.Sprintf("this._readDouble(%v)", o.param), nil
	case routines.Int32:
		return fmt.Sprintf("this._readInt32(%v)", o.param), nil
	case routines.DoubleArray:
		return fmt.Sprintf("this._readDoubleArray(%v, %v)", o.param, o.out.Count), nil
	case routines.Int32Array:
		return fmt.Sprintf("this._readInt32Array(%v, %v)", o.param, o.out.Count), nil
	case routines.String:
		return fmt.Sprintf("this._readString(%v)", o.param), nil
	case routines.ErrorBuffer:
		return "", fmt.Errorf("error buffer %v cannot be a result field", o.param)
	}
	panic("unreachable")
}

func fieldName(o outParam) string {
	if o.out.Name != "" {
		return o.out.Name
	}
	return strcase.ToLowerCamel(o.param)
}
