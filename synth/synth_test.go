package synth

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swephjs/swegen/header"
	"github.com/swephjs/swegen/routines"
)

func mustTable(t *testing.T) *routines.Table {
	t.Helper()
	table, err := routines.Default()
	require.NoError(t, err)
	return table
}

func declCalcUt() header.Routine {
	return header.Routine{
		Name:   "swe_calc_ut",
		Return: "int32",
		Params: []header.Param{
			{Type: "double", Name: "tjd_ut"},
			{Type: "int32", Name: "ipl"},
			{Type: "int32", Name: "iflag"},
			{Type: "double", Name: "xx", Pointer: true},
			{Type: "char", Name: "serr", Pointer: true},
		},
	}
}

func declHouses() header.Routine {
	return header.Routine{
		Name:   "swe_houses",
		Return: "int32",
		Params: []header.Param{
			{Type: "double", Name: "tjd_ut"},
			{Type: "double", Name: "geolat"},
			{Type: "double", Name: "geolon"},
			{Type: "int", Name: "hsys"},
			{Type: "double", Name: "cusps", Pointer: true},
			{Type: "double", Name: "ascmc", Pointer: true},
		},
	}
}

func TestRoutineDefaultFallback(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	decl := header.Routine{
		Name:   "swe_solcross_ut",
		Return: "double",
		Params: []header.Param{
			{Type: "double", Name: "x2cross"},
			{Type: "double", Name: "jd_ut"},
			{Type: "int32", Name: "flag"},
		},
	}
	src, err := Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)

	require.Contains(src, "solcrossUt(x2Cross, jdUt, flag) {")
	require.Contains(src, "const ret = this._wasm.swe_solcross_ut(x2Cross, jdUt, flag);")
	require.Contains(src, "return ret;")
	require.NotContains(src, "_malloc")
	require.NotContains(src, "_free")
	require.NotContains(src, "try {")
}

func TestRoutineOutputsAndErrorCheck(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	src, err := Routine(declCalcUt(), table.Lookup("swe_calc_ut"))
	require.NoError(err)

	// output parameters leave the public signature
	require.Contains(src, "calcUt(tjdUt, ipl, iflag) {")
	require.Contains(src, "let xx = 0;")
	require.Contains(src, "xx = this._malloc(48);")
	require.Contains(src, "serr = this._malloc(256);")
	require.Contains(src, "this._wasm.swe_calc_ut(tjdUt, ipl, iflag, xx, serr);")
	require.Contains(src, `throw new Error(this._readString(serr) || "swe_calc_ut failed");`)

	// allocations happen inside the protected region, so a failing
	// allocation cannot leak an earlier one, and every free is guarded
	require.Less(strings.Index(src, "try {"), strings.Index(src, "this._malloc("))
	require.Contains(src, "if (xx) this._free(xx);")
	require.Contains(src, "if (serr) this._free(serr);")
	requireBalancedAllocs(t, src)

	// body-position shape fields, in layout order
	fields := []string{
		"longitude: this._readDouble(xx),",
		"latitude: this._readDouble(xx + 8),",
		"distance: this._readDouble(xx + 16),",
		"longitudeSpeed: this._readDouble(xx + 24),",
		"latitudeSpeed: this._readDouble(xx + 32),",
		"distanceSpeed: this._readDouble(xx + 40),",
	}
	last := -1
	for _, f := range fields {
		i := strings.Index(src, f)
		require.NotEqual(-1, i, "missing field %q", f)
		require.Greater(i, last)
		last = i
	}
}

func TestRoutineHouses(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	src, err := Routine(declHouses(), table.Lookup("swe_houses"))
	require.NoError(err)

	// symbolic house system codes convert to their ordinal at the call
	// site
	require.Contains(src, "houses(tjdUt, geolat, geolon, hsys) {")
	require.Contains(src, `const hsysCode = typeof hsys === "string" ? hsys.charCodeAt(0) : hsys;`)
	require.Contains(src, "this._wasm.swe_houses(tjdUt, geolat, geolon, hsysCode, cusps, ascmc);")

	// the unused first cusp slot is dropped
	require.Contains(src, "houses: this._readDoubleArray(cusps + 8, 12),")
	require.Contains(src, "ascendant: this._readDouble(ascmc),")
	require.Contains(src, "mc: this._readDouble(ascmc + 8),")

	// no error buffer configured: the fallback message is used
	require.Contains(src, `throw new Error("swe_houses failed");`)
	requireBalancedAllocs(t, src)
}

func TestRoutineStringInput(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	decl := header.Routine{
		Name:   "swe_fixstar_ut",
		Return: "int32",
		Params: []header.Param{
			{Type: "char", Name: "star", Pointer: true},
			{Type: "double", Name: "tjd_ut"},
			{Type: "int32", Name: "iflag"},
			{Type: "double", Name: "xx", Pointer: true},
			{Type: "char", Name: "serr", Pointer: true},
		},
	}
	src, err := Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)

	// the string input keeps its position in the public signature
	require.Contains(src, "fixstarUt(star, tjdUt, iflag) {")
	require.Contains(src, "starPtr = this._allocString(star);")
	require.Less(strings.Index(src, "try {"), strings.Index(src, "this._allocString("))
	require.Contains(src, "this._wasm.swe_fixstar_ut(starPtr, tjdUt, iflag, xx, serr);")
	require.Contains(src, "if (starPtr) this._free(starPtr);")
	requireBalancedAllocs(t, src)
}

func TestRoutineVoidAggregate(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	decl := header.Routine{
		Name:   "swe_revjul",
		Return: "void",
		Params: []header.Param{
			{Type: "double", Name: "jd"},
			{Type: "int", Name: "gregflag"},
			{Type: "int", Name: "jyear", Pointer: true},
			{Type: "int", Name: "jmon", Pointer: true},
			{Type: "int", Name: "jday", Pointer: true},
			{Type: "double", Name: "jut", Pointer: true},
		},
	}
	src, err := Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)

	require.Contains(src, "revjul(jd, gregflag) {")
	require.NotContains(src, "const ret =")
	require.Contains(src, "year: this._readInt32(jyear),")
	require.Contains(src, "month: this._readInt32(jmon),")
	require.Contains(src, "day: this._readInt32(jday),")
	require.Contains(src, "hour: this._readDouble(jut),")
	requireBalancedAllocs(t, src)
}

func TestRoutineSingleOutputs(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	// single scalar output is returned directly
	decl := header.Routine{
		Name:   "swe_get_ayanamsa_ex_ut",
		Return: "int32",
		Params: []header.Param{
			{Type: "double", Name: "tjd_ut"},
			{Type: "int32", Name: "iflag"},
			{Type: "double", Name: "daya", Pointer: true},
			{Type: "char", Name: "serr", Pointer: true},
		},
	}
	src, err := Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)
	require.Contains(src, "return this._readDouble(daya);")

	// single string output decodes the buffer
	decl = header.Routine{
		Name:   "swe_get_planet_name",
		Return: "char *",
		Params: []header.Param{
			{Type: "int", Name: "ipl"},
			{Type: "char", Name: "spname", Pointer: true},
		},
	}
	src, err = Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)
	require.Contains(src, "spname = this._malloc(220);")
	require.Contains(src, "return this._readString(spname);")
	requireBalancedAllocs(t, src)
}

func TestRoutineSkip(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	decl := header.Routine{
		Name:   "swe_date_conversion",
		Return: "int",
		Params: []header.Param{
			{Type: "int", Name: "y"},
			{Type: "double", Name: "tjd", Pointer: true},
		},
	}
	src, err := Routine(decl, table.Lookup(decl.Name))
	require.NoError(err)
	require.Empty(src)
}

func TestRoutineConfigValidation(t *testing.T) {
	require := require.New(t)

	// configured output that is not a declared parameter
	_, err := Routine(
		header.Routine{Name: "swe_x", Params: []header.Param{{Type: "double", Name: "a"}}},
		routines.Config{Name: "x", Return: routines.ReturnNumber, Out: map[string]routines.Output{
			"missing": {Type: "double"},
		}},
	)
	require.ErrorContains(err, "missing")

	// configured output that is not a pointer parameter
	_, err = Routine(
		header.Routine{Name: "swe_x", Params: []header.Param{{Type: "double", Name: "a"}}},
		routines.Config{Name: "x", Return: routines.ReturnNumber, Out: map[string]routines.Output{
			"a": {Type: "double"},
		}},
	)
	require.ErrorContains(err, "not a pointer")

	// unknown result shape
	_, err = Routine(
		header.Routine{Name: "swe_x", Params: []header.Param{{Type: "double", Name: "a", Pointer: true}}},
		routines.Config{Name: "x", Return: routines.ReturnNumber, Shape: "nonsense", Out: map[string]routines.Output{
			"a": {Type: "double", Count: 6},
		}},
	)
	require.ErrorContains(err, "nonsense")
}

// Every wrapper generated from the full sample header must allocate
// and free in 1:1 correspondence.
func TestAllocationFreeBalance(t *testing.T) {
	require := require.New(t)
	table := mustTable(t)

	src, err := os.ReadFile("../testdata/swephexp.h")
	require.NoError(err)
	set, err := header.Parse(src)
	require.NoError(err)
	require.NotEmpty(set.Routines)

	for _, decl := range set.Routines {
		wrapper, err := Routine(decl, table.Lookup(decl.Name))
		require.NoError(err, decl.Name)
		if wrapper == "" {
			continue
		}
		requireBalancedAllocs(t, wrapper)
		if strings.Contains(wrapper, "_malloc(") || strings.Contains(wrapper, "_allocString(") {
			// all allocations are released through a finally block
			require.Contains(wrapper, "} finally {", decl.Name)
		}
	}
}

func requireBalancedAllocs(t *testing.T, wrapper string) {
	t.Helper()
	allocs := strings.Count(wrapper, "this._malloc(") + strings.Count(wrapper, "this._allocString(")
	frees := strings.Count(wrapper, "this._free(")
	require.Equal(t, allocs, frees, "allocations and frees must balance:\n%v", wrapper)
}
