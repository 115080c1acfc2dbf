package routines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

func TestDefaultTable(t *testing.T) {
	require := require.New(t)

	table, err := Default()
	require.NoError(err)
	require.Equal("swe_", table.Prefix)
	require.NotEmpty(table.Routines)

	calc, ok := table.Routines["swe_calc_ut"]
	require.True(ok)
	require.Equal("calcUt", calc.Name)
	require.Equal(CheckNegative, calc.Return)
	require.Equal("body-position", calc.Shape)
	require.Equal("serr", calc.ErrorOut())
	require.Equal(Output{Type: "double", Count: 6}, calc.Out["xx"])
}

func TestLookupDefaultFallback(t *testing.T) {
	require := require.New(t)

	table, err := Default()
	require.NoError(err)

	// a routine absent from the table gets a derived friendly name,
	// no outputs and a numeric pass-through return
	cfg := table.Lookup("swe_solcross_ut")
	require.Equal("solcrossUt", cfg.Name)
	require.Equal(ReturnNumber, cfg.Return)
	require.Empty(cfg.Out)
	require.Empty(cfg.Strings)
	require.False(cfg.Skip)
}

func TestOutputByteSize(t *testing.T) {
	require := require.New(t)

	for _, tc := range []struct {
		out  Output
		size int
	}{
		{Output{Type: "double"}, 8},
		{Output{Type: "double", Count: 6}, 48},
		{Output{Type: "double", Count: 13}, 104},
		{Output{Type: "int32"}, 4},
		{Output{Type: "int32", Count: 3}, 12},
		{Output{Type: "string", Size: 220}, 220},
		{Output{Type: "error", Size: 256}, 256},
	} {
		size, err := tc.out.ByteSize()
		require.NoError(err)
		require.Equal(tc.size, size, "%+v", tc.out)
	}

	_, err := Output{Type: "float80"}.ByteSize()
	require.Error(err)
	_, err = Output{Type: "string"}.ByteSize()
	require.Error(err)
}

func TestLoadOverride(t *testing.T) {
	require := require.New(t)

	ar, err := txtar.ParseFile(filepath.Join("testdata", "override.txtar"))
	require.NoError(err)

	dir := t.TempDir()
	for _, f := range ar.Files {
		require.NoError(os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o666))
	}

	table, err := Load(filepath.Join(dir, "override.toml"))
	require.NoError(err)

	// values set in the override entry take precedence
	calc := table.Routines["swe_calc_ut"]
	require.Equal("positionUt", calc.Name)
	// fields the override leaves unset keep the built-in configuration
	require.Equal(CheckNegative, calc.Return)
	require.Equal("body-position", calc.Shape)
	require.Equal(Output{Type: "double", Count: 6}, calc.Out["xx"])
	require.Equal("serr", calc.ErrorOut())

	require.True(table.Routines["swe_degnorm"].Skip)
	// untouched built-in entries survive the merge
	require.Equal("houses", table.Routines["swe_houses"].Name)
	require.Equal("swe_", table.Prefix)
}

func TestLoadBadTOML(t *testing.T) {
	require := require.New(t)

	ar, err := txtar.ParseFile(filepath.Join("testdata", "override.txtar"))
	require.NoError(err)

	dir := t.TempDir()
	for _, f := range ar.Files {
		require.NoError(os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o666))
	}

	_, err = Load(filepath.Join(dir, "broken.toml"))
	require.Error(err)
}
