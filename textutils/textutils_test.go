package textutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndentString(t *testing.T) {
	require := require.New(t)

	require.Equal(`  Hello
  World`,
		IndentString(`Hello
World`, "  ", 1),
	)

	require.Equal(`  Hello
  World
`,
		IndentString(`Hello
World
`, "  ", 1),
	)

	require.Equal(`  Hello

  World
`,
		IndentString(`Hello

World
`, "  ", 1),
	)
}

func TestStripComments(t *testing.T) {
	require := require.New(t)

	require.Equal(
		"#define SE_SUN 0 ",
		StripComments("#define SE_SUN 0 /* the sun */"),
	)
	require.Equal(
		"#define SE_SUN 0 ",
		StripComments("#define SE_SUN 0 // the sun"),
	)
	// Newlines inside a block comment survive.
	require.Equal(
		"a \n\nb",
		StripComments("a /* x\ny */\nb"),
	)
}
