// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStanzasHandlesContinuationsAndBlankParagraphLines(t *testing.T) {
	input := "Package: bash\n" +
		"Description: The GNU shell\n" +
		" Bash is a shell.\n" +
		" .\n" +
		" It is widely used.\n" +
		"\n" +
		"Package: zlib\n" +
		"Description: compression library\n"

	stanzas, err := ParseStanzas(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stanzas, 2)

	require.Equal(t, "bash", stanzas[0].Get("Package"))
	require.Equal(t, "The GNU shell\nBash is a shell.\n\nIt is widely used.", stanzas[0].Get("Description"))

	require.Equal(t, "zlib", stanzas[1].Get("Package"))
	require.False(t, stanzas[1].Has("Missing"))
}
