// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePackages = `Package: bash
Version: 5.2-3
Architecture: amd64
Depends: libc6 (>= 2.34)
SHA256: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
Size: 1500000
Filename: pool/main/b/bash/bash_5.2-3_amd64.deb
Priority: required
Section: shells

Package: zlib1g
Version: 1.2.13
Architecture: amd64
SHA256: bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb
Size: 92000
Filename: pool/main/z/zlib/zlib1g_1.2.13_amd64.deb
Priority: optional
Section: libs
`

func TestWalkPackages(t *testing.T) {
	var got []Package
	err := WalkPackages(strings.NewReader(samplePackages), "main", func(pkg Package) error {
		got = append(got, pkg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "bash", got[0].Name)
	require.Equal(t, "5.2-3", got[0].Version)
	require.Equal(t, int64(1500000), got[0].Size)
	require.Equal(t, "main", got[0].Component)
	require.Equal(t, "required", got[0].Priority)

	require.Equal(t, "zlib1g", got[1].Name)
}
