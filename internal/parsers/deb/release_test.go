// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleInRelease = `-----BEGIN PGP SIGNED MESSAGE-----
Hash: SHA256

Suite: stable
Codename: bookworm
Architectures: amd64 arm64
Components: main contrib
MD5Sum:
 d41d8cd98f00b204e9800998ecf8427e            0 main/binary-amd64/Packages
SHA256:
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855          1234 main/binary-amd64/Packages
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b856           567 main/binary-arm64/Packages
-----BEGIN PGP SIGNATURE-----

iQEzBAEBCAAdFiEE...
-----END PGP SIGNATURE-----
`

func TestParseInRelease(t *testing.T) {
	rel, err := ParseInRelease(strings.NewReader(sampleInRelease))
	require.NoError(t, err)

	require.Equal(t, "stable", rel.Suite)
	require.Equal(t, "bookworm", rel.Codename)
	require.Equal(t, []string{"amd64", "arm64"}, rel.Architectures)
	require.Equal(t, []string{"main", "contrib"}, rel.Components)
	require.Len(t, rel.SHA256, 2)

	entry, ok := rel.SHA256For("main/binary-amd64/Packages")
	require.True(t, ok)
	require.Equal(t, int64(1234), entry.Size)
}
