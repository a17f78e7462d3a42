// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleOther = `<?xml version="1.0" encoding="UTF-8"?>
<otherdata xmlns="http://linux.duke.edu/metadata/other" packages="2">
  <package pkgid="bashsha256" name="bash" arch="x86_64">
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <changelog author="Jane Doe" date="1700000000">Rebuilt.</changelog>
  </package>
  <package pkgid="vanishedsha256" name="vanished" arch="x86_64">
    <version epoch="0" ver="1.0" rel="1.el9"/>
    <changelog author="Jane Doe" date="1600000000">Initial release.</changelog>
  </package>
</otherdata>`

func TestParseOther(t *testing.T) {
	root, err := ParseOther([]byte(sampleOther))
	require.NoError(t, err)
	require.Len(t, root.Packages, 2)
	require.Equal(t, "bash", root.Packages[0].Name)
	require.NotEmpty(t, root.Packages[0].RawXML())
}

func TestFilterOtherPackagesDropsRemovedPackages(t *testing.T) {
	root, err := ParseOther([]byte(sampleOther))
	require.NoError(t, err)

	kept := FilterOtherPackages(root.Packages, map[string]bool{"bashsha256": true})
	require.Len(t, kept, 1)
	require.Equal(t, "bash", kept[0].Name)
}

func TestEncodeOtherRoundTrips(t *testing.T) {
	root, err := ParseOther([]byte(sampleOther))
	require.NoError(t, err)

	kept := FilterOtherPackages(root.Packages, map[string]bool{"bashsha256": true})
	out, err := EncodeOther(kept)
	require.NoError(t, err)

	reparsed, err := ParseOther(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Packages, 1)
	require.Equal(t, "bash", reparsed.Packages[0].Name)
}
