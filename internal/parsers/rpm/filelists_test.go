// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFilelists = `<?xml version="1.0" encoding="UTF-8"?>
<filelists xmlns="http://linux.duke.edu/metadata/filelists" packages="2">
  <package pkgid="bashsha256" name="bash" arch="x86_64">
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <file>/usr/bin/bash</file>
  </package>
  <package pkgid="vanishedsha256" name="vanished" arch="x86_64">
    <version epoch="0" ver="1.0" rel="1.el9"/>
    <file>/usr/bin/vanished</file>
  </package>
</filelists>`

func TestParseFilelists(t *testing.T) {
	root, err := ParseFilelists([]byte(sampleFilelists))
	require.NoError(t, err)
	require.Len(t, root.Packages, 2)
	require.Equal(t, "bash", root.Packages[0].Name)
	require.NotEmpty(t, root.Packages[0].RawXML())
}

func TestFilterFilelistsPackagesDropsRemovedPackages(t *testing.T) {
	root, err := ParseFilelists([]byte(sampleFilelists))
	require.NoError(t, err)

	kept := FilterFilelistsPackages(root.Packages, map[string]bool{"bashsha256": true})
	require.Len(t, kept, 1)
	require.Equal(t, "bash", kept[0].Name)
}

func TestEncodeFilelistsRoundTrips(t *testing.T) {
	root, err := ParseFilelists([]byte(sampleFilelists))
	require.NoError(t, err)

	kept := FilterFilelistsPackages(root.Packages, map[string]bool{"bashsha256": true})
	out, err := EncodeFilelists(kept)
	require.NoError(t, err)

	reparsed, err := ParseFilelists(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Packages, 1)
	require.Equal(t, "bash", reparsed.Packages[0].Name)
}
