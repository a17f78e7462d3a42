// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleUpdateInfo = `<?xml version="1.0" encoding="UTF-8"?>
<updates>
  <update type="security">
    <id>RLSA-2024:0001</id>
    <title>Important bash fix</title>
    <severity>Important</severity>
    <issued date="2024-01-02"/>
    <pkglist>
      <collection>
        <package name="bash" epoch="0" version="5.1.8" release="6.el9" arch="x86_64">
          <filename>bash-5.1.8-6.el9.x86_64.rpm</filename>
        </package>
      </collection>
    </pkglist>
  </update>
  <update type="bugfix">
    <id>RLSA-2024:0002</id>
    <title>Removed package fix</title>
    <pkglist>
      <collection>
        <package name="vanished" epoch="0" version="1.0" release="1.el9" arch="x86_64">
          <filename>vanished-1.0-1.el9.x86_64.rpm</filename>
        </package>
      </collection>
    </pkglist>
  </update>
</updates>`

func TestParseUpdateInfo(t *testing.T) {
	root, err := ParseUpdateInfo([]byte(sampleUpdateInfo))
	require.NoError(t, err)
	require.Len(t, root.Updates, 2)

	first := root.Updates[0]
	require.Equal(t, "RLSA-2024:0001", first.ID)
	require.Len(t, first.PackageList, 1)
	require.Equal(t, "bash-5.1.8-6.el9.x86_64", first.PackageList[0].NVRA())
	require.NotEmpty(t, first.RawXML())
}

func TestFilterUpdatesDropsReferencesToRemovedPackages(t *testing.T) {
	root, err := ParseUpdateInfo([]byte(sampleUpdateInfo))
	require.NoError(t, err)

	keep := map[string]bool{"bash-5.1.8-6.el9.x86_64": true}
	kept := FilterUpdates(root.Updates, keep)

	require.Len(t, kept, 1)
	require.Equal(t, "RLSA-2024:0001", kept[0].ID)
}

func TestEncodeUpdateInfoRoundTrips(t *testing.T) {
	root, err := ParseUpdateInfo([]byte(sampleUpdateInfo))
	require.NoError(t, err)

	keep := map[string]bool{"bash-5.1.8-6.el9.x86_64": true}
	kept := FilterUpdates(root.Updates, keep)

	out, err := EncodeUpdateInfo(kept)
	require.NoError(t, err)

	reparsed, err := ParseUpdateInfo(out)
	require.NoError(t, err)
	require.Len(t, reparsed.Updates, 1)
	require.Equal(t, "RLSA-2024:0001", reparsed.Updates[0].ID)
}
