// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePrimary = `<?xml version="1.0" encoding="UTF-8"?>
<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="2">
  <package type="rpm">
    <name>bash</name>
    <arch>x86_64</arch>
    <version epoch="0" ver="5.1.8" rel="6.el9"/>
    <checksum type="sha256" pkgid="YES">aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa</checksum>
    <location href="Packages/b/bash-5.1.8-6.el9.x86_64.rpm"/>
    <size package="1700000"/>
    <time build="1600000000"/>
    <format>
      <rpm:license>GPLv3+</rpm:license>
      <rpm:vendor>Rocky</rpm:vendor>
      <rpm:group>Unspecified</rpm:group>
      <rpm:sourcerpm>bash-5.1.8-6.el9.src.rpm</rpm:sourcerpm>
    </format>
  </package>
  <package type="rpm">
    <name>zlib</name>
    <arch>x86_64</arch>
    <version epoch="1" ver="1.2.11" rel="21.el9"/>
    <checksum type="sha256" pkgid="YES">bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb</checksum>
    <location href="Packages/z/zlib-1.2.11-21.el9.x86_64.rpm"/>
    <size package="92000"/>
  </package>
</metadata>`

func TestWalkPrimary(t *testing.T) {
	var got []Package
	total := 0

	err := WalkPrimary(strings.NewReader(samplePrimary), func(pkg Package, totalPackages int) error {
		got = append(got, pkg)
		total = totalPackages
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, got, 2)

	require.Equal(t, "bash", got[0].Name)
	require.Equal(t, "x86_64", got[0].Arch)
	require.Equal(t, "5.1.8", got[0].Version)
	require.Equal(t, "6.el9", got[0].Release)
	require.Equal(t, "Packages/b/bash-5.1.8-6.el9.x86_64.rpm", got[0].Href)
	require.Equal(t, int64(1700000), got[0].Size)
	require.Equal(t, "GPLv3+", got[0].License)
	require.Equal(t, "bash-5.1.8-6.el9.src.rpm", got[0].SourceRPM)
	require.Equal(t, "bash-5.1.8-6.el9.x86_64", got[0].NEVRA())

	require.Equal(t, "zlib", got[1].Name)
	require.Equal(t, "1", got[1].Epoch)
	require.Equal(t, "zlib-1:1.2.11-21.el9.x86_64", got[1].NEVRA())
}

const sampleRepomd = `<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo">
  <revision>1700000000</revision>
  <data type="primary">
    <checksum type="sha256">cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc</checksum>
    <location href="repodata/primary.xml.gz"/>
    <timestamp>1700000000</timestamp>
    <size>1234</size>
    <open-size>5678</open-size>
  </data>
  <data type="updateinfo">
    <checksum type="sha256">dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd</checksum>
    <location href="repodata/updateinfo.xml.gz"/>
    <timestamp>1700000000</timestamp>
    <size>99</size>
  </data>
</repomd>`

func TestParseRepomd(t *testing.T) {
	root, err := ParseRepomd(strings.NewReader(sampleRepomd))
	require.NoError(t, err)
	require.Len(t, root.Data, 2)

	primary := root.DataByType(PrimaryDataType)
	require.NotNil(t, primary)
	require.Equal(t, "repodata/primary.xml.gz", primary.Location.Href)
	require.Equal(t, int64(1234), primary.Size)

	require.Nil(t, root.DataByType(FilelistsDataType))
}
