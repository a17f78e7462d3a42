// SPDX-License-Identifier: Apache-2.0

package apk

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleIndex = `C:Q1aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa=
P:musl
V:1.2.4-r2
A:x86_64
S:123456
I:654321
T:the musl c library
U:https://musl.libc.org/
L:MIT
D:so:libc.musl-x86_64.so.1
p:so:libc.musl-x86_64.so.1=1
o:musl
m:Alpine Maintainer <maint@alpinelinux.org>
t:1700000000

C:Q1bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb=
P:busybox
V:1.36.1-r2
A:x86_64
S:900000
`

func TestWalkAPKIndex(t *testing.T) {
	var got []Package
	err := WalkAPKIndex(strings.NewReader(sampleIndex), func(pkg Package) error {
		got = append(got, pkg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "musl", got[0].Name)
	require.Equal(t, "1.2.4-r2", got[0].Version)
	require.Equal(t, "x86_64", got[0].Architecture)
	require.Equal(t, int64(123456), got[0].Size)
	require.Equal(t, "musl-1.2.4-r2.apk", got[0].Filename())

	require.Equal(t, "busybox", got[1].Name)
}

func TestDecodedChecksumRequiresQ1Prefix(t *testing.T) {
	pkg := Package{Checksum: "Q1aGVsbG8="}
	raw, err := pkg.DecodedChecksum()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), raw)

	bad := Package{Checksum: "aGVsbG8="}
	_, err = bad.DecodedChecksum()
	require.Error(t, err)
}

func TestWalkAPKIndexTarGz(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := []byte(sampleIndex)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "APKINDEX", Size: int64(len(body)), Mode: 0o644}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	var got []Package
	err = WalkAPKIndexTarGz(&buf, func(pkg Package) error {
		got = append(got, pkg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestEncodeAPKIndexTarGzRoundTrips(t *testing.T) {
	pkgs := []Package{
		{Checksum: "Q1aaaa=", Name: "musl", Version: "1.2.4-r2", Architecture: "x86_64", Size: 123456},
	}
	data, err := EncodeAPKIndexTarGz(pkgs)
	require.NoError(t, err)

	var got []Package
	err = WalkAPKIndexTarGz(bytes.NewReader(data), func(pkg Package) error {
		got = append(got, pkg)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "musl", got[0].Name)
}
