// SPDX-License-Identifier: Apache-2.0

package helm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleIndex = `apiVersion: v1
generated: "2026-01-01T00:00:00Z"
entries:
  nginx:
    - name: nginx
      version: 1.2.3
      appVersion: "1.25.0"
      digest: sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
      urls:
        - nginx-1.2.3.tgz
    - name: nginx
      version: 1.2.2
      digest: sha256:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb
      urls:
        - nginx-1.2.2.tgz
  redis:
    - name: redis
      version: 7.0.0
      digest: sha256:cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc
      urls:
        - redis-7.0.0.tgz
`

func TestParseIndex(t *testing.T) {
	idx, err := ParseIndex(strings.NewReader(sampleIndex))
	require.NoError(t, err)
	require.Equal(t, "v1", idx.APIVersion)
	require.Len(t, idx.Entries["nginx"], 2)
	require.Equal(t, "1.2.3", idx.Entries["nginx"][0].Version)
	require.Equal(t, []string{"nginx-1.2.3.tgz"}, idx.Entries["nginx"][0].URLs)

	flat := idx.Flatten()
	require.Len(t, flat, 3)
}

func TestParseIndexStripsControlCharacters(t *testing.T) {
	dirty := "apiVersion: v1\nentries:\n  foo:\n    - name: foo\n      version: \x01\x021.0.0\n      urls: [foo-1.0.0.tgz]\n"
	idx, err := ParseIndex(strings.NewReader(dirty))
	require.NoError(t, err)
	require.Equal(t, "1.0.0", idx.Entries["foo"][0].Version)
}

func TestEncodeIndexRoundTrips(t *testing.T) {
	idx, err := ParseIndex(strings.NewReader(sampleIndex))
	require.NoError(t, err)

	out, err := EncodeIndex(idx)
	require.NoError(t, err)

	reparsed, err := ParseIndex(strings.NewReader(string(out)))
	require.NoError(t, err)
	require.Len(t, reparsed.Entries["redis"], 1)
}
