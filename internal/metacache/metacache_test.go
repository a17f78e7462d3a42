// SPDX-License-Identifier: Apache-2.0

package metacache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("<primary/>")
	sum := sha256Hex(string(data))

	require.NoError(t, c.Put(sum, data))

	got, err := c.Get(sum, 0)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPutRejectsMismatchedChecksum(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	err = c.Put("deadbeef", []byte("anything"))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestGetRespectsMaxAge(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("payload")
	sum := sha256Hex(string(data))
	require.NoError(t, c.Put(sum, data))

	_, err = c.Get(sum, time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, err = c.Get(sum, time.Nanosecond)
	require.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(sum, time.Hour)
	require.NoError(t, err)
}

func TestPutStream(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	data := "streamed content"
	sum := sha256Hex(data)

	require.NoError(t, c.PutStream(sum, strings.NewReader(data)))

	got, err := c.Get(sum, 0)
	require.NoError(t, err)
	require.Equal(t, data, string(got))
}
