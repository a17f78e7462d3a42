// SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadToTempVerifiesChecksum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("package contents"))
	}))
	defer srv.Close()

	c, err := New(Config{})
	require.NoError(t, err)

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.rpm")

	// a digest that does not match the served body
	const want = "b1c5cbb1ef7b7bbb8c8a3a6a2c6a1b9f7e6b5f4a3e2d1c0b9a8f7e6d5c4b3a20"
	_, err = c.DownloadToTemp(context.Background(), srv.URL, dir, dest, want)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr))

	size, err := c.DownloadToTemp(context.Background(), srv.URL, dir, dest, "")
	require.NoError(t, err)
	require.Equal(t, int64(len("package contents")), size)
	require.FileExists(t, dest)
}

func TestGetRetriesOnFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(Config{RetryCount: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, err)

	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	require.Equal(t, 3, attempts)
}

func TestAuthBasicAppliesHeader(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
	}))
	defer srv.Close()

	c, err := New(Config{Auth: Auth{Kind: AuthBasic, Username: "alice", Password: "secret"}})
	require.NoError(t, err)

	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()

	require.Equal(t, "alice", gotUser)
	require.Equal(t, "secret", gotPass)
}
