// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseConfig = `
database:
  url: catalog.db
storage:
  base_path: /var/lib/repoforge
repositories:
  - id: rhel9-baseos
    type: rpm
    feed: https://example.com/rhel9/baseos
    enabled: true
    mode: mirror
  - id: rhel9-appstream
    type: rpm
    feed: https://example.com/rhel9/appstream
    enabled: true
    mode: filtered
    filters:
      rpm:
        drop_source_rpms: true
views:
  - id: rhel9-combined
    type: rpm
    repositories: [rhel9-baseos, rhel9-appstream]
`

func TestLoadAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Repositories, 2)
	require.Len(t, cfg.Views, 1)
}

func TestLoadMergesIncludeGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra-a.yaml"), []byte(`
repositories:
  - id: extra-a
    type: helm
    feed: https://charts.example.com
    enabled: true
    mode: mirror
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra-b.yaml"), []byte(`
repositories:
  - id: extra-b
    type: apk
    feed: https://dl-cdn.alpinelinux.org/alpine
    enabled: true
    mode: mirror
`), 0o644))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: catalog.db
include: "extra-*.yaml"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Repositories, 2)
	require.Equal(t, "extra-a", cfg.Repositories[0].ID)
	require.Equal(t, "extra-b", cfg.Repositories[1].ID)
}

func TestValidateRejectsMirrorModeWithFilters(t *testing.T) {
	cfg := &Config{Repositories: []Repository{
		{ID: "r1", Type: "rpm", Feed: "https://x", Mode: "mirror", Filters: &FilterConfig{}},
	}}
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsViewTypeMismatch(t *testing.T) {
	cfg := &Config{
		Repositories: []Repository{
			{ID: "r1", Type: "rpm", Feed: "https://x", Mode: "mirror"},
			{ID: "r2", Type: "apt", Feed: "https://y", Mode: "mirror"},
		},
		Views: []View{{ID: "v1", Type: "rpm", Repositories: []string{"r1", "r2"}}},
	}
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsFilterFormatMismatch(t *testing.T) {
	cfg := &Config{Repositories: []Repository{
		{ID: "r1", Type: "rpm", Feed: "https://x", Mode: "filtered", Filters: &FilterConfig{
			DEB: &DEBFilterConfig{ComponentInclude: []string{"main"}},
		}},
	}}
	err := Validate(cfg)
	require.Error(t, err)
}
