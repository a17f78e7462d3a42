// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/mirror/internal/catalog"
)

func TestApplyGenericSizeAndArch(t *testing.T) {
	records := []Record{
		{Name: "a", Arch: "x86_64", SizeBytes: 100},
		{Name: "b", Arch: "src", SizeBytes: 200},
		{Name: "c", Arch: "x86_64", SizeBytes: 5000},
	}
	out, err := Apply(catalog.RPM, records, Config{SizeMax: 1000, ArchExclude: []string{"src"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "a", out[0].Name)
}

func TestApplyRPMDropsSourceRPMsAndGroup(t *testing.T) {
	records := []Record{
		{Name: "httpd", Arch: "x86_64", Group: "System Environment/Daemons"},
		{Name: "httpd", Arch: "src", Group: "System Environment/Daemons"},
		{Name: "vim", Arch: "x86_64", Group: "Applications/Editors"},
	}
	out, err := Apply(catalog.RPM, records, Config{
		RPMDropSourceRPMs: true,
		RPMGroupInclude:   []string{"System Environment/Daemons"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "httpd", out[0].Name)
	require.Equal(t, "x86_64", out[0].Arch)
}

func TestApplyPatternFilters(t *testing.T) {
	records := []Record{
		{Name: "libfoo", Label: "libfoo-1.0-1.x86_64"},
		{Name: "libfoo-devel", Label: "libfoo-devel-1.0-1.x86_64"},
		{Name: "bar", Label: "bar-1.0-1.x86_64"},
	}
	out, err := Apply(catalog.RPM, records, Config{
		IncludePatterns: []string{"lib.*"},
		ExcludePatterns: []string{"lib.*-devel"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "libfoo", out[0].Name)
}

func TestApplyLatestNVersionsPerNameArch(t *testing.T) {
	records := []Record{
		{Name: "bash", Arch: "x86_64", Version: "4.0-1"},
		{Name: "bash", Arch: "x86_64", Version: "5.2-3"},
		{Name: "bash", Arch: "x86_64", Version: "5.1-1"},
		{Name: "bash", Arch: "aarch64", Version: "5.0-1"},
	}
	out, err := Apply(catalog.RPM, records, Config{OnlyLatestNVersions: 2})
	require.NoError(t, err)

	var x86 []Record
	for _, r := range out {
		if r.Arch == "x86_64" {
			x86 = append(x86, r)
		}
	}
	require.Len(t, x86, 2)
	require.Equal(t, "5.2-3", x86[0].Version)
	require.Equal(t, "5.1-1", x86[1].Version)
}

func TestApplyDEBComponentAndPriority(t *testing.T) {
	records := []Record{
		{Name: "bash", Component: "main", Priority: "required"},
		{Name: "vim-nox", Component: "universe", Priority: "optional"},
	}
	out, err := Apply(catalog.DEB, records, Config{DEBComponentInclude: []string{"main"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bash", out[0].Name)
}
