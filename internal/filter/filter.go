// SPDX-License-Identifier: Apache-2.0

// Package filter evaluates generic and format-specific filter rules
// against parsed package/chart/apk records before the sync pipeline
// downloads them, plus the latest-N post-processing pass applied to the
// surviving set.
package filter

import (
	"regexp"

	"github.com/Masterminds/semver/v3"
	apkversion "github.com/knqyf263/go-apk-version"
	debversion "github.com/knqyf263/go-deb-version"
	rpmversion "github.com/knqyf263/go-rpm-version"

	"github.com/repoforge/mirror/internal/catalog"
)

// Record is the normalized shape every format's parser adapts its output
// into before filtering. Fields not meaningful to a given format are left
// zero.
type Record struct {
	Name    string
	Arch    string
	Version string // format-native version string used for ordering/compare
	Label   string // full identity string pattern filters match against (NEVRA for RPM, name for others)

	SizeBytes int64
	BuildTime int64 // unix seconds, 0 if unknown

	// RPM-specific
	SourceRPM string
	Group     string
	License   string
	Vendor    string

	// DEB-specific
	Component string
	Priority  string
}

// Config is one repository's filter configuration. Zero values mean
// "unrestricted" for every field.
type Config struct {
	SizeMin int64
	SizeMax int64

	NewerThanUnix int64 // BuildTime must be >= this
	OlderThanUnix int64 // BuildTime must be <= this

	ArchInclude []string
	ArchExclude []string

	RPMDropSourceRPMs bool
	RPMGroupInclude   []string
	RPMGroupExclude   []string
	RPMLicenseInclude []string
	RPMLicenseExclude []string
	RPMVendorInclude  []string
	RPMVendorExclude  []string

	DEBComponentInclude []string
	DEBComponentExclude []string
	DEBPriorityInclude  []string
	DEBPriorityExclude  []string

	IncludePatterns []string // anchored regex, compiled lazily
	ExcludePatterns []string

	OnlyLatestVersion   bool
	OnlyLatestNVersions int
}

// Apply runs cfg's generic, format-specific, and pattern filters against
// records in the order described by the filter engine design (short-
// circuiting on the first rejecting rule), then applies the latest-N
// post-processing pass to the surviving set.
func Apply(format catalog.ContentType, records []Record, cfg Config) ([]Record, error) {
	include, err := compilePatterns(cfg.IncludePatterns)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	var kept []Record
	for _, r := range records {
		if !passesGeneric(r, cfg) {
			continue
		}
		if !passesFormatSpecific(format, r, cfg) {
			continue
		}
		if !passesPatterns(r, include, exclude) {
			continue
		}
		kept = append(kept, r)
	}

	if cfg.OnlyLatestVersion {
		return latestN(format, kept, 1), nil
	}
	if cfg.OnlyLatestNVersions > 0 {
		return latestN(format, kept, cfg.OnlyLatestNVersions), nil
	}
	return kept, nil
}

func passesGeneric(r Record, cfg Config) bool {
	if cfg.SizeMin > 0 && r.SizeBytes < cfg.SizeMin {
		return false
	}
	if cfg.SizeMax > 0 && r.SizeBytes > cfg.SizeMax {
		return false
	}
	if cfg.NewerThanUnix > 0 && r.BuildTime != 0 && r.BuildTime < cfg.NewerThanUnix {
		return false
	}
	if cfg.OlderThanUnix > 0 && r.BuildTime != 0 && r.BuildTime > cfg.OlderThanUnix {
		return false
	}
	if len(cfg.ArchInclude) > 0 && !contains(cfg.ArchInclude, r.Arch) {
		return false
	}
	if contains(cfg.ArchExclude, r.Arch) {
		return false
	}
	return true
}

func passesFormatSpecific(format catalog.ContentType, r Record, cfg Config) bool {
	switch format {
	case catalog.RPM:
		if cfg.RPMDropSourceRPMs && r.Arch == "src" {
			return false
		}
		if len(cfg.RPMGroupInclude) > 0 && !contains(cfg.RPMGroupInclude, r.Group) {
			return false
		}
		if contains(cfg.RPMGroupExclude, r.Group) {
			return false
		}
		if len(cfg.RPMLicenseInclude) > 0 && !contains(cfg.RPMLicenseInclude, r.License) {
			return false
		}
		if contains(cfg.RPMLicenseExclude, r.License) {
			return false
		}
		if len(cfg.RPMVendorInclude) > 0 && !contains(cfg.RPMVendorInclude, r.Vendor) {
			return false
		}
		if contains(cfg.RPMVendorExclude, r.Vendor) {
			return false
		}
	case catalog.DEB:
		if len(cfg.DEBComponentInclude) > 0 && !contains(cfg.DEBComponentInclude, r.Component) {
			return false
		}
		if contains(cfg.DEBComponentExclude, r.Component) {
			return false
		}
		if len(cfg.DEBPriorityInclude) > 0 && !contains(cfg.DEBPriorityInclude, r.Priority) {
			return false
		}
		if contains(cfg.DEBPriorityExclude, r.Priority) {
			return false
		}
	}
	return true
}

func passesPatterns(r Record, include, exclude []*regexp.Regexp) bool {
	for _, re := range exclude {
		if re.MatchString(r.Name) || (r.Label != "" && re.MatchString(r.Label)) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, re := range include {
		if re.MatchString(r.Name) || (r.Label != "" && re.MatchString(r.Label)) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// latestN groups records by (name, arch) and keeps the n highest-versioned
// entries in each group, using the version-comparator that matches format.
// Groups are otherwise left in their original relative order.
func latestN(format catalog.ContentType, records []Record, n int) []Record {
	type group struct {
		key     string
		members []Record
	}

	order := make([]string, 0)
	groups := make(map[string]*group)
	for _, r := range records {
		key := r.Name + "\x00" + r.Arch
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, r)
	}

	var out []Record
	for _, key := range order {
		g := groups[key]
		sortByVersionDescending(format, g.members)
		if len(g.members) > n {
			g.members = g.members[:n]
		}
		out = append(out, g.members...)
	}
	return out
}

func sortByVersionDescending(format catalog.ContentType, records []Record) {
	less := versionLess(format)
	// insertion sort: these groups are small (one repository's versions of
	// a single package), and it keeps the comparator error-tolerant without
	// pulling in sort.Slice's interface overhead for a handful of elements.
	for i := 1; i < len(records); i++ {
		j := i
		for j > 0 && less(records[j-1], records[j]) {
			records[j-1], records[j] = records[j], records[j-1]
			j--
		}
	}
}

// versionLess returns a function reporting whether a's version sorts
// before b's version for the given format, falling back to a
// lexicographic comparison when either version string fails to parse
// under the format's native scheme.
func versionLess(format catalog.ContentType) func(a, b Record) bool {
	switch format {
	case catalog.RPM:
		return func(a, b Record) bool {
			return rpmversion.NewVersion(a.Version).Compare(rpmversion.NewVersion(b.Version)) < 0
		}
	case catalog.DEB:
		return func(a, b Record) bool {
			va, erra := debversion.NewVersion(a.Version)
			vb, errb := debversion.NewVersion(b.Version)
			if erra != nil || errb != nil {
				return a.Version < b.Version
			}
			return va.LessThan(vb)
		}
	case catalog.APK:
		return func(a, b Record) bool {
			va, erra := apkversion.NewVersion(a.Version)
			vb, errb := apkversion.NewVersion(b.Version)
			if erra != nil || errb != nil {
				return a.Version < b.Version
			}
			return va.LessThan(vb)
		}
	case catalog.Helm:
		return func(a, b Record) bool {
			va, erra := semver.NewVersion(a.Version)
			vb, errb := semver.NewVersion(b.Version)
			if erra != nil || errb != nil {
				return a.Version < b.Version
			}
			return va.LessThan(vb)
		}
	default:
		return func(a, b Record) bool { return a.Version < b.Version }
	}
}

// IsNewer reports whether a's version sorts strictly after b's version
// under the given format's native version scheme. Used by check-updates
// to decide whether an upstream package is worth reporting rather than
// merely different (e.g. a downgrade a mirror operator pinned to on
// purpose).
func IsNewer(format catalog.ContentType, a, b string) bool {
	less := versionLess(format)
	return less(Record{Version: b}, Record{Version: a})
}
