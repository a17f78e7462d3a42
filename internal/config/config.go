// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the repoctl configuration file: the
// global storage/proxy/ssl/download/cache settings plus every configured
// repository and view.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repoforge/mirror/internal/catalog"
	"github.com/repoforge/mirror/internal/filter"
	logconfig "github.com/repoforge/mirror/internal/pkg/log"
)

// Database holds the catalog's sqlite location.
type Database struct {
	URL string `yaml:"url"`
}

// Storage holds the pool's on-disk layout roots.
type Storage struct {
	BasePath      string `yaml:"base_path"`
	PoolPath      string `yaml:"pool_path"`
	PublishedPath string `yaml:"published_path"`
	TempPath      string `yaml:"temp_path"`
}

// Proxy is the global HTTP/HTTPS proxy configuration, overridable per
// repository.
type Proxy struct {
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	NoProxy    string `yaml:"no_proxy"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
}

// SSL is the global TLS configuration, overridable per repository.
type SSL struct {
	Verify     bool   `yaml:"verify"`
	CABundle   string `yaml:"ca_bundle"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Download controls the downloader's defaults.
type Download struct {
	Backend        string `yaml:"backend"`
	Parallel       int    `yaml:"parallel"`
	TimeoutSeconds int    `yaml:"timeout"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	VerifyChecksum bool   `yaml:"verify_checksum"`
}

// Cache controls the metadata cache's behavior.
type Cache struct {
	Enabled     bool `yaml:"enabled"`
	MaxAgeHours int  `yaml:"max_age_hours"`
}

// Auth is a repository's (or global default's) upstream authentication.
type Auth struct {
	Kind           string            `yaml:"kind"` // none, client_cert, basic, bearer, custom
	ClientCertFile string            `yaml:"client_cert_file"`
	ClientKeyFile  string            `yaml:"client_key_file"`
	ClientCertDir  string            `yaml:"client_cert_dir"`
	Username       string            `yaml:"username"`
	Password       string            `yaml:"password"`
	Token          string            `yaml:"token"`
	Headers        map[string]string `yaml:"headers"`
}

// FilterConfig is a repository's filter declaration, translated 1:1 into
// filter.Config once the repository's format is known.
type FilterConfig struct {
	SizeMin int64 `yaml:"size_min"`
	SizeMax int64 `yaml:"size_max"`

	NewerThanUnix int64 `yaml:"newer_than"`
	OlderThanUnix int64 `yaml:"older_than"`
	LastNDays     int   `yaml:"last_n_days"`

	ArchInclude []string `yaml:"arch_include"`
	ArchExclude []string `yaml:"arch_exclude"`

	RPM *RPMFilterConfig `yaml:"rpm,omitempty"`
	DEB *DEBFilterConfig `yaml:"deb,omitempty"`

	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`

	OnlyLatestVersion   bool `yaml:"only_latest_version"`
	OnlyLatestNVersions int  `yaml:"only_latest_n_versions"`
}

// RPMFilterConfig is the RPM-specific portion of a filter declaration.
type RPMFilterConfig struct {
	DropSourceRPMs bool     `yaml:"drop_source_rpms"`
	GroupInclude   []string `yaml:"group_include"`
	GroupExclude   []string `yaml:"group_exclude"`
	LicenseInclude []string `yaml:"license_include"`
	LicenseExclude []string `yaml:"license_exclude"`
	VendorInclude  []string `yaml:"vendor_include"`
	VendorExclude  []string `yaml:"vendor_exclude"`
}

// DEBFilterConfig is the DEB-specific portion of a filter declaration.
type DEBFilterConfig struct {
	ComponentInclude []string `yaml:"component_include"`
	ComponentExclude []string `yaml:"component_exclude"`
	PriorityInclude  []string `yaml:"priority_include"`
	PriorityExclude  []string `yaml:"priority_exclude"`
}

// ToFilter converts a FilterConfig into the normalized filter.Config the
// filter engine operates on.
func (f *FilterConfig) ToFilter() filter.Config {
	if f == nil {
		return filter.Config{}
	}
	cfg := filter.Config{
		SizeMin:             f.SizeMin,
		SizeMax:             f.SizeMax,
		NewerThanUnix:       f.NewerThanUnix,
		OlderThanUnix:       f.OlderThanUnix,
		ArchInclude:         f.ArchInclude,
		ArchExclude:         f.ArchExclude,
		IncludePatterns:     f.IncludePatterns,
		ExcludePatterns:     f.ExcludePatterns,
		OnlyLatestVersion:   f.OnlyLatestVersion,
		OnlyLatestNVersions: f.OnlyLatestNVersions,
	}
	if f.LastNDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -f.LastNDays).Unix()
		if cutoff > cfg.NewerThanUnix {
			cfg.NewerThanUnix = cutoff
		}
	}
	if f.RPM != nil {
		cfg.RPMDropSourceRPMs = f.RPM.DropSourceRPMs
		cfg.RPMGroupInclude = f.RPM.GroupInclude
		cfg.RPMGroupExclude = f.RPM.GroupExclude
		cfg.RPMLicenseInclude = f.RPM.LicenseInclude
		cfg.RPMLicenseExclude = f.RPM.LicenseExclude
		cfg.RPMVendorInclude = f.RPM.VendorInclude
		cfg.RPMVendorExclude = f.RPM.VendorExclude
	}
	if f.DEB != nil {
		cfg.DEBComponentInclude = f.DEB.ComponentInclude
		cfg.DEBComponentExclude = f.DEB.ComponentExclude
		cfg.DEBPriorityInclude = f.DEB.PriorityInclude
		cfg.DEBPriorityExclude = f.DEB.PriorityExclude
	}
	return cfg
}

// APTConfig carries DEB-specific sync parameters not expressible generically.
type APTConfig struct {
	Suite         string   `yaml:"suite"`
	Components    []string `yaml:"components"`
	Architectures []string `yaml:"architectures"`
}

// APKConfigBlock carries APK-specific sync parameters.
type APKConfigBlock struct {
	Branch        string   `yaml:"branch"`
	Repo          string   `yaml:"repo"`
	Architectures []string `yaml:"architectures"`
}

// Repository is one configured upstream feed.
type Repository struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // rpm, apt, helm, apk
	Feed    string `yaml:"feed"`
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"` // mirror, filtered, hosted

	Auth  *Auth  `yaml:"auth,omitempty"`
	Proxy *Proxy `yaml:"proxy,omitempty"`
	SSL   *SSL   `yaml:"ssl,omitempty"`

	Filters *FilterConfig `yaml:"filters,omitempty"`

	APT *APTConfig      `yaml:"apt,omitempty"`
	APK *APKConfigBlock `yaml:"apk,omitempty"`
}

// ContentType maps the config's wire-level type name onto the catalog's
// ContentType enum ("apt" in config becomes catalog.DEB).
func (r Repository) ContentType() catalog.ContentType {
	switch r.Type {
	case "rpm":
		return catalog.RPM
	case "apt":
		return catalog.DEB
	case "helm":
		return catalog.Helm
	case "apk":
		return catalog.APK
	default:
		return catalog.ContentType(r.Type)
	}
}

// View is a named ordered list of repositories of identical type.
type View struct {
	ID           string   `yaml:"id"`
	Type         string   `yaml:"type"`
	Repositories []string `yaml:"repositories"`
}

// Config is the full repoctl configuration.
type Config struct {
	Database Database `yaml:"database"`
	Storage  Storage  `yaml:"storage"`
	Proxy    Proxy    `yaml:"proxy"`
	SSL      SSL      `yaml:"ssl"`
	Download Download         `yaml:"download"`
	Cache    Cache            `yaml:"cache"`
	Logging  logconfig.Config `yaml:"logging"`

	Repositories []Repository `yaml:"repositories"`
	Views        []View       `yaml:"views"`

	Include string `yaml:"include"`
}

// Load reads and parses the top-level config file at path, then merges in
// every repository/view declared by files matching Include (resolved
// relative to path's directory), concatenated in glob-sort order.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if cfg.Include != "" {
		pattern := cfg.Include
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(filepath.Dir(path), pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("config: invalid include pattern %q: %w", cfg.Include, err)
		}
		sort.Strings(matches)

		for _, m := range matches {
			included, err := loadFile(m)
			if err != nil {
				return nil, err
			}
			cfg.Repositories = append(cfg.Repositories, included.Repositories...)
			cfg.Views = append(cfg.Views, included.Views...)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{fmt.Sprintf("parse %s: %s", path, err)}
	}
	return &cfg, nil
}
