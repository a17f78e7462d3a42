// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/repoforge/mirror/internal/catalog"
)

// ConfigError is the spec's ConfigError taxonomy entry: invalid YAML,
// unknown enum, a filter incompatible with its repository's format, a
// mirror-mode repository declaring filters, or a view referencing an
// unknown repository or mixing content types. Validation failures never
// touch the catalog.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "config: " + e.msg }

func errf(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

var validTypes = map[string]bool{"rpm": true, "apt": true, "helm": true, "apk": true}
var validModes = map[string]bool{"mirror": true, "filtered": true, "hosted": true}

// Validate checks a fully-merged Config for the constraints the spec
// requires to hold before any sync or publish command is allowed to run.
func Validate(cfg *Config) error {
	seen := make(map[string]Repository)

	for _, r := range cfg.Repositories {
		if r.ID == "" {
			return errf("repository missing id")
		}
		if _, dup := seen[r.ID]; dup {
			return errf("repository id %q declared more than once", r.ID)
		}
		seen[r.ID] = r

		if !validTypes[r.Type] {
			return errf("repository %s: unknown type %q", r.ID, r.Type)
		}
		if !validModes[r.Mode] {
			return errf("repository %s: unknown mode %q", r.ID, r.Mode)
		}
		if r.Feed == "" && r.Mode != "hosted" {
			return errf("repository %s: feed is required in %s mode", r.ID, r.Mode)
		}

		if r.Mode == "mirror" && r.Filters != nil {
			return errf("repository %s: mirror mode may not declare filters", r.ID)
		}

		if err := validateFilterFormat(r); err != nil {
			return err
		}
	}

	for _, v := range cfg.Views {
		if v.ID == "" {
			return errf("view missing id")
		}
		if !validTypes[v.Type] {
			return errf("view %s: unknown type %q", v.ID, v.Type)
		}
		if len(v.Repositories) == 0 {
			return errf("view %s: must reference at least one repository", v.ID)
		}
		for _, repoID := range v.Repositories {
			repo, ok := seen[repoID]
			if !ok {
				return errf("view %s: references unknown repository %q", v.ID, repoID)
			}
			if repo.Type != v.Type {
				return errf("view %s: mixes type %s (declared) with repository %s's type %s", v.ID, v.Type, repoID, repo.Type)
			}
		}
	}

	return nil
}

// validateFilterFormat rejects a filter block whose format-specific
// sub-block doesn't match the owning repository's declared type (e.g. a
// deb block on an rpm repository).
func validateFilterFormat(r Repository) error {
	if r.Filters == nil {
		return nil
	}
	ct := r.ContentType()
	if r.Filters.RPM != nil && ct != catalog.RPM {
		return errf("repository %s: rpm filter block on a %s repository", r.ID, r.Type)
	}
	if r.Filters.DEB != nil && ct != catalog.DEB {
		return errf("repository %s: deb filter block on a %s repository", r.ID, r.Type)
	}
	return nil
}
