// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"fmt"
	"io"
	"strconv"
)

// Package is one binary package record from a Packages file.
type Package struct {
	Name         string
	Version      string
	Architecture string
	SHA256       string
	Size         int64
	Filename     string
	Component    string
	Priority     string
	Section      string
	Depends      string
}

// WalkPackagesFunc is called once per stanza decoded from a Packages
// file.
type WalkPackagesFunc func(pkg Package) error

// WalkPackages streams a Packages (already decompressed) stream,
// decoding one stanza at a time via ParseStanzas and invoking walkFn for
// each. component is recorded on every resulting Package since the
// Packages file itself carries no component field — it is implied by the
// dists/<suite>/<component>/binary-<arch>/Packages path it was fetched
// from.
func WalkPackages(r io.Reader, component string, walkFn WalkPackagesFunc) error {
	stanzas, err := ParseStanzas(r)
	if err != nil {
		return err
	}

	for _, s := range stanzas {
		size, err := strconv.ParseInt(s.Get("Size"), 10, 64)
		if err != nil && s.Get("Size") != "" {
			return fmt.Errorf("malformed Size for package %s: %w", s.Get("Package"), err)
		}

		pkg := Package{
			Name:         s.Get("Package"),
			Version:      s.Get("Version"),
			Architecture: s.Get("Architecture"),
			SHA256:       s.Get("SHA256"),
			Size:         size,
			Filename:     s.Get("Filename"),
			Component:    component,
			Priority:     s.Get("Priority"),
			Section:      s.Get("Section"),
			Depends:      s.Get("Depends"),
		}

		if err := walkFn(pkg); err != nil {
			return err
		}
	}

	return nil
}
