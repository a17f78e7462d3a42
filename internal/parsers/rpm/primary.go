// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Package is one <package type="rpm"> record from primary.xml.
type Package struct {
	Name      string
	Epoch     string
	Version   string
	Release   string
	Arch      string
	SHA256    string
	Href      string
	Size      int64
	Group     string
	License   string
	Vendor    string
	SourceRPM string
	BuildTime int64
}

// NEVRA formats the package's name-epoch:version-release.arch identity.
func (p Package) NEVRA() string {
	if p.Epoch == "" || p.Epoch == "0" {
		return fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, p.Release, p.Arch)
	}
	return fmt.Sprintf("%s-%s:%s-%s.%s", p.Name, p.Epoch, p.Version, p.Release, p.Arch)
}

// VersionString formats the [epoch:]version-release triple in the form
// RPM version comparators expect.
func (p Package) VersionString() string {
	if p.Epoch == "" || p.Epoch == "0" {
		return fmt.Sprintf("%s-%s", p.Version, p.Release)
	}
	return fmt.Sprintf("%s:%s-%s", p.Epoch, p.Version, p.Release)
}

// WalkPrimaryFunc is called once per package found in primary.xml, along
// with the total package count declared on the root <metadata> element.
type WalkPrimaryFunc func(pkg Package, totalPackages int) error

// WalkPrimary streams primary.xml, decoding one <package> element at a
// time so that arbitrarily large metadata never has to be held in memory
// whole.
func WalkPrimary(r io.Reader, walkFn WalkPrimaryFunc) error {
	decoder := xml.NewDecoder(r)

	var pkg Package
	var totalPackages int
	var inPackage bool
	var textTarget *string
	var sizeAttrs map[string]string

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "metadata":
				for _, attr := range t.Attr {
					if attr.Name.Local == "packages" {
						n, err := strconv.Atoi(attr.Value)
						if err != nil {
							return fmt.Errorf("invalid packages count %q: %w", attr.Value, err)
						}
						totalPackages = n
					}
				}
			case "package":
				pkg = Package{}
				inPackage = true
			case "name":
				if inPackage {
					textTarget = &pkg.Name
				}
			case "arch":
				if inPackage {
					textTarget = &pkg.Arch
				}
			case "version":
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "epoch":
						pkg.Epoch = attr.Value
					case "ver":
						pkg.Version = attr.Value
					case "rel":
						pkg.Release = attr.Value
					}
				}
			case "checksum":
				checksumType := ""
				for _, attr := range t.Attr {
					if attr.Name.Local == "type" {
						checksumType = attr.Value
					}
				}
				if checksumType == "sha256" {
					textTarget = &pkg.SHA256
				} else {
					textTarget = nil
				}
			case "location":
				for _, attr := range t.Attr {
					if attr.Name.Local == "href" {
						pkg.Href = attr.Value
					}
				}
			case "size":
				sizeAttrs = map[string]string{}
				for _, attr := range t.Attr {
					sizeAttrs[attr.Name.Local] = attr.Value
				}
				if v, ok := sizeAttrs["package"]; ok {
					if n, err := strconv.ParseInt(v, 10, 64); err == nil {
						pkg.Size = n
					}
				}
			case "time":
				for _, attr := range t.Attr {
					if attr.Name.Local == "build" {
						if n, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
							pkg.BuildTime = n
						}
					}
				}
			case "rpm:group", "group":
				if inPackage {
					textTarget = &pkg.Group
				}
			case "rpm:license", "license":
				if inPackage {
					textTarget = &pkg.License
				}
			case "rpm:vendor", "vendor":
				if inPackage {
					textTarget = &pkg.Vendor
				}
			case "rpm:sourcerpm", "sourcerpm":
				if inPackage {
					textTarget = &pkg.SourceRPM
				}
			default:
				textTarget = nil
			}
		case xml.CharData:
			if textTarget != nil {
				*textTarget = string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "package":
				inPackage = false
				if err := walkFn(pkg, totalPackages); err != nil {
					return err
				}
			case "name", "arch", "checksum", "rpm:group", "group",
				"rpm:license", "license", "rpm:vendor", "vendor",
				"rpm:sourcerpm", "sourcerpm":
				textTarget = nil
			}
		}
	}
}
