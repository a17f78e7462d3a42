// SPDX-License-Identifier: Apache-2.0

package rpm

import "encoding/xml"

// OtherRoot is the root <otherdata> element of other.xml.
type OtherRoot struct {
	XMLName  xml.Name       `xml:"otherdata"`
	Packages []OtherPackage `xml:"package"`
}

// OtherPackage is one <package> record (changelog history) from other.xml.
type OtherPackage struct {
	PkgID string `xml:"pkgid,attr"`
	Name  string `xml:"name,attr"`
	Arch  string `xml:"arch,attr"`

	rawXML []byte
}

// RawXML returns the original <package> element bytes captured by
// ParseOther.
func (p OtherPackage) RawXML() []byte { return p.rawXML }

// ParseOther decodes other.xml the same way ParseFilelists decodes
// filelists.xml: each package's raw subtree is kept alongside its
// decoded identity.
func ParseOther(data []byte) (*OtherRoot, error) {
	root := new(OtherRoot)
	if err := xml.Unmarshal(data, root); err != nil {
		return nil, err
	}

	raw := struct {
		XMLName  xml.Name         `xml:"otherdata"`
		Packages []xml.RawMessage `xml:"package"`
	}{}
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for i := range root.Packages {
		if i < len(raw.Packages) {
			root.Packages[i].rawXML = []byte(raw.Packages[i])
		}
	}

	return root, nil
}

// FilterOtherPackages returns the packages whose pkgid is in keep.
func FilterOtherPackages(pkgs []OtherPackage, keep map[string]bool) []OtherPackage {
	var kept []OtherPackage
	for _, p := range pkgs {
		if keep[p.PkgID] {
			kept = append(kept, p)
		}
	}
	return kept
}
