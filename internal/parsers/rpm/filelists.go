// SPDX-License-Identifier: Apache-2.0

package rpm

import "encoding/xml"

// FilelistsRoot is the root <filelists> element of filelists.xml.
type FilelistsRoot struct {
	XMLName  xml.Name           `xml:"filelists"`
	Packages []FilelistsPackage `xml:"package"`
}

// FilelistsPackage is one <package> record from filelists.xml, identified
// by the same pkgid (sha256) primary.xml carries for the same RPM.
type FilelistsPackage struct {
	PkgID string `xml:"pkgid,attr"`
	Name  string `xml:"name,attr"`
	Arch  string `xml:"arch,attr"`

	// rawXML preserves the original <package> subtree verbatim so a
	// filtered republish can re-emit surviving entries byte-for-byte
	// instead of re-deriving every <file> child.
	rawXML []byte
}

// RawXML returns the original <package> element bytes captured by
// ParseFilelists.
func (p FilelistsPackage) RawXML() []byte { return p.rawXML }

// ParseFilelists decodes filelists.xml, capturing each <package>
// element's raw XML bytes alongside its decoded identity so
// EncodeFilelists can re-emit the surviving subset unchanged.
func ParseFilelists(data []byte) (*FilelistsRoot, error) {
	root := new(FilelistsRoot)
	if err := xml.Unmarshal(data, root); err != nil {
		return nil, err
	}

	raw := struct {
		XMLName  xml.Name         `xml:"filelists"`
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

// FilterFilelistsPackages returns the packages whose pkgid is in keep,
// dropping file lists for RPMs that a filtered repository no longer
// carries.
func FilterFilelistsPackages(pkgs []FilelistsPackage, keep map[string]bool) []FilelistsPackage {
	var kept []FilelistsPackage
	for _, p := range pkgs {
		if keep[p.PkgID] {
			kept = append(kept, p)
		}
	}
	return kept
}
