// SPDX-License-Identifier: Apache-2.0

package rpm

import "encoding/xml"

// UpdateInfoRoot is the root <updates> element of updateinfo.xml.
type UpdateInfoRoot struct {
	XMLName xml.Name `xml:"updates"`
	Updates []Update `xml:"update"`
}

// Update is one erratum, carrying the NVRAs of the packages it touches.
type Update struct {
	ID          string          `xml:"id"`
	Type        string          `xml:"type,attr"`
	Title       string          `xml:"title"`
	Severity    string          `xml:"severity"`
	Description string          `xml:"description"`
	Issued      UpdateTimestamp `xml:"issued"`
	PackageList []UpdatePackage `xml:"pkglist>collection>package"`

	// rawXML preserves the original <update> subtree verbatim so
	// EncodeUpdateInfo can re-emit surviving errata byte-for-byte.
	rawXML []byte
}

// RawXML returns the original <update> element bytes captured by
// ParseUpdateInfo.
func (u Update) RawXML() []byte { return u.rawXML }

type UpdateTimestamp struct {
	Date string `xml:"date,attr"`
}

// UpdatePackage is one NVRA entry inside an erratum's package list.
type UpdatePackage struct {
	Name     string `xml:"name,attr"`
	Epoch    string `xml:"epoch,attr"`
	Version  string `xml:"version,attr"`
	Release  string `xml:"release,attr"`
	Arch     string `xml:"arch,attr"`
	Filename string `xml:"filename"`
}

// NVRA formats the package's name-[epoch:]version-release.arch identity.
func (p UpdatePackage) NVRA() string {
	if p.Epoch == "" || p.Epoch == "0" {
		return p.Name + "-" + p.Version + "-" + p.Release + "." + p.Arch
	}
	return p.Name + "-" + p.Epoch + ":" + p.Version + "-" + p.Release + "." + p.Arch
}

// ParseUpdateInfo decodes updateinfo.xml, capturing each <update>
// element's raw XML bytes alongside its decoded form so EncodeUpdateInfo
// can emit each surviving erratum's original subtree unchanged.
func ParseUpdateInfo(data []byte) (*UpdateInfoRoot, error) {
	root := new(UpdateInfoRoot)
	if err := xml.Unmarshal(data, root); err != nil {
		return nil, err
	}

	raw := struct {
		XMLName xml.Name          `xml:"updates"`
		Updates []xml.RawMessage `xml:"update"`
	}{}
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for i := range root.Updates {
		if i < len(raw.Updates) {
			root.Updates[i].rawXML = []byte(raw.Updates[i])
		}
	}

	return root, nil
}

// FilterUpdates returns the subset of updates whose package list still
// references at least one package id in keep (by NVRA), dropping errata
// that reference only removed packages.
func FilterUpdates(updates []Update, keep map[string]bool) []Update {
	var kept []Update
	for _, u := range updates {
		referenced := false
		for _, p := range u.PackageList {
			if keep[p.NVRA()] {
				referenced = true
				break
			}
		}
		if referenced {
			kept = append(kept, u)
		}
	}
	return kept
}
