// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/repoforge/mirror/pkg/ioutil"
)

// EncodePrimary renders primary.xml for the given packages from catalog
// state, the way a publish regenerates it "for consistency with what was
// actually placed on disk" rather than republishing the upstream bytes.
func EncodePrimary(pkgs []Package) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, "<metadata xmlns=\"http://linux.duke.edu/metadata/common\" xmlns:rpm=\"http://linux.duke.edu/metadata/rpm\" packages=\"%d\">\n", len(pkgs))

	enc := xml.NewEncoder(&buf)
	for _, pkg := range pkgs {
		elem := primaryPackageXML{
			Type: "rpm",
			Name: pkg.Name,
			Arch: pkg.Arch,
			Version: primaryVersionXML{
				Epoch: epochOrZero(pkg.Epoch), Ver: pkg.Version, Rel: pkg.Release,
			},
			Checksum: primaryChecksumXML{Type: "sha256", PkgID: "YES", Value: pkg.SHA256},
			Location: primaryLocationXML{Href: pkg.Href},
			Size:     primarySizeXML{Package: pkg.Size},
			Time:     primaryTimeXML{Build: pkg.BuildTime},
			Format: primaryFormatXML{
				License:   pkg.License,
				Vendor:    pkg.Vendor,
				Group:     pkg.Group,
				SourceRPM: pkg.SourceRPM,
			},
		}
		if err := enc.Encode(elem); err != nil {
			return nil, fmt.Errorf("encoding primary.xml package %s: %w", pkg.NEVRA(), err)
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("</metadata>\n")
	return buf.Bytes(), nil
}

// EncodeFilelists rebuilds filelists.xml from the surviving packages'
// preserved raw subtrees: a filtered republish needs to drop entries, not
// re-derive <file> children the catalog never parsed out individually.
func EncodeFilelists(pkgs []FilelistsPackage) ([]byte, error) {
	return encodeRawPackages(
		"filelists", "http://linux.duke.edu/metadata/filelists",
		len(pkgs), func(yield func([]byte)) {
			for _, p := range pkgs {
				yield(p.rawXML)
			}
		},
	)
}

// EncodeOther rebuilds other.xml the same way EncodeFilelists rebuilds
// filelists.xml.
func EncodeOther(pkgs []OtherPackage) ([]byte, error) {
	return encodeRawPackages(
		"otherdata", "http://linux.duke.edu/metadata/other",
		len(pkgs), func(yield func([]byte)) {
			for _, p := range pkgs {
				yield(p.rawXML)
			}
		},
	)
}

// EncodeUpdateInfo rebuilds updateinfo.xml from the surviving errata's
// preserved raw subtrees, the same way EncodeFilelists rebuilds
// filelists.xml.
func EncodeUpdateInfo(updates []Update) ([]byte, error) {
	header := bytes.NewBufferString(xml.Header)
	header.WriteString("<updates>\n")

	readers := []io.Reader{header}
	for _, u := range updates {
		readers = append(readers, bytes.NewReader(u.rawXML), bytes.NewReader([]byte("\n")))
	}
	readers = append(readers, bytes.NewBufferString("</updates>\n"))

	rc := ioutil.MultiReaderCloser(readers...)
	defer rc.Close()

	return io.ReadAll(rc)
}

// encodeRawPackages stitches a root element, its xmlns/packages count
// attributes, and each surviving package's preserved raw subtree into one
// document by chaining readers rather than re-marshaling bytes this
// package never fully decoded.
func encodeRawPackages(root, xmlns string, count int, each func(yield func([]byte))) ([]byte, error) {
	header := bytes.NewBufferString(xml.Header)
	fmt.Fprintf(header, "<%s xmlns=\"%s\" packages=\"%d\">\n", root, xmlns, count)

	readers := []io.Reader{header}
	each(func(raw []byte) {
		readers = append(readers, bytes.NewReader(raw), bytes.NewReader([]byte("\n")))
	})
	readers = append(readers, bytes.NewBufferString(fmt.Sprintf("</%s>\n", root)))

	rc := ioutil.MultiReaderCloser(readers...)
	defer rc.Close()

	return io.ReadAll(rc)
}

func epochOrZero(epoch string) string {
	if epoch == "" {
		return "0"
	}
	return epoch
}

type primaryPackageXML struct {
	XMLName  xml.Name           `xml:"package"`
	Type     string             `xml:"type,attr"`
	Name     string             `xml:"name"`
	Arch     string             `xml:"arch"`
	Version  primaryVersionXML  `xml:"version"`
	Checksum primaryChecksumXML `xml:"checksum"`
	Location primaryLocationXML `xml:"location"`
	Size     primarySizeXML     `xml:"size"`
	Time     primaryTimeXML     `xml:"time"`
	Format   primaryFormatXML   `xml:"format"`
}

type primaryVersionXML struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type primaryChecksumXML struct {
	Type  string `xml:"type,attr"`
	PkgID string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type primaryLocationXML struct {
	Href string `xml:"href,attr"`
}

type primarySizeXML struct {
	Package int64 `xml:"package,attr"`
}

type primaryTimeXML struct {
	Build int64 `xml:"build,attr"`
}

type primaryFormatXML struct {
	License   string `xml:"http://linux.duke.edu/metadata/rpm license"`
	Vendor    string `xml:"http://linux.duke.edu/metadata/rpm vendor"`
	Group     string `xml:"http://linux.duke.edu/metadata/rpm group"`
	SourceRPM string `xml:"http://linux.duke.edu/metadata/rpm sourcerpm"`
}
