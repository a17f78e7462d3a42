// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// EncodePackages renders a Packages (RFC-822) stanza stream for the given
// packages, in the field order apt itself emits.
func EncodePackages(pkgs []Package) []byte {
	var buf bytes.Buffer
	for i, pkg := range pkgs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		writeField(&buf, "Package", pkg.Name)
		writeField(&buf, "Version", pkg.Version)
		writeField(&buf, "Architecture", pkg.Architecture)
		writeField(&buf, "Section", pkg.Section)
		writeField(&buf, "Priority", pkg.Priority)
		writeField(&buf, "Depends", pkg.Depends)
		writeField(&buf, "Filename", pkg.Filename)
		writeField(&buf, "Size", strconv.FormatInt(pkg.Size, 10))
		writeField(&buf, "SHA256", pkg.SHA256)
	}
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "%s: %s\n", key, value)
}

// EncodePackagesGz gzips an already-rendered Packages stream, the form
// every apt client actually fetches.
func EncodePackagesGz(packagesRaw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(packagesRaw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReleaseFile is one generated Packages/Packages.gz artifact to be listed
// in a regenerated Release file's checksum blocks.
type ReleaseFile struct {
	Path string
	Data []byte
}

// EncodeRelease renders a Release control file covering the given
// generated artifacts' MD5/SHA1/SHA256 checksums, the way a filtered or
// mirror republish regenerates Release after replacing Packages/
// Packages.gz (spec.md §4.8.2: "Always regenerate a Release file").
func EncodeRelease(suite, codename string, architectures, components []string, files []ReleaseFile) []byte {
	var buf bytes.Buffer
	writeField(&buf, "Suite", suite)
	writeField(&buf, "Codename", codename)
	writeField(&buf, "Architectures", strings.Join(architectures, " "))
	writeField(&buf, "Components", strings.Join(components, " "))

	writeChecksumBlock(&buf, "MD5Sum", files, func(b []byte) string {
		sum := md5.Sum(b)
		return hex.EncodeToString(sum[:])
	})
	writeChecksumBlock(&buf, "SHA1", files, func(b []byte) string {
		sum := sha1.Sum(b)
		return hex.EncodeToString(sum[:])
	})
	writeChecksumBlock(&buf, "SHA256", files, func(b []byte) string {
		sum := sha256.Sum256(b)
		return hex.EncodeToString(sum[:])
	})

	return buf.Bytes()
}

func writeChecksumBlock(buf *bytes.Buffer, field string, files []ReleaseFile, hash func([]byte) string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(buf, "%s:\n", field)
	for _, f := range files {
		fmt.Fprintf(buf, " %s %d %s\n", hash(f.Data), len(f.Data), f.Path)
	}
}
