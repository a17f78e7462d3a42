// SPDX-License-Identifier: Apache-2.0

package apk

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"strconv"
)

// EncodeAPKIndex renders a slice of Package stanzas back into the
// line-oriented APKINDEX text format, used by the APK publisher when
// regenerating an index for a filtered or hosted repository.
func EncodeAPKIndex(pkgs []Package) []byte {
	var buf bytes.Buffer
	for _, p := range pkgs {
		writeField(&buf, "C", p.Checksum)
		writeField(&buf, "P", p.Name)
		writeField(&buf, "V", p.Version)
		writeField(&buf, "A", p.Architecture)
		if p.Size != 0 {
			writeField(&buf, "S", strconv.FormatInt(p.Size, 10))
		}
		if p.InstallSize != 0 {
			writeField(&buf, "I", strconv.FormatInt(p.InstallSize, 10))
		}
		writeField(&buf, "T", p.Description)
		writeField(&buf, "U", p.URL)
		writeField(&buf, "L", p.License)
		writeField(&buf, "D", p.Depends)
		writeField(&buf, "p", p.Provides)
		writeField(&buf, "o", p.Origin)
		writeField(&buf, "m", p.Maintainer)
		if p.BuildTime != 0 {
			writeField(&buf, "t", strconv.FormatInt(p.BuildTime, 10))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, prefix, value string) {
	if value == "" {
		return
	}
	buf.WriteString(prefix)
	buf.WriteByte(':')
	buf.WriteString(value)
	buf.WriteByte('\n')
}

// EncodeAPKIndexTarGz wraps the rendered APKINDEX text as the single
// "APKINDEX" member of an APKINDEX.tar.gz archive.
func EncodeAPKIndexTarGz(pkgs []Package) ([]byte, error) {
	index := EncodeAPKIndex(pkgs)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{
		Name: "APKINDEX",
		Mode: 0o644,
		Size: int64(len(index)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("apk: write tar header: %w", err)
	}
	if _, err := tw.Write(index); err != nil {
		return nil, fmt.Errorf("apk: write tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("apk: close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("apk: close gzip: %w", err)
	}

	return buf.Bytes(), nil
}
