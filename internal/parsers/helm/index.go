// SPDX-License-Identifier: Apache-2.0

// Package helm parses Helm chart repository index.yaml documents.
package helm

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// ChartVersion is one entry under entries.<chart-name> in index.yaml.
type ChartVersion struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	AppVersion  string   `yaml:"appVersion"`
	Description string   `yaml:"description"`
	Digest      string   `yaml:"digest"`
	URLs        []string `yaml:"urls"`
	Created     string   `yaml:"created"`
}

// Index is the decoded contents of a Helm repository index.yaml.
type Index struct {
	APIVersion string                      `yaml:"apiVersion"`
	Generated  string                      `yaml:"generated"`
	Entries    map[string][]ChartVersion   `yaml:"entries"`
}

// ParseIndex decodes a Helm index.yaml document. Upstream charts
// occasionally publish indexes with stray control characters or
// Latin-1-encoded description fields; both are cleaned up before the
// YAML decoder ever sees them, per the chart repository convention of
// being liberal about encoding correctness in index.yaml.
func ParseIndex(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index.yaml: %w", err)
	}

	raw = decodeToUTF8(raw)
	raw = stripControlCharacters(raw)

	var idx Index
	if err := yaml.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("parse index.yaml: %w", err)
	}

	return &idx, nil
}

// decodeToUTF8 returns raw unchanged if it is already valid UTF-8;
// otherwise it assumes Latin-1 (ISO-8859-1) and transcodes it, since
// that is the only other encoding Helm's own indexer has ever emitted
// in the wild.
func decodeToUTF8(raw []byte) []byte {
	if utf8.Valid(raw) {
		return raw
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// stripControlCharacters removes C0 control bytes (other than tab,
// newline, carriage return) that some chart tooling leaves embedded in
// description fields; yaml.v3 otherwise rejects the document outright.
func stripControlCharacters(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Flatten returns every chart version across all charts in the index,
// each tagged with its owning chart name (already present as
// ChartVersion.Name in well-formed indexes, but callers should not rely
// on upstream-populated field fidelity).
func (idx *Index) Flatten() []ChartVersion {
	var out []ChartVersion
	for name, versions := range idx.Entries {
		for _, v := range versions {
			if v.Name == "" {
				v.Name = name
			}
			out = append(out, v)
		}
	}
	return out
}

// EncodeIndex serializes an Index back to index.yaml bytes, used by the
// Helm publisher when regenerating the index for a filtered/hosted
// repository rather than mirroring the upstream file verbatim.
func EncodeIndex(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(idx); err != nil {
		return nil, fmt.Errorf("encode index.yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
