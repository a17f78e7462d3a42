// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// TreeInfo is the decoded form of a .treeinfo file: installer images keyed
// by their relative path, each carrying the sha256 and size .treeinfo
// records for it in its [checksums] section.
type TreeInfo struct {
	Sections map[string]map[string]string
	Images   map[string]TreeInfoImage
}

// TreeInfoImage is one entry from the [images-*] / [checksums] sections.
type TreeInfoImage struct {
	Path   string
	SHA256 string
	Size   int64
}

// ParseTreeInfo decodes a .treeinfo INI file. Section headers are
// "[section]"; keys are "key = value" or "key: value"; comments ("#",
// ";") and blank lines are ignored.
func ParseTreeInfo(r io.Reader) (*TreeInfo, error) {
	ti := &TreeInfo{Sections: map[string]map[string]string{}, Images: map[string]TreeInfoImage{}}

	scanner := bufio.NewScanner(r)
	current := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if ti.Sections[current] == nil {
				ti.Sections[current] = map[string]string{}
			}
			continue
		}

		key, value, ok := splitKV(line)
		if !ok || current == "" {
			continue
		}
		ti.Sections[current][key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	checksums := ti.Sections["checksums"]
	for path, entry := range checksums {
		algo, digest, ok := strings.Cut(entry, ":")
		if !ok || algo != "sha256" {
			continue
		}
		img := ti.Images[path]
		img.Path = path
		img.SHA256 = digest
		ti.Images[path] = img
	}

	for section, kv := range ti.Sections {
		if !strings.HasPrefix(section, "images-") && !strings.HasPrefix(section, "stage2") {
			continue
		}
		for _, path := range kv {
			if _, ok := ti.Images[path]; !ok {
				ti.Images[path] = TreeInfoImage{Path: path}
			}
		}
	}

	if sizes := ti.Sections["sizes"]; sizes != nil {
		for path, raw := range sizes {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				img := ti.Images[path]
				img.Size = n
				ti.Images[path] = img
			}
		}
	}

	return ti, nil
}

func splitKV(line string) (key, value string, ok bool) {
	sep := "="
	idx := strings.Index(line, sep)
	if idx < 0 {
		sep = ":"
		idx = strings.Index(line, sep)
	}
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}
