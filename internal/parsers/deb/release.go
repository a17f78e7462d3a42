// SPDX-License-Identifier: Apache-2.0

// Package deb parses Debian repository metadata: InRelease/Release
// control files and per-component Packages stanzas.
package deb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ChecksumEntry is one row of a Release file's MD5Sum/SHA1/SHA256 block.
type ChecksumEntry struct {
	Checksum string
	Size     int64
	Path     string
}

// Release is the decoded form of a dists/<suite>/InRelease or Release
// file.
type Release struct {
	Suite         string
	Codename      string
	Architectures []string
	Components    []string
	MD5Sum        []ChecksumEntry
	SHA1          []ChecksumEntry
	SHA256        []ChecksumEntry
}

// SHA256For looks up a path's expected checksum and size from the
// release's SHA256 block.
func (r *Release) SHA256For(path string) (ChecksumEntry, bool) {
	for _, e := range r.SHA256 {
		if e.Path == path {
			return e, true
		}
	}
	return ChecksumEntry{}, false
}

// ParseInRelease strips the clearsign PGP armor from an InRelease file
// and parses the enclosed control stanza. The signature itself is not
// verified here: callers that require signature verification do so
// against the raw bytes before calling this function.
func ParseInRelease(r io.Reader) (*Release, error) {
	body, err := stripClearsignArmor(r)
	if err != nil {
		return nil, err
	}
	return parseReleaseStanza(body)
}

// ParseRelease parses a plain (unsigned) Release file.
func ParseRelease(r io.Reader) (*Release, error) {
	return parseReleaseStanza(r)
}

func stripClearsignArmor(r io.Reader) (io.Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var body strings.Builder
	inBody := false

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "-----BEGIN PGP SIGNED MESSAGE-----":
			inBody = false
			continue
		case strings.HasPrefix(line, "Hash:") && !inBody:
			continue
		case line == "" && !inBody:
			inBody = true
			continue
		case line == "-----BEGIN PGP SIGNATURE-----":
			return strings.NewReader(body.String()), nil
		}

		if inBody {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if body.Len() == 0 {
		return nil, fmt.Errorf("deb: no clearsigned body found in InRelease")
	}

	return strings.NewReader(body.String()), nil
}

func parseReleaseStanza(r io.Reader) (*Release, error) {
	stanzas, err := ParseStanzas(r)
	if err != nil {
		return nil, err
	}
	if len(stanzas) == 0 {
		return nil, fmt.Errorf("deb: empty release file")
	}
	s := stanzas[0]

	rel := &Release{
		Suite:    s.Get("Suite"),
		Codename: s.Get("Codename"),
	}
	if arches := s.Get("Architectures"); arches != "" {
		rel.Architectures = strings.Fields(arches)
	}
	if comps := s.Get("Components"); comps != "" {
		rel.Components = strings.Fields(comps)
	}

	rel.MD5Sum, err = parseChecksumBlock(s.Get("MD5Sum"))
	if err != nil {
		return nil, fmt.Errorf("while parsing MD5Sum block: %w", err)
	}
	rel.SHA1, err = parseChecksumBlock(s.Get("SHA1"))
	if err != nil {
		return nil, fmt.Errorf("while parsing SHA1 block: %w", err)
	}
	rel.SHA256, err = parseChecksumBlock(s.Get("SHA256"))
	if err != nil {
		return nil, fmt.Errorf("while parsing SHA256 block: %w", err)
	}

	return rel, nil
}

func parseChecksumBlock(raw string) ([]ChecksumEntry, error) {
	if raw == "" {
		return nil, nil
	}

	var entries []ChecksumEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed checksum line %q", line)
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed size in %q: %w", line, err)
		}
		entries = append(entries, ChecksumEntry{Checksum: fields[0], Size: size, Path: fields[2]})
	}
	return entries, nil
}
