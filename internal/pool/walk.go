// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"os"
	"path/filepath"
	"strings"
)

// Entry is a single file discovered while walking a pool namespace.
type Entry struct {
	Namespace Namespace
	Path      string // absolute path on disk
	SHA256    string
	Filename  string
	Size      int64
}

// KnownFunc reports whether a given namespace+sha256 pair is referenced by
// the catalog (ContentItem for Content, RepositoryFile for Files).
type KnownFunc func(ns Namespace, sha256Hex string) bool

// Walk visits every pool entry in both namespaces.
func (p *Pool) Walk(visit func(Entry) error) error {
	for _, ns := range []Namespace{Content, Files} {
		root := filepath.Join(p.root, string(ns))
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			sha, name, ok := splitEntryName(info.Name())
			if !ok {
				return nil
			}
			return visit(Entry{
				Namespace: ns,
				Path:      path,
				SHA256:    sha,
				Filename:  name,
				Size:      info.Size(),
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Orphans returns pool entries whose sha256 is known to neither catalog
// table.
func (p *Pool) Orphans(known KnownFunc) ([]Entry, error) {
	var orphans []Entry
	err := p.Walk(func(e Entry) error {
		if !known(e.Namespace, e.SHA256) {
			orphans = append(orphans, e)
		}
		return nil
	})
	return orphans, err
}

// splitEntryName extracts the sha256 prefix and filename from a pool
// filename of the form "<sha256>_<filename>".
func splitEntryName(name string) (sha256Hex, filename string, ok bool) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 || idx != 64 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}
