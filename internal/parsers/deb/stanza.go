// SPDX-License-Identifier: Apache-2.0

package deb

import (
	"bufio"
	"io"
	"strings"
)

// Stanza is one RFC-822-style paragraph: an ordered set of fields, each
// possibly multi-line via continuation lines (lines starting with a
// space or tab). A "." on a continuation line denotes a blank paragraph
// line within the field's value, per the Debian control file format.
type Stanza struct {
	order []string
	value map[string]string
}

// Get returns a field's value, or "" if absent. Field names are matched
// case-sensitively, as Debian control files are.
func (s Stanza) Get(key string) string {
	return s.value[key]
}

// Has reports whether a field is present, distinguishing an absent field
// from one present with an empty value.
func (s Stanza) Has(key string) bool {
	_, ok := s.value[key]
	return ok
}

// Fields returns the field names in declaration order.
func (s Stanza) Fields() []string {
	return s.order
}

// ParseStanzas streams r, splitting it into RFC-822-style stanzas
// separated by blank lines. This is a hand-rolled reader rather than an
// import of a MIME/mail header parser: Debian control files and
// net/mail/net/textproto headers diverge enough (repeated blank-paragraph
// continuation lines, multiple stanzas per file, no message body) that
// reusing either would mean fighting their API more than writing this
// loop.
func ParseStanzas(r io.Reader) ([]Stanza, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var stanzas []Stanza
	cur := newStanza()
	curKey := ""
	haveField := false

	flush := func() {
		if haveField {
			stanzas = append(stanzas, cur)
		}
		cur = newStanza()
		curKey = ""
		haveField = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			flush()
			continue
		}

		if (line[0] == ' ' || line[0] == '\t') && curKey != "" {
			cont := strings.TrimLeft(line, " \t")
			if cont == "." {
				cont = ""
			}
			cur.value[curKey] += "\n" + cont
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if !cur.Has(key) {
			cur.order = append(cur.order, key)
		}
		cur.value[key] = value
		curKey = key
		haveField = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return stanzas, nil
}

func newStanza() Stanza {
	return Stanza{value: map[string]string{}}
}
