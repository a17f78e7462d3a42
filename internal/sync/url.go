// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"net/url"
	"strings"
)

// resolveURL joins a relative metadata/package path onto a repository's
// feed URL the way every format's on-disk layout expects: hrefs recorded
// in repomd.xml/Release/index.yaml/APKINDEX are always relative to the
// feed root.
func resolveURL(feed, href string) (string, error) {
	base, err := url.Parse(feed)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(href, "/"))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
