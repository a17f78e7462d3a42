// SPDX-License-Identifier: Apache-2.0

package rpm

import (
	"fmt"
	"os"
	"strings"

	"github.com/cavaliergopher/rpm"
)

// ReadPackageHeader extracts NEVRA and metadata directly from an RPM
// file's header, for hosted-mode repositories where packages are added
// locally rather than discovered from an upstream primary.xml.
func ReadPackageHeader(path string) (Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return Package{}, err
	}
	defer f.Close()

	pkg, err := rpm.Read(f)
	if err != nil {
		return Package{}, fmt.Errorf("while reading rpm header of %s: %w", path, err)
	}

	epoch := ""
	if pkg.Epoch() != 0 {
		epoch = fmt.Sprintf("%d", pkg.Epoch())
	}

	return Package{
		Name:      pkg.Name(),
		Epoch:     epoch,
		Version:   pkg.Version(),
		Release:   pkg.Release(),
		Arch:      pkg.Architecture(),
		Group:     strings.Join(pkg.Groups(), ", "),
		License:   pkg.License(),
		Vendor:    pkg.Vendor(),
		SourceRPM: pkg.SourceRPM(),
		BuildTime: pkg.BuildTime().Unix(),
	}, nil
}
