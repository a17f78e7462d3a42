// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// Err is a plain string error, the same lightweight pattern repoctl's
// subcommands use for "stop and print" failures that don't need to wrap
// an underlying cause.
type Err string

func (e Err) Error() string {
	return string(e)
}

func Errf(str string, a ...any) Err {
	return Err(fmt.Sprintf(str, a...))
}
