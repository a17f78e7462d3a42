// SPDX-License-Identifier: Apache-2.0

// Package utils holds small formatting helpers shared across repoctl's
// CLI output.
package utils

import "time"

const timeFormat = "2006-01-02 15:04:05 MST"

// TimeToString formats a unix timestamp for display, or returns an empty
// string for the zero value (a row that was never set).
func TimeToString(t int64) string {
	if t == 0 {
		return ""
	}
	return time.Unix(t, 0).Format(timeFormat)
}
