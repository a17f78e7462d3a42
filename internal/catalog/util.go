// SPDX-License-Identifier: Apache-2.0

package catalog

import "github.com/jmoiron/sqlx"

// sqlxIn expands a query's trailing "IN (?)" placeholder against a slice
// argument, the way every variadic membership lookup in this package needs
// to.
func sqlxIn(query string, arg any) (string, []any, error) {
	return sqlx.In(query, arg)
}
