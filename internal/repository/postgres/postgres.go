// Package postgres implements the repository contracts on PostgreSQL via pgx.
package postgres

import (
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns free text into an ILIKE substring pattern with the
// LIKE metacharacters escaped. An empty query matches everything.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
