package store

import "strings"

// DefaultIssueLimit caps ListIssues when the query does not set a limit.
const DefaultIssueLimit = 20

// IssueQuery describes a posts lookup. Results are always newest first.
type IssueQuery struct {
	// Category filters on exact match when non-empty.
	Category string
	// Location filters on a case-insensitive substring match when non-empty.
	Location string
	Limit    int
}

func (q IssueQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultIssueLimit
	}
	return q.Limit
}

// likeContains turns a user value into a LIKE pattern matching it literally
// anywhere in the column. Backslash is the escape character.
func likeContains(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(v) + "%"
}
