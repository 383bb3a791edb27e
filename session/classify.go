package session

import "strings"

// rowKeywords lead statements that produce a row set on at least one
// supported dialect. Anything else goes through the exec path.
var rowKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"show":     true,
	"pragma":   true,
	"explain":  true,
	"describe": true,
	"desc":     true,
	"values":   true,
	"table":    true,
	"exec":     false, // sqlserver procedures may return rows but report via exec
}

// returnsRows classifies a statement by its leading keyword, with a
// RETURNING-clause override for insert/update/delete.
func returnsRows(sqlText string) bool {
	s := strings.TrimSpace(sqlText)
	// Strip leading comments.
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = strings.TrimSpace(s[i+1:])
				continue
			}
			return false
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = strings.TrimSpace(s[i+2:])
				continue
			}
			return false
		}
		break
	}
	word := s
	if i := strings.IndexAny(s, " \t\r\n("); i >= 0 {
		word = s[:i]
	}
	if rowKeywords[strings.ToLower(word)] {
		return true
	}
	// INSERT/UPDATE/DELETE ... RETURNING produces rows on postgres/sqlite.
	upper := strings.ToUpper(s)
	return strings.Contains(upper, " RETURNING ")
}
