package athena

import "regexp"

// denyPattern matches mutating or DDL keywords as whole words, case-insensitive.
// Only SELECT/EXPLAIN style read queries pass the guard.
var denyPattern = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|MSCK|GRANT|REVOKE)\b`)

// CheckStatement rejects statements containing a denied keyword anywhere in
// the text. It runs before the backend is contacted, so a rejected statement
// never produces a query execution.
func CheckStatement(sql string) error {
	if m := denyPattern.FindString(sql); m != "" {
		return &ValidationError{Reason: "only SELECT/EXPLAIN statements are allowed (found " + m + ")"}
	}
	return nil
}
