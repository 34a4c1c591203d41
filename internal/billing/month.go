package billing

import "regexp"

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a month key in YYYY-MM form with a month
// between 01 and 12.
func ValidMonth(s string) bool {
	return monthRe.MatchString(s)
}
