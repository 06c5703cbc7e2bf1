// Package identity derives the label- and path-safe identifier used to tag a
// user's batch jobs and to locate the user's result files.
package identity

import "strings"

var replacer = strings.NewReplacer("@", "_at_", ".", "")

// Normalize maps an email address to its identifier: every "@" becomes
// "_at_" and every "." is removed. No validation is performed, so malformed
// input still yields an identifier.
//
// Distinct addresses can collapse to the same identifier (a@x.com and a@xcom).
func Normalize(email string) string {
	return replacer.Replace(email)
}

// Prefix returns the storage prefix under which the user's results live.
func Prefix(email string) string {
	return Normalize(email) + "/"
}
