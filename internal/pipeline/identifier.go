package pipeline

// identifier.go provides strict identifier validation and table name
// derivation.
//
// Every table or view name is validated here before it is interpolated into
// generated SQL. Identifiers come only from this validator or the role
// resolver, never from raw user text. This is the injection boundary for the
// whole pipeline.

import (
	"path/filepath"
	"regexp"
	"strings"
)

// identifierRegex accepts alphanumerics and underscores, 1-128 chars.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,128}$`)

// reservedKeywords are SQL keywords that may never be used as table names.
var reservedKeywords = map[string]struct{}{
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {},
	"CREATE": {}, "ALTER": {}, "EXEC": {}, "UNION": {}, "WHERE": {}, "JOIN": {},
}

// ValidateIdentifier checks that name is a safe SQL identifier.
// Returns an InvalidIdentifier error for empty names, names with characters
// outside [a-zA-Z0-9_], names longer than 128 chars, and reserved keywords.
func ValidateIdentifier(name string) error {
	if name == "" {
		return Errorf(KindInvalidIdentifier, "identifier cannot be empty")
	}
	if !identifierRegex.MatchString(name) {
		return Errorf(KindInvalidIdentifier,
			"invalid identifier %q: only letters, numbers, and underscores allowed (max 128 chars)", name)
	}
	if _, reserved := reservedKeywords[strings.ToUpper(name)]; reserved {
		return Errorf(KindInvalidIdentifier, "identifier %q is a reserved SQL keyword", name)
	}
	return nil
}

// TableNameForFile derives the warehouse table name from an upload's
// filename: base name without extension, lower-cased, spaces to underscores.
// The result is validated before use.
func TableNameForFile(filename string) (string, error) {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return name, nil
}
