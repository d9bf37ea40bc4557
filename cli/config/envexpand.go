// Package config loads boltstream.yaml for the boltstream CLI.
package config

import (
	"os"
	"regexp"
)

// envRef matches $$ (a literal dollar), ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// ExpandEnv substitutes environment references in input.
//
// A variable that is unset or empty takes its fallback, or expands to ""
// when there is none. Missing secrets surface later as validation errors
// on the fields that need them (adapter url, storage path).
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		if ref == "$$" {
			return "$"
		}
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		if len(m[2]) > 2 {
			return m[2][2:]
		}
		return ""
	})
}
