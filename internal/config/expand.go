package config

import (
	"os"
	"regexp"
)

// envPattern matches ${VAR} placeholders. Bare $VAR is left alone so
// DSN passwords containing dollar signs survive.
var envPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// expandEnv substitutes ${VAR} placeholders with environment values
// before YAML parsing. Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
