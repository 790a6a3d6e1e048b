// Package options defines the option-group contract shared by the server,
// engine, llm, redis and logger option packages, plus the flag-name prefix
// helper that composes them into one flag set.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty, producing flag names like "engine.top-k" or
// "prefix.redis.addr".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every option group. Validate may also complete
// derived fields before the checks run.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds the group's flags to fs under the joined prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
