// Package extras turns user-supplied extra tool flags into argument lists.
package extras

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/conn-castle/release-rust/internal/messages"
)

var operators = map[string]bool{
	"|": true, "||": true, "&": true, "&&": true, ";": true,
	"<": true, ">": true, ">>": true, "(": true, ")": true,
}

// Expand joins lines, substitutes $VAR and ${VAR} from vars (falling back to
// lookup), and splits the result with shell quoting rules. Shell operators
// are rejected since no shell runs the result.
func Expand(lines []string, vars map[string]string, lookup func(string) string) ([]string, error) {
	if lookup == nil {
		lookup = os.Getenv
	}
	joined := strings.TrimSpace(strings.Join(lines, " "))
	if joined == "" {
		return nil, nil
	}
	expanded := os.Expand(joined, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return lookup(key)
	})
	args, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf(messages.ExtrasParseFmt, joined, err)
	}
	for _, a := range args {
		if operators[a] {
			return nil, fmt.Errorf(messages.ExtrasOperatorFmt, a, joined)
		}
	}
	return args, nil
}
