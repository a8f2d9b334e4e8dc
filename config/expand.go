package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s using lookup.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded.
//   - If `${VAR}` is present but VAR is unset, it errors naming every missing variable.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string, lookup func(string) (string, bool)) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	const dollarSentinel = "\x00EVALCACHE_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	s = os.Expand(s, func(name string) string {
		v, _ := lookup(name)
		return v
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}

func expandAll(list []string, lookup func(string) (string, bool)) ([]string, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		v, err := ExpandEnvStrict(s, lookup)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
