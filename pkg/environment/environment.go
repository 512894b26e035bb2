// Package environment computes effective inputs from layered configuration:
// the global environment, an optional named environment, then CLI overrides.
package environment

import (
	"fmt"
	"sort"
	"strings"
)

// Global is the baseline environment name.
const Global = "global"

// Input is one CLI override (`--input key=value`).
type Input struct {
	Key   string
	Value string
}

// Effective is the flattened key/value mapping after layering. Callers treat
// it as read-only.
type Effective map[string]string

// Resolve layers envs["global"], then envs[requested] (unless requested is
// empty or "global"), then cli in order; later layers overwrite earlier keys.
// It returns a fresh map on every call and never modifies its arguments.
func Resolve(envs map[string]map[string]string, requested string, cli []Input) Effective {
	out := make(Effective)
	for k, v := range envs[Global] {
		out[k] = v
	}
	if requested != "" && requested != Global {
		for k, v := range envs[requested] {
			out[k] = v
		}
	}
	for _, in := range cli {
		out[in.Key] = in.Value
	}
	return out
}

// ManifestLayer is Resolve without CLI overrides: the values that come from
// the manifest alone.
func ManifestLayer(envs map[string]map[string]string, requested string) Effective {
	return Resolve(envs, requested, nil)
}

// ParseInputs parses `key=value` pairs. The value may itself contain '='.
func ParseInputs(pairs []string) ([]Input, error) {
	out := make([]Input, 0, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input %q: expected key=value", p)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid input %q: empty key", p)
		}
		out = append(out, Input{Key: key, Value: value})
	}
	return out, nil
}

// Has reports whether key appears among the CLI inputs.
func Has(cli []Input, key string) bool {
	for _, in := range cli {
		if in.Key == key {
			return true
		}
	}
	return false
}

// Names returns environment names sorted, with "global" first when present.
func Names(envs map[string]map[string]string) []string {
	names := make([]string, 0, len(envs))
	_, hasGlobal := envs[Global]
	for name := range envs {
		if name != Global {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if hasGlobal {
		names = append([]string{Global}, names...)
	}
	return names
}

// IsProduction reports whether name selects production-only rules.
func IsProduction(name string) bool {
	return name == "production" || name == "prod"
}

// Keys returns the keys of e sorted.
func (e Effective) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
