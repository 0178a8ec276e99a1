// ABOUTME: Minimal flag parsing for subcommands
// ABOUTME: Supports "--name value" and "--name=value"; flags may repeat

package main

import (
	"fmt"
	"slices"
	"strings"
)

// flagSet maps a flag name to every value given for it.
type flagSet map[string][]string

func (f flagSet) get(name string) string {
	if vals := f[name]; len(vals) > 0 {
		return vals[len(vals)-1]
	}
	return ""
}

func (f flagSet) all(name string) []string {
	return f[name]
}

// parseFlags accepts only the named flags. Positional arguments are rejected.
func parseFlags(args []string, names ...string) (flagSet, error) {
	flags := flagSet{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !slices.Contains(names, name) {
			return nil, fmt.Errorf("unknown flag: --%s", name)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		flags[name] = append(flags[name], value)
	}
	return flags, nil
}
