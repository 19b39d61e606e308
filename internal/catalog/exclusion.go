package catalog

import (
	"slices"
	"strings"
)

// DefaultExcludedSchemas are never reported as lineage targets.
var DefaultExcludedSchemas = []string{"admin", "information_schema", "pg_catalog"}

// ExclusionSet is a sorted, deduplicated list of target schemas to skip.
type ExclusionSet []string

// NewExclusionSet returns the default schemas plus extra.
func NewExclusionSet(extra ...string) ExclusionSet {
	set := make([]string, 0, len(DefaultExcludedSchemas)+len(extra))
	set = append(set, DefaultExcludedSchemas...)
	for _, s := range extra {
		if s = strings.TrimSpace(s); s != "" {
			set = append(set, s)
		}
	}
	slices.Sort(set)
	return ExclusionSet(slices.Compact(set))
}

// Contains reports whether schema is excluded.
func (s ExclusionSet) Contains(schema string) bool {
	return slices.Contains(s, schema)
}

func (s ExclusionSet) args() []any {
	args := make([]any, len(s))
	for i, schema := range s {
		args[i] = schema
	}
	return args
}
