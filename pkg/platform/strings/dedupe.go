// Package strings provides string list utilities for configuration parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empties and repeats, keeping
// first-seen order.
//
//	DedupeAndTrim([]string{"  OrgA ", "OrgB", "OrgA", "", "  "})
//	// []string{"OrgA", "OrgB"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// SplitList splits a comma separated setting such as KAFKA_BROKERS.
func SplitList(s string) []string {
	return DedupeAndTrim(strings.Split(s, ","))
}
