// Package roster normalizes the list of people who can take part in records.
package roster

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collator returns a new collator for roster ordering. Collators are not
// safe for concurrent use, so callers get their own.
func Collator() *collate.Collator {
	return collate.New(language.Japanese)
}

// Normalize trims names, drops empties and duplicates, and sorts the rest.
func Normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	Collator().SortStrings(out)
	return out
}

// Merge returns the normalized union of current and added.
func Merge(current, added []string) []string {
	all := make([]string, 0, len(current)+len(added))
	all = append(all, current...)
	all = append(all, added...)
	return Normalize(all)
}

// Without returns names minus name, order preserved.
func Without(names []string, name string) []string {
	name = strings.TrimSpace(name)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
