// Package template implements the {{key}} placeholder substitution used by
// bulk sends. The grammar is word-character identifiers with literal
// replacement and no recursion; rendering never fails.
package template

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{key}} placeholders in tpl with values from data.
// Placeholders with no matching key are left verbatim in the output.
// Substituted values are never re-scanned, so a value containing {{...}}
// passes through as literal text.
func Render(tpl string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(tpl, "{{") {
		return tpl
	}
	var b strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(tpl, -1) {
		val, ok := data[tpl[loc[2]:loc[3]]]
		if !ok {
			continue
		}
		b.WriteString(tpl[last:loc[0]])
		b.WriteString(val)
		last = loc[1]
	}
	b.WriteString(tpl[last:])
	return b.String()
}

// Merge combines shared and per-recipient data into a single map.
// Override keys win on conflict. Neither input is mutated.
func Merge(shared, override map[string]string) map[string]string {
	merged := make(map[string]string, len(shared)+len(override))
	for k, v := range shared {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
