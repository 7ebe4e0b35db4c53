package llm

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// NormalizeHashtags prefixes every tag with "#", joins multi-word tags in
// CamelCase, drops empty tags and removes case-insensitive duplicates while
// keeping the first occurrence.
func NormalizeHashtags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if isASCII(tag) {
			tag = strcase.ToCamel(tag)
		} else {
			tag = strings.Join(strings.Fields(tag), "")
		}
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, "#"+tag)
	}
	return out
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
