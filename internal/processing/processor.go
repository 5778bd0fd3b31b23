// Package processing holds text helpers shared by the classifier, the
// conflict tagger and the gazetteer.
package processing

import (
	"regexp"
	"sort"
	"strings"
)

// CompileTerms builds one case-insensitive whole-word union pattern over terms.
func CompileTerms(terms []string) *regexp.Regexp {
	return regexp.MustCompile(UnionPattern(terms))
}

// UnionPattern returns the source of a case-insensitive whole-word alternation.
// Longer terms are tried first so that "cruise missile" wins over "missile";
// equal lengths are ordered lexically to keep the pattern stable.
func UnionPattern(terms []string) string {
	sorted := Dedupe(terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) == len(sorted[j]) {
			return sorted[i] < sorted[j]
		}
		return len(sorted[i]) > len(sorted[j])
	})

	parts := make([]string, 0, len(sorted))
	for _, t := range sorted {
		parts = append(parts, `\b`+regexp.QuoteMeta(t)+`\b`)
	}
	return `(?i)` + strings.Join(parts, "|")
}

// Dedupe removes duplicates and empty strings while preserving order.
func Dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// CacheKey is the canonical geocode cache key shared by every cache tier.
func CacheKey(place, regionBias string) string {
	return strings.TrimSpace(strings.ToLower(place + "|" + regionBias))
}

// GeocodeQuery is the free-text query sent to the external resolver.
func GeocodeQuery(place, regionBias string) string {
	if regionBias == "" {
		return place
	}
	return place + ", " + regionBias
}
