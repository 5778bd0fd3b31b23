// Package tagger associates message text with tracked conflicts.
package tagger

import (
	"regexp"
	"sort"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/processing"
)

// UnknownShortCode labels a default-conflict match whose id is not in the registry.
const UnknownShortCode = "unknown"

type bank struct {
	code string
	re   *regexp.Regexp
}

// banks is ordered by short code.
var banks = compileBanks(conflictTerms)

func compileBanks(terms map[string][]string) []bank {
	codes := make([]string, 0, len(terms))
	for code := range terms {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]bank, 0, len(codes))
	for _, code := range codes {
		out = append(out, bank{code: code, re: processing.CompileTerms(terms[code])})
	}
	return out
}

// Tag returns the conflicts text relates to, strongest first.
//
// Equal scores are ordered by ascending short code. When nothing matches and
// the source has a default conflict, a single zero-score match for it is returned.
func Tag(text string, defaultConflictID *int64, registry *Registry) []models.ConflictMatch {
	var matches []models.ConflictMatch

	for _, b := range banks {
		id, ok := registry.ID(b.code)
		if !ok {
			continue
		}
		found := b.re.FindAllString(text, -1)
		if len(found) == 0 {
			continue
		}
		matches = append(matches, models.ConflictMatch{
			ConflictID:   id,
			ShortCode:    b.code,
			Score:        len(found),
			MatchedTerms: found,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ShortCode < matches[j].ShortCode
		}
		return matches[i].Score > matches[j].Score
	})

	if len(matches) == 0 && defaultConflictID != nil {
		code, ok := registry.ShortCode(*defaultConflictID)
		if !ok {
			code = UnknownShortCode
		}
		matches = append(matches, models.ConflictMatch{
			ConflictID: *defaultConflictID,
			ShortCode:  code,
		})
	}

	return matches
}

// RegionBias returns the geocoding region hint for a conflict.
func RegionBias(shortCode string) (string, bool) {
	r, ok := regionBias[shortCode]
	return r, ok
}

// HasBank reports whether a keyword bank exists for the short code.
func HasBank(shortCode string) bool {
	_, ok := conflictTerms[shortCode]
	return ok
}
