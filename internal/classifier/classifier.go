// Package classifier scores message text against keyword banks and decides
// whether a post is geopolitical, domestic politics, satire or noise.
package classifier

import (
	"math"
	"strings"

	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

const (
	highTierWeight   = 3
	satireDensityMin = 0.05
	satireGeoMax     = 0.1
	satireScale      = 10
	confidenceScale  = 8
)

// Classify is deterministic: the same text and rules always give the same result.
func Classify(text string, rules *models.FilterRules) models.Classification {
	if strings.TrimSpace(text) == "" {
		return models.Classification{Category: models.CategoryUnclassified}
	}

	wordCount := float64(max(len(strings.Fields(text)), 1))

	satire := reSatire.FindAllString(strings.ToLower(text), -1)
	satireDensity := float64(len(satire)) / wordCount

	domHigh := reDomHigh.FindAllString(text, -1)
	domMed := reDomMed.FindAllString(text, -1)
	domScore := float64(len(domHigh)*highTierWeight+len(domMed)) / wordCount

	geoHigh := reGeoHigh.FindAllString(text, -1)
	geoMed := reGeoMed.FindAllString(text, -1)
	geoScore := float64(len(geoHigh)*highTierWeight+len(geoMed)) / wordCount

	geoScore *= rules.Geo()
	domScore *= rules.Dom()

	switch {
	case satireDensity > satireDensityMin && geoScore < satireGeoMax:
		return models.Classification{
			Category:     models.CategorySatire,
			Confidence:   math.Min(satireDensity*satireScale, 1.0),
			MatchedTerms: satire,
		}
	case geoScore > domScore && geoScore > 0:
		return models.Classification{
			Category:     models.CategoryGeopolitical,
			Confidence:   math.Min(geoScore*confidenceScale, 1.0),
			Relevant:     true,
			MatchedTerms: append(geoHigh, geoMed...),
			EventType:    InferEventType(text),
		}
	case domScore > geoScore && domScore > 0:
		return models.Classification{
			Category:     models.CategoryDomesticPolitics,
			Confidence:   math.Min(domScore*confidenceScale, 1.0),
			MatchedTerms: append(domHigh, domMed...),
		}
	default:
		return models.Classification{Category: models.CategoryUnclassified}
	}
}

// InferEventType returns the first event type whose keywords occur in text,
// or "" when none do.
func InferEventType(text string) string {
	for _, p := range eventPatterns {
		if p.re.MatchString(text) {
			return p.eventType
		}
	}
	return ""
}
