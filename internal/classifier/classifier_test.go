package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/classifier"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
)

func weight(v float64) *float64 { return &v }

func TestClassifyEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		got := classifier.Classify(text, nil)
		require.Equal(t, models.CategoryUnclassified, got.Category)
		require.Zero(t, got.Confidence)
		require.False(t, got.Relevant)
	}
}

func TestClassifyGeopoliticalAirstrike(t *testing.T) {
	got := classifier.Classify("IDF airstrike hits Beirut suburb, 3 killed", nil)

	require.Equal(t, models.CategoryGeopolitical, got.Category)
	require.True(t, got.Relevant)
	require.Equal(t, 1.0, got.Confidence)
	require.Equal(t, "airstrike", got.EventType)
	require.ElementsMatch(t, []string{"IDF", "airstrike"}, got.MatchedTerms)
}

func TestClassifySatire(t *testing.T) {
	got := classifier.Classify("lmao based and cope, ratio", nil)

	require.Equal(t, models.CategorySatire, got.Category)
	require.False(t, got.Relevant)
	require.Equal(t, 1.0, got.Confidence)
	require.Empty(t, got.EventType)
}

func TestClassifyDomesticPolitics(t *testing.T) {
	got := classifier.Classify("Senate vote GOP filibuster", nil)

	require.Equal(t, models.CategoryDomesticPolitics, got.Category)
	require.False(t, got.Relevant)
	require.Equal(t, 1.0, got.Confidence)
}

func TestClassifyLowConfidenceDomestic(t *testing.T) {
	text := "bipartisan delegation visited Kyiv today and talked with many local officials about the situation there now"
	got := classifier.Classify(text, nil)

	require.Equal(t, models.CategoryDomesticPolitics, got.Category)
	require.InDelta(t, 0.5, got.Confidence, 1e-9)
	require.False(t, got.Relevant)
}

func TestClassifyUnclassified(t *testing.T) {
	got := classifier.Classify("nice weather in the park today", nil)
	require.Equal(t, models.CategoryUnclassified, got.Category)
	require.Zero(t, got.Confidence)
}

func TestClassifyGeoWeightSuppresses(t *testing.T) {
	text := "troops seen near the border"
	require.Equal(t, models.CategoryGeopolitical, classifier.Classify(text, nil).Category)

	rules := &models.FilterRules{GeoWeight: weight(0)}
	require.Equal(t, models.CategoryUnclassified, classifier.Classify(text, rules).Category)
}

func TestClassifyDomWeightTipsBalance(t *testing.T) {
	text := "Congress debates military aid package"
	base := classifier.Classify(text, nil)
	require.Equal(t, models.CategoryGeopolitical, base.Category)

	rules := &models.FilterRules{DomWeight: weight(2)}
	require.Equal(t, models.CategoryDomesticPolitics, classifier.Classify(text, rules).Category)
}

func TestClassifySatireNeedsLowGeoScore(t *testing.T) {
	got := classifier.Classify("lol airstrike", nil)
	require.Equal(t, models.CategoryGeopolitical, got.Category)
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "Shelling reported near Kharkiv, convoy spotted, casualties unknown"
	rules := &models.FilterRules{GeoWeight: weight(1.5)}

	first := classifier.Classify(text, rules)
	for _i := 0; _i < 20; _i++ {
		require.Equal(t, first, classifier.Classify(text, rules))
	}
}

func TestInferEventTypeOrder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "airstrike before casualty", text: "airstrike left 3 killed", want: "airstrike"},
		{name: "missile", text: "ballistic missile launched", want: "missile_strike"},
		{name: "shelling", text: "heavy artillery overnight", want: "shelling"},
		{name: "interception", text: "drones intercepted over the city", want: "interception"},
		{name: "casualties", text: "5 wounded", want: "casualty_report"},
		{name: "movement", text: "convoy advancing north", want: "movement"},
		{name: "diplomatic", text: "truce holds", want: "diplomatic"},
		{name: "arms", text: "new weapons transfer approved", want: "arms_transfer"},
		{name: "statement", text: "ministry will announce details", want: "statement"},
		{name: "case insensitive", text: "AIRSTRIKE", want: "airstrike"},
		{name: "whole word only", text: "deadline extended", want: ""},
		{name: "none", text: "quiet day", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classifier.InferEventType(tt.text))
		})
	}
}
