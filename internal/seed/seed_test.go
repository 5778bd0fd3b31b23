package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/seed"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
)

const sample = `
conflicts:
  - name: Israel-Iran war
    short_code: israel-iran
    involved_countries: [Israel, Iran, Lebanon]
    map_center_lat: 32.0
    map_center_lon: 44.0
    map_zoom_level: 5
  - name: Russia-Ukraine war
    short_code: russia-ukraine
    involved_countries: [Russia, Ukraine]
    map_center_lat: 48.5
    map_center_lon: 35.0

sources:
  telegram:
    - identifier: warmonitors
      display_name: War Monitor
      default_conflict: russia-ukraine
      reliability_tier: high
    - identifier: generalnews
      default_conflict: no-such-conflict
  x:
    - identifier: osintdefender
      display_name: OSINTdefender
      reliability_tier: medium
      geo_weight: 1.5
      dom_weight: 0.5
  reddit:
`

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestParse(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, f.Conflicts, 2)
	require.Equal(t, "israel-iran", f.Conflicts[0].ShortCode)
	require.Equal(t, []string{"Israel", "Iran", "Lebanon"}, f.Conflicts[0].InvolvedCountries)
	require.Nil(t, f.Conflicts[1].MapZoomLevel)
	require.Len(t, f.Sources["telegram"], 2)
	require.Empty(t, f.Sources["reddit"])
	require.InDelta(t, 1.5, *f.Sources["x"][0].GeoWeight, 1e-9)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing short code": "conflicts:\n  - name: Nameless\n",
		"duplicate code":     "conflicts:\n  - {name: A, short_code: a}\n  - {name: B, short_code: a}\n",
		"missing identifier": "sources:\n  telegram:\n    - display_name: nobody\n",
		"unknown field":      "conflicts:\n  - {name: A, short_code: a, colour: red}\n",
		"not yaml":           "conflicts: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seed.Parse(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, f.Conflicts)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	f, err := seed.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	sum, err := seed.Apply(ctx, st, f, nil)
	require.NoError(t, err)
	require.Equal(t, seed.Summary{Conflicts: 2, Sources: 3}, sum)

	first, err := st.ActiveConflicts(ctx)
	require.NoError(t, err)

	_, err = seed.Apply(ctx, st, f, nil)
	require.NoError(t, err)

	second, err := st.ActiveConflicts(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	conflicts, err := st.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)

	ru, err := st.ConflictByCode(ctx, "russia-ukraine")
	require.NoError(t, err)
	require.Equal(t, 5, ru.MapZoomLevel)
	require.NotNil(t, ru.MapCenterLat)
	require.InDelta(t, 48.5, *ru.MapCenterLat, 1e-9)
}

func TestApplyResolvesSourceDefaults(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	f, err := seed.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = seed.Apply(ctx, st, f, nil)
	require.NoError(t, err)

	conflicts, err := st.ActiveConflicts(ctx)
	require.NoError(t, err)

	// Platforms are applied in lexical order: telegram, then x.
	monitor, err := st.SourceByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "warmonitors", monitor.Identifier)
	require.NotNil(t, monitor.DefaultConflictID)
	require.Equal(t, conflicts["russia-ukraine"], *monitor.DefaultConflictID)
	require.Equal(t, "high", monitor.ReliabilityTier)

	general, err := st.SourceByID(ctx, 2)
	require.NoError(t, err)
	require.Nil(t, general.DefaultConflictID)

	osint, err := st.SourceByID(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "x", osint.Platform)
	require.NotNil(t, osint.FilterRules)
	require.InDelta(t, 1.5, osint.FilterRules.Geo(), 1e-9)
	require.InDelta(t, 0.5, osint.FilterRules.Dom(), 1e-9)
}

func TestApplyLinksConflictsFromEarlierRuns(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	first, err := seed.Parse(strings.NewReader("conflicts:\n  - {name: Sudan civil war, short_code: sudan}\n"))
	require.NoError(t, err)
	_, err = seed.Apply(ctx, st, first, nil)
	require.NoError(t, err)

	second, err := seed.Parse(strings.NewReader("sources:\n  telegram:\n    - {identifier: sudanwatch, default_conflict: sudan}\n"))
	require.NoError(t, err)
	_, err = seed.Apply(ctx, st, second, nil)
	require.NoError(t, err)

	src, err := st.SourceByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, src.DefaultConflictID)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := seed.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, f.Conflicts, 2)

	_, err = seed.LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestBundledSourcesFile(t *testing.T) {
	f, err := seed.LoadFile(filepath.Join("..", "..", "config", "sources.yml"))
	require.NoError(t, err)
	require.NotEmpty(t, f.Conflicts)

	codes := make(map[string]bool, len(f.Conflicts))
	for _, c := range f.Conflicts {
		codes[c.ShortCode] = true
	}
	for platform, entries := range f.Sources {
		for _, s := range entries {
			if s.DefaultConflict != "" {
				require.True(t, codes[s.DefaultConflict], "%s/%s points at %s", platform, s.Identifier, s.DefaultConflict)
			}
		}
	}
}
