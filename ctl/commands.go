package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeafMist/conflict-radar/backend/internal/classifier"
	"github.com/DeafMist/conflict-radar/backend/internal/geocoder"
	"github.com/DeafMist/conflict-radar/backend/internal/models"
	"github.com/DeafMist/conflict-radar/backend/internal/seed"
	"github.com/DeafMist/conflict-radar/backend/internal/store"
	"github.com/DeafMist/conflict-radar/backend/internal/tagger"
)

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <sources.yml>",
		Short: "Upsert conflicts and sources from a YAML file",
		Long: `Upsert conflicts and sources from a sources.yml file.
Safe to run repeatedly: existing rows are updated in place.

Examples:
  ctl seed config/sources.yml
  ctl --db /data/radar.db seed sources.yml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			sum, err := seed.Apply(cmd.Context(), st, f, a.log)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Upserted %d conflicts and %d sources.\n", sum.Conflicts, sum.Sources)
			return nil
		},
	}
}

func (a *app) conflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List tracked conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			conflicts, err := st.Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), conflicts)
			}
			if len(conflicts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conflicts. Run `ctl seed` first.")
				return nil
			}
			for _, c := range conflicts {
				state := "active"
				if !c.Active {
					state = "inactive"
				}
				region, _ := tagger.RegionBias(c.ShortCode)
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %-16s %-8s %s", c.ID, c.ShortCode, state, c.Name)
				if region != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (%s)", region)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.AddCommand(a.toggleCmd("activate", true), a.toggleCmd("deactivate", false))
	return cmd
}

func (a *app) toggleCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <short_code>",
		Short: strings.ToUpper(name[:1]) + name[1:] + " a conflict for tagging",
		Long: `Toggle whether a conflict takes part in tagging. Running processors
pick the change up on their next registry refresh.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetConflictActive(cmd.Context(), args[0], active); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("unknown conflict %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", args[0], name)
			return nil
		},
	}
}

type status struct {
	ActiveConflicts int `json:"active_conflicts"`
	Unprocessed     int `json:"unprocessed_messages"`
	Events          int `json:"events"`
	SchemaVersion   int `json:"schema_version"`
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backlog and event counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			var s status
			active, err := st.ActiveConflicts(ctx)
			if err != nil {
				return err
			}
			s.ActiveConflicts = len(active)
			if s.Unprocessed, err = st.CountUnprocessed(ctx); err != nil {
				return err
			}
			if s.Events, err = st.CountEvents(ctx); err != nil {
				return err
			}
			if s.SchemaVersion, err = st.SchemaVersion(ctx); err != nil {
				return err
			}

			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Active conflicts:     %d\n", s.ActiveConflicts)
			fmt.Fprintf(out, "Unprocessed messages: %d\n", s.Unprocessed)
			fmt.Fprintf(out, "Events:               %d\n", s.Events)
			fmt.Fprintf(out, "Schema version:       %d\n", s.SchemaVersion)
			return nil
		},
	}
}

type classifyReport struct {
	Classification models.Classification  `json:"classification"`
	Filtered       bool                   `json:"filtered"`
	Matches        []models.ConflictMatch `json:"matches"`
	RegionBias     string                 `json:"region_bias,omitempty"`
}

func (a *app) classifyCmd() *cobra.Command {
	var (
		geoWeight float64
		domWeight float64
	)
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Dry-run the classifier and conflict tagger on a text",
		Long: `Classify a text and tag it against the active conflicts in the store.
Nothing is written.

Examples:
  ctl classify "IDF airstrike hits Beirut suburb, 3 killed"
  ctl classify --geo-weight 1.5 "Senate vote on the budget"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			var rules *models.FilterRules
			if cmd.Flags().Changed("geo-weight") || cmd.Flags().Changed("dom-weight") {
				rules = &models.FilterRules{GeoWeight: &geoWeight, DomWeight: &domWeight}
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			active, err := st.ActiveConflicts(cmd.Context())
			if err != nil {
				return err
			}

			result := classifier.Classify(text, rules)
			report := classifyReport{
				Classification: result,
				Filtered:       !result.Relevant && result.Confidence >= a.cfg.ClassificationThreshold,
				Matches:        tagger.Tag(text, nil, tagger.NewRegistry(active)),
			}
			if len(report.Matches) > 0 {
				report.RegionBias, _ = tagger.RegionBias(report.Matches[0].ShortCode)
			}

			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Category:   %s (confidence %.2f)\n", result.Category, result.Confidence)
			fmt.Fprintf(out, "Relevant:   %t\n", result.Relevant)
			fmt.Fprintf(out, "Filtered:   %t\n", report.Filtered)
			if result.EventType != "" {
				fmt.Fprintf(out, "Event type: %s\n", result.EventType)
			}
			if len(report.Matches) == 0 {
				fmt.Fprintln(out, "Conflicts:  none")
				return nil
			}
			fmt.Fprintln(out, "Conflicts:")
			for _, m := range report.Matches {
				fmt.Fprintf(out, "  %s (score %d) %s\n", m.ShortCode, m.Score, strings.Join(m.MatchedTerms, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&geoWeight, "geo-weight", 1.0, "geopolitical score multiplier")
	cmd.Flags().Float64Var(&domWeight, "dom-weight", 1.0, "domestic politics score multiplier")
	return cmd
}

func (a *app) geocodeCmd() *cobra.Command {
	var (
		bias    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "geocode <place>",
		Short: "Resolve a place name through the geocoder",
		Long: `Resolve a place name the way the processor does: memory, then the
persistent cache in the store, then the rate-limited external geocoder.
Resolved results are written to the persistent cache unless --no-cache is set.

Examples:
  ctl geocode Kharkiv --bias "Eastern Europe"
  ctl geocode "Sidon" --no-cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			place := strings.Join(args, " ")

			opts := []geocoder.Option{geocoder.WithLogger(a.log)}
			if !noCache {
				st, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, geocoder.WithPersistentCache(st))
			}

			geo := geocoder.New(
				geocoder.NewNominatim(a.cfg.NominatimURL, a.cfg.NominatimUserAgent, a.cfg.NominatimTimeout),
				geocoder.NewLimiter(a.cfg.NominatimRateLimit),
				opts...,
			)

			res, ok := geo.Geocode(cmd.Context(), place, bias)
			if !ok {
				return fmt.Errorf("could not resolve %q", place)
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.5f, %.5f (confidence %.2f)\n  %s\n", res.Name, res.Lat, res.Lon, res.Confidence, res.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&bias, "bias", "", "region hint appended to the query, e.g. \"Middle East\"")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the persistent cache")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
