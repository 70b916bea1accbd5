package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/komikshub-bot/internal/matcher"
	"github.com/JamesPrial/komikshub-bot/internal/selection"
)

func newSeedCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty catalog with the seed characters",
		Long: `Inserts the built-in characters, or those from --file, when the configured
catalog is empty. A populated catalog is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer cleanup()

			backend, err := openCatalog(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer backend.Close()

			if file == "" {
				file = cfg.Storage.SeedPath
			}
			inserted, err := seedCatalog(cmd.Context(), backend, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d characters\n", inserted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (defaults to storage.seedPath)")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run the matcher against the catalog and print scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer cleanup()

			backend, err := openCatalog(cmd.Context(), cfg, cfg.Storage.Seed)
			if err != nil {
				return err
			}
			defer backend.Close()

			chars, err := backend.ListCharacters(cmd.Context())
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Matcher.Threshold
			}
			query := strings.Join(args, " ")
			candidates := matcher.New(threshold).Rank(cmd.Context(), query, chars)

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintf(out, "No characters match %q (threshold %d)\n", query, threshold)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tCHARACTER\tID")
			for _, c := range candidates {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.Score, selection.Label(c.Character), c.Character.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", matcher.DefaultThreshold, "Minimum score (defaults to matcher.threshold)")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer cleanup()

			backend, err := openCatalog(cmd.Context(), cfg, cfg.Storage.Seed)
			if err != nil {
				return err
			}
			defer backend.Close()

			stats, err := backend.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", k, stats[k])
			}
			return nil
		},
	}
}
