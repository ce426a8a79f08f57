package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/smartlead-tagmapper/internal/app"
	"github.com/ignite/smartlead-tagmapper/internal/config"
	"github.com/ignite/smartlead-tagmapper/internal/ingest"
	"github.com/ignite/smartlead-tagmapper/internal/tagmap"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "tagmap",
		Short:         "Map uploaded email/tag pairs onto Smartlead accounts and apply the tags",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults and environment when empty)")

	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(lookupsCmd())
	rootCmd.AddCommand(runCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app.ConfigureLogger(cfg.Log)
	return app.New(ctx, cfg)
}

func previewCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show detected delimiter, encoding, headers and the first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := ingest.Preview(data, rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Delimiter: %q  Encoding: %s  Rows: %d\n", p.Delimiter, p.Encoding, p.TotalRows)
			fmt.Fprintf(out, "Suggested email column: %s\n", orNone(p.SuggestedEmailColumn))
			fmt.Fprintf(out, "Suggested tag column:   %s\n\n", orNone(p.SuggestedTagColumn))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(p.Headers, "\t"))
			for _, row := range p.Rows {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&rows, "rows", ingest.DefaultPreviewRows, "number of rows to show")
	return cmd
}

func lookupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookups",
		Short: "Fetch accounts and tags and report counts and ambiguous tag names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, tags, err := a.Pipeline.Lookups(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accounts: %d\n", len(accounts))
			fmt.Fprintf(out, "Tags:     %d\n", len(tags))
			ambiguous := tags.Ambiguous()
			if len(ambiguous) == 0 {
				return nil
			}
			fmt.Fprintf(out, "Ambiguous tag names (%d):\n", len(ambiguous))
			for _, name := range ambiguous {
				fmt.Fprintf(out, "  %s -> %v\n", name, tags[name])
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var (
		emailColumn string
		tagColumn   string
		apply       bool
		outDir      string
		results     bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Reconcile an upload and, with --apply, write the tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Pipeline.Run(cmd.Context(), tagmap.RunInput{
				Data:    data,
				Mapping: ingest.ColumnMapping{EmailColumn: emailColumn, TagColumn: tagColumn},
				DryRun:  !apply,
			})
			if err != nil {
				return err
			}

			printSummary(cmd, result)

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := writeFile(cmd, filepath.Join(outDir, tagmap.MappedFilename), result.MappedCSV); err != nil {
				return err
			}
			if results {
				return writeFile(cmd, filepath.Join(outDir, tagmap.ResultsFilename), result.ResultsCSV)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&emailColumn, "email-column", "", "header of the email column (auto-detected when empty)")
	cmd.Flags().StringVar(&tagColumn, "tag-column", "", "header of the tag column (auto-detected when empty)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write tags to Smartlead (dry run otherwise)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for exported CSVs")
	cmd.Flags().BoolVar(&results, "results", false, "also write the per-row results CSV to --out")
	return cmd
}

func printSummary(cmd *cobra.Command, r *tagmap.RunResult) {
	s := r.Summary
	out := cmd.OutOrStdout()
	mode := "apply"
	if s.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "Run %s (%s)\n", r.RunID, mode)
	fmt.Fprintf(out, "  file:            %d rows, delimiter %q, %s\n", r.Meta.Rows, r.Meta.Delimiter, r.Meta.Encoding)
	fmt.Fprintf(out, "  columns:         email=%s tag=%s\n", r.Meta.EmailColumn, r.Meta.TagColumn)
	fmt.Fprintf(out, "  matched:         %d\n", s.Matched)
	fmt.Fprintf(out, "  unmatched email: %d\n", s.UnmatchedEmail)
	fmt.Fprintf(out, "  unmatched tag:   %d\n", s.UnmatchedTag)
	fmt.Fprintf(out, "  ambiguous tag:   %d\n", s.AmbiguousTag)
	fmt.Fprintf(out, "  batches:         %d (applied %d, failed %d)\n", s.TotalBatches, s.AppliedBatches, s.FailedBatches)
	for _, loc := range r.Artifacts {
		fmt.Fprintf(out, "  artifact:        %s\n", loc)
	}
}

func writeFile(cmd *cobra.Command, path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
