package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/marwick/invoice-triage/internal/cli"
	"github.com/marwick/invoice-triage/internal/engine"
	"github.com/marwick/invoice-triage/internal/model"
	"github.com/marwick/invoice-triage/internal/recall"
)

func processCmd() *cobra.Command {
	var asJSON bool
	var exactShape bool

	cmd := &cobra.Command{
		Use:   "process <file-or-directory>",
		Short: "Run invoices through the decision pipeline",
		Long: `Process reads one invoice JSON file, or every .json file in a
directory, runs each through recall, normalization, correction proposal and
decision, and prints the published result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := engine.DefaultConfig()
			cfg.Recall = recall.DefaultConfig()
			cfg.Recall.ExactShapeMatch = exactShape
			eng := engine.NewWithConfig(store, cfg)

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", args[0], err)
			}

			if info.IsDir() {
				return processDirectory(cmd, eng, args[0], asJSON)
			}
			return processFile(cmd, eng, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&exactShape, "exact-shape", false, "require exact shape-key matches for resolution outcomes")

	return cmd
}

func processFile(cmd *cobra.Command, eng *engine.Engine, path string, asJSON bool) error {
	invoice, err := loadInvoice(path)
	if err != nil {
		return err
	}

	result, err := eng.ProcessInvoice(cmd.Context(), invoice)
	if err != nil {
		return err
	}

	return printResult(cmd, result, asJSON)
}

func processDirectory(cmd *cobra.Command, eng *engine.Engine, dir string, asJSON bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var invoices []*model.Invoice
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		invoice, err := loadInvoice(filepath.Join(dir, entry.Name()))
		if err != nil {
			cmd.PrintErrln(cli.WarningStyle.Render(fmt.Sprintf("skipping %s: %v", entry.Name(), err)))
			continue
		}
		invoices = append(invoices, invoice)
	}

	if len(invoices) == 0 {
		cmd.Println("No invoices to process")
		return nil
	}

	bar := progressbar.NewOptions(len(invoices),
		progressbar.OptionSetDescription("Processing invoices"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	// Advance as workers finish; progressbar.Add is safe for concurrent use.
	results := eng.ProcessBatch(cmd.Context(), invoices, func(engine.BatchResult) {
		_ = bar.Add(1)
	})

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			cmd.PrintErrln(cli.ErrorStyle.Render(fmt.Sprintf("document %s: %v", invoices[r.Index].ID, r.Err)))
			continue
		}
		if err := printResult(cmd, r.Result, asJSON); err != nil {
			return err
		}
	}
	_ = bar.Finish()

	cmd.Println(cli.SubtleStyle.Render(
		fmt.Sprintf("\nProcessed %d invoices, %d failed", len(invoices), failed)))

	return nil
}

func printResult(cmd *cobra.Command, result *model.ProcessingResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	style := cli.ActionStyle(result.Decision)
	cmd.Println(cli.TitleStyle.Render(fmt.Sprintf("Document %s", result.DocumentID)))
	cmd.Printf("  Decision:   %s\n", style.Render(string(result.Decision)))
	cmd.Printf("  Confidence: %.2f\n", result.ConfidenceScore)
	cmd.Printf("  Reasoning:  %s\n", result.Reasoning)

	if len(result.AppliedCorrections) > 0 {
		cmd.Println("  Corrections:")
		for _, c := range result.AppliedCorrections {
			cmd.Printf("    %s: %q -> %q (%.2f)\n",
				c.Field, c.OriginalValue, c.CorrectedValue, c.Confidence)
		}
	}

	cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf(
		"  memory: %d vendor patterns, %d corrections, %.0f%% historical accuracy",
		result.MemoryInsights.VendorPatternsUsed,
		result.MemoryInsights.CorrectionsApplied,
		result.MemoryInsights.HistoricalAccuracy*100)))

	return nil
}
