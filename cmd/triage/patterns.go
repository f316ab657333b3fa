package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marwick/invoice-triage/internal/cli"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and maintain vendor patterns",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsDecayCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <vendor>",
		Short: "List vendor patterns for a vendor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			patterns, err := store.GetVendorPatterns(ctx, args[0])
			if err != nil {
				return err
			}

			if len(patterns) == 0 {
				cmd.Println("No patterns for this vendor")
				return nil
			}

			cmd.Println(cli.TitleStyle.Render(fmt.Sprintf("Patterns for %s", args[0])))
			for _, p := range patterns {
				cmd.Printf("  %s  confidence=%.2f  uses=%d  mappings=%d  rules=%d\n",
					p.ID, p.Confidence, p.UseCount, len(p.FieldMappings), len(p.Rules))
			}
			return nil
		},
	}
}

func patternsDecayCmd() *cobra.Command {
	var delta float64

	cmd := &cobra.Command{
		Use:   "decay <pattern-id>",
		Short: "Decay a vendor pattern's confidence toward zero",
		Long: `Decay lowers a vendor pattern's confidence without deleting it.
Patterns are never hard-deleted; a fully decayed pattern simply stops
influencing decisions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if delta <= 0 {
				return fmt.Errorf("--delta must be positive")
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.AdjustVendorConfidence(ctx, args[0], -delta); err != nil {
				return err
			}

			cmd.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Decayed pattern %s by %.2f", args[0], delta)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&delta, "delta", 0.1, "confidence decrement to apply")

	return cmd
}
