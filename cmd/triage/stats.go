package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marwick/invoice-triage/internal/cli"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pattern store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			counts, err := store.GetCounts(ctx)
			if err != nil {
				return err
			}

			cmd.Println(cli.TitleStyle.Render("Pattern store"))
			cmd.Printf("  Vendor patterns:     %d\n", counts.VendorPatterns)
			cmd.Printf("  Correction patterns: %d\n", counts.CorrectionPatterns)
			cmd.Printf("  Resolution outcomes: %d\n", counts.ResolutionOutcomes)
			cmd.Printf("  Audit entries:       %d\n", counts.AuditEntries)
			cmd.Println(cli.SubtleStyle.Render(
				fmt.Sprintf("  total memory entities: %d",
					counts.VendorPatterns+counts.CorrectionPatterns+counts.ResolutionOutcomes)))

			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cmd.Println(cli.SuccessStyle.Render("Pattern store schema is up to date"))
			return nil
		},
	}
}
