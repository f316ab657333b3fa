package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marwick/invoice-triage/internal/cli"
	"github.com/marwick/invoice-triage/internal/learning"
	"github.com/marwick/invoice-triage/internal/model"
)

func feedbackCmd() *cobra.Command {
	var correctionID, vendorPatternID, reasoning string
	var reject bool

	cmd := &cobra.Command{
		Use:   "feedback <document-id>",
		Short: "Record human feedback for a processed document",
		Long: `Feedback approves or rejects memory entities that contributed to a
document's decision, reinforcing or weakening their confidence. Feedback for
a document already learned from is skipped (the skip is audited).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if correctionID == "" && vendorPatternID == "" {
				return fmt.Errorf("at least one of --correction or --vendor-pattern is required")
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learning.New(store)
			feedback := model.Feedback{
				DocumentID:      args[0],
				CorrectionID:    correctionID,
				VendorPatternID: vendorPatternID,
				Approved:        !reject,
				Reasoning:       reasoning,
				Timestamp:       time.Now().UTC(),
			}

			if err := learner.ProcessFeedback(ctx, feedback); err != nil {
				return err
			}

			verdict := "approved"
			if reject {
				verdict = "rejected"
			}
			cmd.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Feedback recorded: %s for document %s", verdict, args[0])))
			return nil
		},
	}

	cmd.Flags().StringVar(&correctionID, "correction", "", "correction pattern id the feedback targets")
	cmd.Flags().StringVar(&vendorPatternID, "vendor-pattern", "", "vendor pattern id the feedback targets")
	cmd.Flags().StringVar(&reasoning, "reason", "", "free-text reviewer reasoning")
	cmd.Flags().BoolVar(&reject, "reject", false, "record a rejection instead of an approval")

	cmd.AddCommand(feedbackCorrectCmd())

	return cmd
}

func feedbackCorrectCmd() *cobra.Command {
	var field, original, corrected string

	cmd := &cobra.Command{
		Use:   "correct <invoice.json>",
		Short: "Teach a human-supplied field correction",
		Long: `Correct records a value a reviewer fixed by hand: a new correction
pattern starts at confidence 0.7 and a resolution outcome captures the
invoice shape, so future documents from this vendor benefit immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if field == "" || original == "" || corrected == "" {
				return fmt.Errorf("--field, --original and --corrected are all required")
			}

			invoice, err := loadInvoice(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learning.New(store)
			corrections := []model.Correction{
				{Field: field, OriginalValue: original, CorrectedValue: corrected},
			}
			if err := learner.LearnFromCorrections(ctx, invoice, corrections, nil); err != nil {
				return err
			}

			cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf(
				"Learned correction for %s: %q -> %q on document %s",
				field, original, corrected, invoice.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "field the reviewer corrected")
	cmd.Flags().StringVar(&original, "original", "", "value before the correction")
	cmd.Flags().StringVar(&corrected, "corrected", "", "value after the correction")

	return cmd
}
