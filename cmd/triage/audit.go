package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marwick/invoice-triage/internal/cli"
	"github.com/marwick/invoice-triage/internal/service"
)

func auditCmd() *cobra.Command {
	var entityType, entityID, operation string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.QueryAuditEntries(ctx, service.AuditFilter{
				EntityType: entityType,
				EntityID:   entityID,
				Operation:  operation,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				cmd.Println("No audit entries match")
				return nil
			}

			for _, e := range entries {
				line := fmt.Sprintf("%s  %-28s %s/%s",
					e.CreatedAt.UTC().Format(time.RFC3339), e.Operation, e.EntityType, e.EntityID)
				cmd.Println(line)
				if e.Reasoning != "" {
					cmd.Println(cli.SubtleStyle.Render("    " + e.Reasoning))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "filter by entity type")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "filter by entity id")
	cmd.Flags().StringVar(&operation, "operation", "", "filter by operation name")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to return")

	return cmd
}
