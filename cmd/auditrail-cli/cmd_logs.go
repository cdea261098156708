package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/auditrail/client"
)

func newLogsCmd() *cobra.Command {
	var from, to string
	var limit int
	var allTenants bool

	cmd := &cobra.Command{
		Use:   "logs <entity-name> [entity-id]",
		Short: "Show audit history, newest first",
		Long: "With an entity id, show the history of that instance, optionally " +
			"restricted to --tenant or to the --from/--to range. Without one, show " +
			"every entry for the entity type.",
		Args: cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if len(args) == 1 {
				if from != "" || to != "" {
					fatal("list logs", fmt.Errorf("--from/--to require an entity id"))
				}
				entries, err := apiClient.Logs.ForEntityName(ctx, args[0], limit)
				if err != nil {
					fatal("list logs", err)
				}
				printEntries(entries)
				return
			}

			opts, err := entityQueryOptions(from, to, limit, allTenants)
			if err != nil {
				fatal("list logs", err)
			}
			entries, err := apiClient.Logs.ForEntity(ctx, args[0], args[1], opts)
			if err != nil {
				fatal("list logs", err)
			}
			printEntries(entries)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Range start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (RFC3339)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries (0 = all)")
	cmd.Flags().BoolVar(&allTenants, "all-tenants", false, "Do not filter by the configured tenant")
	return cmd
}

// entityQueryOptions builds the filter for one entity. The configured tenant
// applies unless a range is given or allTenants is set.
func entityQueryOptions(from, to string, limit int, allTenants bool) (*client.LogQueryOptions, error) {
	opts := &client.LogQueryOptions{Limit: limit}

	if (from == "") != (to == "") {
		return nil, fmt.Errorf("--from and --to must be given together")
	}

	if from != "" {
		f, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, fmt.Errorf("parse --from: %w", err)
		}
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, fmt.Errorf("parse --to: %w", err)
		}
		if f.After(t) {
			return nil, fmt.Errorf("--from must not be after --to")
		}
		opts.From, opts.To = &f, &t
		return opts, nil
	}

	if !allTenants {
		opts.TenantID = flagTenant
	}
	return opts, nil
}

func printEntries(entries []client.AuditEntry) {
	switch flagFmt {
	case "table":
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			tenant := ""
			if e.TenantID != nil {
				tenant = *e.TenantID
			}
			rows = append(rows, []string{
				e.ChangedAt.Format(time.RFC3339),
				string(e.Action),
				e.EntityName,
				e.EntityID,
				e.ChangedBy,
				tenant,
				strconv.FormatInt(e.Seq, 10),
			})
		}
		formatTable([]string{"CHANGED_AT", "ACTION", "ENTITY", "ID", "BY", "TENANT", "SEQ"}, rows)
	case "quiet":
		for _, e := range entries {
			formatQuiet(e.ID)
		}
	default:
		formatJSON(entries)
	}
}
