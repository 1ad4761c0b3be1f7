package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/quailyquaily/opguard/auditstore"
	"github.com/quailyquaily/opguard/guard"
	"github.com/quailyquaily/opguard/internal/clifmt"
	"github.com/quailyquaily/opguard/internal/strutil"
	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var (
		opt     auditstore.ListOptions
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List persisted audit records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.auditStore == nil {
				return fmt.Errorf("audit database is unavailable; check audit.db.enabled and db.dsn")
			}

			events, err := rt.auditStore.List(ctx, opt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, clifmt.Dim("no audit records"))
				return nil
			}
			return writeAuditTable(out, events)
		},
	}
	cmd.Flags().StringVar(&opt.SessionID, "session-filter", "", "only records from this session")
	cmd.Flags().StringVar(&opt.Operation, "operation", "", "only records with this operation label")
	cmd.Flags().IntVar(&opt.Limit, "limit", 50, "maximum number of records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print records as JSON")
	return cmd
}

// writeAuditTable prints events as aligned columns. Cells stay uncolored:
// tabwriter counts escape bytes as width.
func writeAuditTable(w io.Writer, events []guard.AuditEvent) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tOPERATION\tCONFIRMED\tDETAILS")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.SessionID,
			e.Operation,
			e.UserConfirmed,
			strutil.Ellipsize(e.DetailsRedacted, 80),
		)
	}
	return tw.Flush()
}
