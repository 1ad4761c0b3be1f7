package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quailyquaily/opguard/internal/clifmt"
	"github.com/quailyquaily/opguard/internal/jsonutil"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var (
		confirmed bool
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "log <operation> [details...]",
		Short: "Record an operation in the audit trail",
		Long: "Record an operation. Details that look like a JSON object or array are\n" +
			"stored as structured data; anything else is stored as text.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation := strings.TrimSpace(args[0])
			if operation == "" {
				return fmt.Errorf("empty operation")
			}
			details := jsonutil.DecodeDetails(strings.Join(args[1:], " "))

			ctx := sessionContext(cmd.Context())
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()

			entry := rt.eval.LogOperation(ctx, operation, details, confirmed)
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			}
			fmt.Fprintf(out, "%s %s %s\n", clifmt.Success("logged"), entry.ID, clifmt.Dim(entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "mark the operation as approved by a human")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the stored entry as JSON")
	return cmd
}
