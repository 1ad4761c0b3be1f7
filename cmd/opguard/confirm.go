package main

import (
	"fmt"
	"os/user"
	"strings"
	"text/tabwriter"

	"github.com/quailyquaily/opguard/guard"
	"github.com/quailyquaily/opguard/internal/clifmt"
	"github.com/quailyquaily/opguard/internal/strutil"
	"github.com/spf13/cobra"
)

func newConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Resolve operations waiting for human confirmation",
	}
	cmd.AddCommand(
		newResolveCmd("approve", guard.ConfirmationApproved),
		newResolveCmd("deny", guard.ConfirmationDenied),
		newPendingCmd(),
	)
	return cmd
}

func newResolveCmd(use string, status guard.ConfirmationStatus) *cobra.Command {
	var (
		actor   string
		comment string
	)
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a pending confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := sessionContext(cmd.Context())
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.confirmations == nil {
				return fmt.Errorf("confirmations are disabled or unavailable")
			}

			id := strings.TrimSpace(args[0])
			rec, ok, err := rt.confirmations.Get(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("confirmation %q not found", id)
			}
			if actor == "" {
				actor = currentUser()
			}
			if err := rt.confirmations.Resolve(ctx, id, status, actor, comment); err != nil {
				return fmt.Errorf("%w (status=%s)", err, rec.Status)
			}

			// Audit under the session that asked, not the one resolving.
			logCtx := guard.WithSessionID(ctx, rec.SessionID)
			rt.eval.LogOperation(logCtx, "confirmation_"+string(status), map[string]any{
				"confirmation_id": id,
				"kind":            string(rec.Kind),
				"subject":         rec.Subject,
				"reason":          rec.Reason,
				"actor":           actor,
				"comment":         comment,
			}, status == guard.ConfirmationApproved)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", clifmt.Success(string(status)), id, clifmt.Dim(strutil.Ellipsize(rec.Subject, 80)))
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "who resolved it (default: current user)")
	cmd.Flags().StringVar(&comment, "comment", "", "free-form note stored with the resolution")
	return cmd
}

func newPendingCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending confirmations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.confirmations == nil {
				return fmt.Errorf("confirmations are disabled or unavailable")
			}

			recs, err := rt.confirmations.ListPending(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, clifmt.Dim("no pending confirmations"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEXPIRES\tKIND\tRISK\tSUBJECT")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.ExpiresAt.Local().Format("15:04:05"),
					r.Kind,
					r.RiskLevel,
					strutil.Ellipsize(r.Subject, 80),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of records")
	return cmd
}

func currentUser() string {
	u, err := user.Current()
	if err != nil || strings.TrimSpace(u.Username) == "" {
		return "unknown"
	}
	return u.Username
}
