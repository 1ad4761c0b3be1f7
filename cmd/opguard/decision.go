package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/quailyquaily/opguard/guard"
	"github.com/quailyquaily/opguard/internal/clifmt"
	"github.com/quailyquaily/opguard/internal/strutil"
	"github.com/spf13/cobra"
)

type outcome string

const (
	outcomeAllowed   outcome = "allowed"
	outcomeBlocked   outcome = "blocked"
	outcomePending   outcome = "pending_confirmation"
	outcomeConfirmed outcome = "confirmed"
	outcomeDeclined  outcome = "declined"
)

type decisionFlags struct {
	jsonOut     bool
	interactive bool
	noLog       bool
}

func (f *decisionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the decision as JSON")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "ask for confirmation on a terminal when required")
	cmd.Flags().BoolVar(&f.noLog, "no-log", false, "do not record the decision in the audit log")
}

type decisionReport struct {
	Decision       guard.Decision `json:"decision"`
	Outcome        outcome        `json:"outcome"`
	ConfirmationID string         `json:"confirmation_id,omitempty"`
}

// settleDecision renders d, resolves a required confirmation (prompt, stored
// confirmation, or plain block) and records the outcome. It returns
// errNotAllowed when the operation must not proceed.
func settleDecision(ctx context.Context, cmd *cobra.Command, rt *runtime, flags decisionFlags, operation string, d guard.Decision) error {
	out := cmd.OutOrStdout()
	rep := decisionReport{Decision: d, Outcome: outcomeAllowed}
	if !flags.jsonOut {
		printDecision(out, d)
	}

	confirmed := false
	if !d.Allowed {
		rep.Outcome = outcomeBlocked
		switch {
		case flags.interactive && !flags.jsonOut && clifmt.IsInteractive():
			ok, err := promptYesNo(cmd.InOrStdin(), out, "Proceed anyway?")
			if err != nil {
				return err
			}
			confirmed = ok
			rep.Outcome = outcomeDeclined
			if ok {
				rep.Outcome = outcomeConfirmed
			}
		case rt.confirmations != nil:
			id, err := rt.confirmations.Create(ctx, guard.NewConfirmationRecord(ctx, d))
			if err != nil {
				rt.log.Warn("confirmation_create_failed", "error", err.Error())
				break
			}
			rep.Outcome = outcomePending
			rep.ConfirmationID = id
			if !flags.jsonOut {
				fmt.Fprintf(out, "%s %s\n", clifmt.Dim("confirmation:"), clifmt.Key(id))
				fmt.Fprintf(out, "%s\n", clifmt.Dim("resolve with: opguard confirm approve|deny "+id))
			}
		}
	}

	if !flags.noLog {
		rt.eval.LogOperation(ctx, operation, decisionDetails(rep), confirmed)
	}
	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	}

	if rep.Outcome == outcomeAllowed || rep.Outcome == outcomeConfirmed {
		return nil
	}
	return errNotAllowed
}

func decisionDetails(rep decisionReport) map[string]any {
	d := rep.Decision
	m := map[string]any{
		"allowed":               d.Allowed,
		"requires_confirmation": d.RequiresConfirmation,
		"risk_level":            string(d.RiskLevel),
		"outcome":               string(rep.Outcome),
	}
	if d.Command != "" {
		m["command"] = d.Command
	}
	if d.File != "" {
		m["file"] = d.File
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	if d.Rule != "" {
		m["rule"] = d.Rule
	}
	if rep.ConfirmationID != "" {
		m["confirmation_id"] = rep.ConfirmationID
	}
	return m
}

func printDecision(w io.Writer, d guard.Decision) {
	subject := d.Command
	if d.File != "" {
		subject = d.File
	}
	subject = strutil.Ellipsize(subject, 120)

	if d.Allowed {
		fmt.Fprintf(w, "%s %s\n", clifmt.Success("ALLOW"), subject)
		return
	}
	fmt.Fprintf(w, "%s %s\n", clifmt.Danger("CONFIRM"), subject)
	fmt.Fprintf(w, "  %s %s\n", clifmt.Dim("risk:"), string(d.RiskLevel))
	fmt.Fprintf(w, "  %s %s\n", clifmt.Dim("reason:"), d.Reason)
	fmt.Fprintf(w, "  %s %s\n", clifmt.Dim("suggestion:"), clifmt.Warn(d.Suggestion))
}

func promptYesNo(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
