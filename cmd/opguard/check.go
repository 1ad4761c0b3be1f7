package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var flags decisionFlags
	cmd := &cobra.Command{
		Use:   "check -- <command...>",
		Short: "Check whether a shell command may run unattended",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			if strings.TrimSpace(command) == "" {
				return fmt.Errorf("empty command")
			}
			ctx := sessionContext(cmd.Context())
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()

			return settleDecision(ctx, cmd, rt, flags, "command_checked", rt.eval.ValidateCommand(command))
		},
	}
	flags.register(cmd)
	return cmd
}
