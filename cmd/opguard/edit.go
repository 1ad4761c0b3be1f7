package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		flags   decisionFlags
		oldFile string
		newFile string
	)
	cmd := &cobra.Command{
		Use:   "edit <path>",
		Short: "Check whether a file edit may be applied unattended",
		Long: "Check a proposed edit to <path>. With --old and --new the large-deletion\n" +
			"heuristic compares line counts; either may be '-' to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if oldFile == "-" && newFile == "-" {
				return fmt.Errorf("--old and --new cannot both read stdin")
			}
			oldContent, err := readOptionalContent(cmd.InOrStdin(), oldFile)
			if err != nil {
				return fmt.Errorf("--old: %w", err)
			}
			newContent, err := readOptionalContent(cmd.InOrStdin(), newFile)
			if err != nil {
				return fmt.Errorf("--new: %w", err)
			}

			ctx := sessionContext(cmd.Context())
			rt, err := runtimeFromViper(ctx, loggerFromViper())
			if err != nil {
				return err
			}
			defer rt.Close()

			d := rt.eval.ValidateFileEdit(args[0], oldContent, newContent)
			return settleDecision(ctx, cmd, rt, flags, "file_edit_checked", d)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&oldFile, "old", "", "file holding the current content ('-' for stdin)")
	cmd.Flags().StringVar(&newFile, "new", "", "file holding the proposed content ('-' for stdin)")
	return cmd
}

// readOptionalContent returns nil when no source is given. A missing file
// reads as empty content: the edit creates it.
func readOptionalContent(stdin io.Reader, src string) (*string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	var (
		b   []byte
		err error
	)
	if src == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(src)
		if os.IsNotExist(err) {
			b, err = nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
