package main

import (
	"fmt"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [id...]",
		Short: "Re-hash every object reachable from refs, HEAD and the given ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			extra := make([]object.Hash, len(args))
			for i, arg := range args {
				extra[i] = object.Hash(arg)
			}

			report, err := r.Verify(extra...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, h := range report.Missing {
				fmt.Fprintf(out, "missing %s\n", h)
			}
			for _, h := range report.Corrupt {
				fmt.Fprintf(out, "corrupt %s\n", h)
			}
			fmt.Fprintf(out, "checked %d objects\n", report.Checked)
			if !report.OK() {
				return fmt.Errorf("verify: %d missing, %d corrupt", len(report.Missing), len(report.Corrupt))
			}
			return nil
		},
	}
}
