package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd(a *app) *cobra.Command {
	var newBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch the work tree to a branch or commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			target := args[0]

			if newBranch {
				head, err := r.ResolveHead()
				if err != nil {
					return fmt.Errorf("checkout -b: %w", err)
				}
				if err := r.CreateBranch(target, head); err != nil {
					return err
				}
			}
			if err := r.Checkout(target); err != nil {
				return err
			}

			if branch, _ := r.CurrentBranch(); branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to branch '%s'\n", branch)
			} else {
				head, _ := r.HeadRef()
				fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s\n", head)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&newBranch, "branch", "b", false, "create the branch at HEAD before switching")
	return cmd
}
