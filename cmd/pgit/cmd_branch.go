package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd(a *app) *cobra.Command {
	var deleteBranch bool

	cmd := &cobra.Command{
		Use:   "branch [name [start]]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteBranch {
				if len(args) != 1 {
					return fmt.Errorf("branch -d requires exactly one branch name")
				}
				if err := r.DeleteBranch(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted branch %s\n", args[0])
				return nil
			}

			if len(args) == 0 {
				branches, err := r.ListBranches()
				if err != nil {
					return err
				}
				current, _ := r.CurrentBranch()
				for _, b := range branches {
					if b == current {
						fmt.Fprintf(out, "* %s\n", b)
					} else {
						fmt.Fprintf(out, "  %s\n", b)
					}
				}
				return nil
			}

			var target object.Hash
			if len(args) == 2 {
				target, err = r.ResolveRevision(args[1])
			} else {
				target, err = r.ResolveHead()
				if errors.Is(err, repo.ErrUnbornBranch) {
					target, err = "", nil
				}
			}
			if err != nil {
				return err
			}
			if err := r.CreateBranch(args[0], target); err != nil {
				return err
			}
			if target == "" {
				fmt.Fprintf(out, "Created branch %s (unborn)\n", args[0])
			} else {
				fmt.Fprintf(out, "Created branch %s at %s\n", args[0], target.Short())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&deleteBranch, "delete", "d", false, "delete a branch")
	return cmd
}
