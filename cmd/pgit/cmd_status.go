package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how the work tree differs from HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			entries, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if short {
				for _, e := range entries {
					fmt.Fprintf(out, "%s %s\n", statusCode(e.Status), e.Path)
				}
				return nil
			}

			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if branch != "" {
				fmt.Fprintf(out, "On branch %s\n", branch)
			} else {
				head, _ := r.HeadRef()
				fmt.Fprintf(out, "HEAD detached at %s\n", head)
			}
			if _, err := r.ResolveHead(); errors.Is(err, repo.ErrUnbornBranch) {
				fmt.Fprintln(out, "\nNo commits yet")
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "\nnothing to commit, working tree clean")
				return nil
			}
			fmt.Fprintln(out, "\nChanges since HEAD:")
			for _, e := range entries {
				fmt.Fprintf(out, "\t%-9s %s\n", e.Status.String()+":", e.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "one line per changed path")
	return cmd
}

func statusCode(s repo.FileStatus) string {
	switch s {
	case repo.StatusNew:
		return "A"
	case repo.StatusModified:
		return "M"
	case repo.StatusDeleted:
		return "D"
	default:
		return "?"
	}
}
