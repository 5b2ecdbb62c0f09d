package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/odvcencio/pgit/pkg/stash"
	"github.com/spf13/cobra"
)

func newStashCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Record work tree snapshots without moving any branch",
	}
	cmd.AddCommand(newStashSaveCmd(a))
	cmd.AddCommand(newStashListCmd(a))
	cmd.AddCommand(newStashShowCmd(a))
	cmd.AddCommand(newStashDropCmd(a))
	return cmd
}

func (a *app) openStash() (*stash.Stash, error) {
	r, err := a.openRepo()
	if err != nil {
		return nil, err
	}
	return stash.Open(r), nil
}

func newStashSaveCmd(a *app) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Snapshot the work tree onto the stash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStash()
			if err != nil {
				return err
			}
			e, err := s.Save(a.author(), message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", e.CommitID.Short(), e.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "stash message (default: WIP on <branch>)")
	return cmd
}

func newStashListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stash entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStash()
			if err != nil {
				return err
			}
			entries, err := s.List()
			if err != nil {
				return err
			}
			for i, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "stash@{%d} %s %s: %s\n",
					i, e.CommitID.Short(), time.Unix(e.Timestamp, 0).Format("2006-01-02 15:04:05"), e.Message)
			}
			return nil
		},
	}
}

func newStashShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [index]",
		Short: "Show a stash entry and the files it captured",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := stashIndex(args)
			if err != nil {
				return err
			}
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			e, c, err := stash.Open(r).Get(idx)
			if err != nil {
				return err
			}
			files, err := r.FlattenTree(c.TreeHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stash@{%d} %s\n", idx, e.CommitID)
			fmt.Fprintf(out, "Author: %s\n", c.Author)
			fmt.Fprintf(out, "Date:   %s\n\n    %s\n\n", time.Unix(c.Timestamp, 0).Format("2006-01-02 15:04:05"), e.Message)
			for _, f := range files {
				fmt.Fprintf(out, "%s %s\n", f.BlobHash.Short(), f.Path)
			}
			return nil
		},
	}
}

func newStashDropCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop [index]",
		Short: "Remove a stash entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := stashIndex(args)
			if err != nil {
				return err
			}
			s, err := a.openStash()
			if err != nil {
				return err
			}
			e, err := s.Drop(idx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped stash@{%d} (%s)\n", idx, e.CommitID.Short())
			return nil
		},
	}
}

func stashIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid stash index %q", args[0])
	}
	return idx, nil
}
