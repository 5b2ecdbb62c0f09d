package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd(a *app) *cobra.Command {
	var oneline bool
	var limit int
	var showSig bool

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history, breadth-first across all parents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}

			var entries []repo.LogEntry
			if len(args) == 1 {
				start, err := r.ResolveRevision(args[0])
				if err != nil {
					return err
				}
				entries = r.Log(start, limit)
			} else {
				entries, err = r.History(limit)
				if err != nil {
					return fmt.Errorf("cannot resolve HEAD: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no commits yet")
				return nil
			}

			headHash, _ := r.ResolveHead()
			branchName, _ := r.CurrentBranch()
			for _, e := range entries {
				printLogEntry(out, e, buildDecoration(e.Hash, headHash, branchName), oneline, showSig)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show (0 for all)")
	cmd.Flags().BoolVar(&showSig, "show-signature", false, "verify and show SSH commit signatures")
	return cmd
}

func printLogEntry(out io.Writer, e repo.LogEntry, decoration string, oneline, showSig bool) {
	c := e.Commit
	if oneline {
		if decoration != "" {
			fmt.Fprintf(out, "%s %s %s\n", e.Hash.Short(), decoration, firstLine(c.Message))
		} else {
			fmt.Fprintf(out, "%s %s\n", e.Hash.Short(), firstLine(c.Message))
		}
		return
	}

	if decoration != "" {
		fmt.Fprintf(out, "commit %s %s\n", e.Hash, decoration)
	} else {
		fmt.Fprintf(out, "commit %s\n", e.Hash)
	}
	if len(c.Parents) > 1 {
		shorts := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			shorts[i] = p.Short()
		}
		fmt.Fprintf(out, "Merge: %s\n", strings.Join(shorts, " "))
	}
	if showSig && c.Signature != "" {
		if fp, err := verifyCommitSignature(c); err != nil {
			fmt.Fprintf(out, "Signature: BAD (%v)\n", err)
		} else {
			fmt.Fprintf(out, "Signature: good, key %s\n", fp)
		}
	}
	fmt.Fprintf(out, "Author: %s\n", c.Author)
	fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Timestamp, 0).Format("2006-01-02 15:04:05"))
	fmt.Fprintln(out)
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)
}

// buildDecoration returns a string like "(HEAD -> main)" if the commit is
// the current HEAD, or "" otherwise.
func buildDecoration(commitHash, headHash object.Hash, branchName string) string {
	if commitHash != headHash {
		return ""
	}
	if branchName != "" {
		return "(HEAD -> " + branchName + ")"
	}
	return "(HEAD)"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
