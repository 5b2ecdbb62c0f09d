package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd(a *app) *cobra.Command {
	var message string
	var sign bool
	var signKey string
	var allowEmpty bool

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Snapshot the work tree and record it on the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := a.openRepo()
			if err != nil {
				return err
			}

			var signer repo.CommitSigner
			if sign || signKey != "" {
				s, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				a.log.WithField("key", keyPath).Debug("signing commit")
				signer = s
			}

			h, err := r.CommitWithSigner(message, a.author(), signer)
			if errors.Is(err, repo.ErrNothingToCommit) && allowEmpty {
				tree, _, serr := r.SnapshotTree()
				if serr != nil {
					return serr
				}
				h, err = r.CommitTree(tree, message, a.author(), signer)
			}
			if err != nil {
				return err
			}

			branch, _ := r.CurrentBranch()
			if branch == "" {
				branch = "detached HEAD"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, h.Short(), firstLine(message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "SSH private key for --sign (default: ~/.ssh/id_ed25519, id_ecdsa, id_rsa)")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "commit even if the tree matches HEAD")
	return cmd
}
