package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/pgit/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var hashAlgo string
	var branch string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty pgit repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.dir
			if len(args) > 0 {
				path = args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(a.dir, path)
				}
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			r, err := repo.Init(abs,
				repo.WithHashAlgorithm(hashAlgo),
				repo.WithDefaultBranch(branch),
				repo.WithLogger(a.log),
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty pgit repository in %s\n", r.PgitDir+string(filepath.Separator))
			return nil
		},
	}

	cmd.Flags().StringVar(&hashAlgo, "hash", "sha256", "object hash algorithm (sha256, blake2b-256)")
	cmd.Flags().StringVarP(&branch, "initial-branch", "b", "main", "name of the initial branch")
	return cmd
}
