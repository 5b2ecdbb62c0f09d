package main

import (
	"fmt"
	"os"

	"github.com/google/renameio"
	"github.com/odvcencio/pgit/pkg/bundle"
	"github.com/odvcencio/pgit/pkg/object"
	"github.com/spf13/cobra"
)

func newBundleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Export or import object closures as a single file",
	}
	cmd.AddCommand(newBundleExportCmd(a))
	cmd.AddCommand(newBundleImportCmd(a))
	return cmd
}

func newBundleExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file> [revision...]",
		Short: "Write everything reachable from the revisions (default HEAD)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			revs := args[1:]
			if len(revs) == 0 {
				revs = []string{"HEAD"}
			}
			roots := make([]object.Hash, 0, len(revs))
			for _, rev := range revs {
				h, err := r.ResolveRevision(rev)
				if err != nil {
					return err
				}
				roots = append(roots, h)
			}

			pending, err := renameio.TempFile("", args[0])
			if err != nil {
				return fmt.Errorf("bundle export: %w", err)
			}
			defer pending.Cleanup()

			n, err := bundle.Export(pending, r.Store, roots)
			if err != nil {
				return err
			}
			if err := pending.CloseAtomicallyReplace(); err != nil {
				return fmt.Errorf("bundle export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d objects from %d root(s) to %s\n", n, len(roots), args[0])
			return nil
		},
	}
}

func newBundleImportCmd(a *app) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add the objects of a bundle to this repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("bundle import: %w", err)
			}
			defer f.Close()

			sum, err := bundle.Import(f, r.Store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d objects (%d new, %d already present)\n", sum.Objects, sum.Written, sum.Existing)
			for _, root := range sum.Roots {
				fmt.Fprintf(out, "root %s\n", root)
			}

			if branch != "" {
				if err := r.CreateBranch(branch, sum.Roots[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Created branch %s at %s\n", branch, sum.Roots[0].Short())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "create this branch at the first root")
	return cmd
}
