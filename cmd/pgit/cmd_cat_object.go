package main

import (
	"fmt"

	"github.com/odvcencio/pgit/pkg/object"
	"github.com/spf13/cobra"
)

func newCatObjectCmd(a *app) *cobra.Command {
	var typeOnly bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "cat-object <revision|id>",
		Short: "Print the type or content of a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRepo()
			if err != nil {
				return err
			}
			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				data, err := r.Store.ReadRaw(h)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			obj, err := r.Store.ReadObject(h)
			if err != nil {
				return err
			}
			if typeOnly {
				fmt.Fprintln(out, obj.Type())
				return nil
			}
			switch o := obj.(type) {
			case *object.Blob:
				_, err = out.Write(object.MarshalBlob(o))
			case *object.Tree:
				_, err = out.Write(object.MarshalTree(o))
			case *object.Commit:
				_, err = out.Write(object.MarshalCommit(o))
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&typeOnly, "type", "t", false, "print only the object type")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored envelope bytes")
	return cmd
}
