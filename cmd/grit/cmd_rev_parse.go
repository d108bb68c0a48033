package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRevParseCmd() *cobra.Command {
	var wantType string

	cmd := &cobra.Command{
		Use:   "rev-parse <name>",
		Short: "Resolve a name to a full object hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			sha, err := r.FindObject(args[0], object.Format(wantType), true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}

	cmd.Flags().StringVar(&wantType, "grit-type", "", "dereference until an object of this type is reached")

	return cmd
}
