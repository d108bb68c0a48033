package main

import (
	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat-file <type> <object>",
		Short: "Print the payload of a repository object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			sha, err := r.FindObject(args[1], object.Format(args[0]), true)
			if err != nil {
				return err
			}
			obj, err := r.ReadObject(sha)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(obj.Serialize())
			return err
		},
	}
}
