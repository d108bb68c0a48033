package main

import (
	"fmt"
	"os"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var objType string
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [-t type] [-w] <path>",
		Short: "Compute the object hash of a file, optionally storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			obj, err := object.Unmarshal(object.Format(objType), data)
			if err != nil {
				return err
			}

			var sha string
			if write {
				r, err := repo.Open(".")
				if err != nil {
					return err
				}
				defer r.Close()
				sha, err = r.WriteObject(obj)
				if err != nil {
					return err
				}
			} else {
				_, sha = object.HashObject(obj)
			}

			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}

	cmd.Flags().StringVarP(&objType, "type", "t", "blob", "object type to hash as")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object in the repository")
	return cmd
}
