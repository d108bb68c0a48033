package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree <tree-ish>",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			sha, err := r.FindObject(args[0], object.FormatTree, true)
			if err != nil {
				return err
			}
			return printTree(cmd, r, sha, "", recursive)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subtrees")

	return cmd
}

func printTree(cmd *cobra.Command, r *repo.Repo, sha, prefix string, recursive bool) error {
	obj, err := r.ReadObject(sha)
	if err != nil {
		return err
	}
	tree, ok := obj.(*object.Tree)
	if !ok {
		return fmt.Errorf("object %s is a %s, not a tree", sha, obj.Format())
	}

	out := cmd.OutOrStdout()
	for _, leaf := range tree.Leaves {
		typ := leafType(leaf.Mode)
		name := path.Join(prefix, string(leaf.Path))
		if recursive && typ == "tree" {
			if err := printTree(cmd, r, leaf.Sha, name, true); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%06s %s %s\t%s\n", strings.TrimLeft(leaf.Mode, " "), typ, leaf.Sha, name)
	}
	return nil
}

// leafType maps a tree entry mode to the object type the entry names.
// Directories are 040000, gitlinks are 160000, everything else is a blob.
func leafType(mode string) string {
	switch strings.TrimLeft(mode, " 0") {
	case "40000":
		return "tree"
	case "160000":
		return "commit"
	default:
		return "blob"
	}
}
