package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [commit]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			start := "HEAD"
			if len(args) == 1 {
				start = args[0]
			}
			sha, err := r.FindObject(start, object.FormatCommit, true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for count := 0; limit <= 0 || count < limit; count++ {
				obj, err := r.ReadObject(sha)
				if err != nil {
					return err
				}
				commit, ok := obj.(*object.Commit)
				if !ok {
					return fmt.Errorf("object %s is a %s, not a commit", sha, obj.Format())
				}

				if oneline {
					fmt.Fprintf(out, "%s %s\n", sha[:8], firstLine(commit.KVLM.Message()))
				} else {
					fmt.Fprintf(out, "commit %s\n", sha)
					if author, ok := commit.KVLM.First("author"); ok {
						fmt.Fprintf(out, "Author: %s\n", author)
					}
					fmt.Fprintln(out)
					fmt.Fprintf(out, "    %s\n", firstLine(commit.KVLM.Message()))
					fmt.Fprintln(out)
				}

				parents := commit.Parents()
				if len(parents) == 0 {
					break
				}
				sha = parents[0]
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show")

	return cmd
}

func firstLine(message []byte) string {
	for i, b := range message {
		if b == '\n' {
			return string(message[:i])
		}
	}
	return string(message)
}
