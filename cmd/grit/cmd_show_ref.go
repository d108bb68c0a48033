package main

import (
	"fmt"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowRefCmd() *cobra.Command {
	var headsOnly bool
	var tagsOnly bool
	var showHead bool
	var deref bool

	cmd := &cobra.Command{
		Use:   "show-ref [pattern...]",
		Short: "List references with their resolved object names",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()

			if showHead {
				if sha, err := r.ResolveRef("HEAD"); err == nil {
					fmt.Fprintf(out, "%s HEAD\n", sha)
				}
			}

			prefix := "refs"
			switch {
			case headsOnly && !tagsOnly:
				prefix = "refs/heads"
			case tagsOnly && !headsOnly:
				prefix = "refs/tags"
			}

			refs, err := r.ListRefs(prefix)
			if err != nil {
				return err
			}
			packed, err := r.ParsePackedRefs()
			if err != nil {
				return err
			}

			for _, ref := range refs {
				if !matchRefPatterns(ref.Name, args) {
					continue
				}
				fmt.Fprintf(out, "%s %s\n", ref.Sha, ref.Name)
				if !deref {
					continue
				}
				if target, err := peelRef(r, packed, ref); err == nil && target != "" {
					fmt.Fprintf(out, "%s %s^{}\n", target, ref.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&headsOnly, "heads", false, "limit output to refs/heads")
	cmd.Flags().BoolVar(&tagsOnly, "tags", false, "limit output to refs/tags")
	cmd.Flags().BoolVar(&showHead, "head", false, "include the HEAD reference")
	cmd.Flags().BoolVarP(&deref, "dereference", "d", false, "also show peeled tag targets")

	return cmd
}

// matchRefPatterns reports whether the ref name matches any of the given
// patterns. A pattern matches when it equals a trailing path-component
// suffix of the name, so "v1.0" matches "refs/tags/v1.0".
func matchRefPatterns(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if name == p || strings.HasSuffix(name, "/"+p) {
			return true
		}
	}
	return false
}

// peelRef returns the object an annotated tag ref ultimately points at,
// preferring the peeled entry recorded in packed-refs over reading the
// tag object itself.
func peelRef(r *repo.Repo, packed *repo.PackedRefs, ref repo.Ref) (string, error) {
	if target, ok := packed.Peeled[ref.Name]; ok {
		return target, nil
	}
	obj, err := r.ReadObject(ref.Sha)
	if err != nil {
		return "", err
	}
	tag, ok := obj.(*object.Tag)
	if !ok {
		return "", nil
	}
	target, ok := tag.Target()
	if !ok {
		return "", fmt.Errorf("tag %s has no object field", ref.Sha)
	}
	return target, nil
}
