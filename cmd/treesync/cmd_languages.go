package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gossip-lsp/treesync/grammar"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the builtin grammars and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := grammar.Builtin()
			ids := r.IDs()
			sort.Strings(ids)

			aliases := make(map[string][]string)
			for alias, target := range r.Aliases() {
				aliases[target] = append(aliases[target], alias)
			}
			for _, id := range ids {
				sort.Strings(aliases[id])
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %v\n", id, aliases[id])
			}
			return nil
		},
	}
}
