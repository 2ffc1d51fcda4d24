package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gossip-lsp/treesync/coordinator"
	"github.com/gossip-lsp/treesync/treesitter"
)

func newParseCmd() *cobra.Command {
	var (
		languageID string
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file once and print its syntax tree",
		Long: `Parse a file once and print the tree as an S-expression.

The language is guessed from the file name unless --language is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(configPath)
			if err != nil {
				return err
			}
			defer svc.Close()

			trees := make(chan *treesitter.Snapshot, 1)
			failures := make(chan error, 1)
			svc.OnTreeUpdate(func(u coordinator.TreeUpdate) {
				select {
				case trees <- u.Tree:
				default:
				}
			})
			svc.OnFailure(func(f coordinator.DocumentFailure) {
				select {
				case failures <- f.Err:
				default:
				}
			})

			if _, err := openFile(svc, args[0], languageID); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			select {
			case snap := <-trees:
				fmt.Fprintln(cmd.OutOrStdout(), snap.String())
				return nil
			case err := <-failures:
				return fmt.Errorf("parse %s: %w", args[0], err)
			case <-ctx.Done():
				return fmt.Errorf("parse %s: %w", args[0], ctx.Err())
			}
		},
	}

	cmd.Flags().StringVarP(&languageID, "language", "l", "", "language id (default: guessed from the file name)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "settings file (TOML)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")

	return cmd
}
