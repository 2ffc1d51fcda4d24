package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/gossip-lsp/treesync/config"
	"github.com/gossip-lsp/treesync/coordinator"
	"github.com/gossip-lsp/treesync/protocol"
	"github.com/gossip-lsp/treesync/treesitter"
)

func newWatchCmd() *cobra.Command {
	var (
		languageID string
		configPath string
		delay      time.Duration
		showTree   bool
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-parse a file every time it changes",
		Long: `Open a file as a live document and re-parse it whenever it is saved.

Every published tree is reported with its generation, version, language
and the ranges that changed. Rapid saves are coalesced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			svc, err := newService(configPath)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			svc.OnTreeUpdate(func(u coordinator.TreeUpdate) {
				printUpdate(out, u.Tree, showTree)
			})
			svc.OnFailure(func(f coordinator.DocumentFailure) {
				fmt.Fprintf(cmd.ErrOrStderr(), "generation %d (v%d, %s): %v\n", f.Generation, f.Version, f.LanguageID, f.Err)
			})

			doc, err := openFile(svc, path, languageID)
			if err != nil {
				return err
			}

			w, err := config.NewWatcher(path, func() {
				src, err := os.ReadFile(path)
				if err != nil {
					svc.Logger().Warn("read failed", "path", path, "error", err)
					return
				}
				if string(src) == doc.Text() {
					return
				}
				svc.Change(&protocol.DidChangeTextDocumentParams{
					TextDocument: protocol.VersionedTextDocumentIdentifier{
						TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc.URI()},
						Version:                doc.Version() + 1,
					},
					ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: string(src)}},
				})
			}, config.WithDebounce(delay), config.WithWatcherLogger(svc.Logger()))
			if err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&languageID, "language", "l", "", "language id (default: guessed from the file name)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "settings file (TOML), reloaded on change")
	cmd.Flags().DurationVar(&delay, "debounce", 150*time.Millisecond, "coalesce saves within this window")
	cmd.Flags().BoolVar(&showTree, "tree", false, "print the full tree with every update")

	return cmd
}

func printUpdate(w io.Writer, snap *treesitter.Snapshot, showTree bool) {
	kind := "incremental"
	if snap.Diff == nil || snap.Diff.IsFullReparse {
		kind = "full"
	}
	fmt.Fprintf(w, "generation %d  v%d  %s  %s\n", snap.Generation(), snap.Version(), snap.LanguageID(), kind)
	if snap.Diff != nil && !snap.Diff.IsFullReparse {
		for _, r := range snap.Diff.ChangedRanges {
			fmt.Fprintf(w, "  changed %d:%d-%d:%d\n",
				r.StartPoint.Row+1, r.StartPoint.Column+1, r.EndPoint.Row+1, r.EndPoint.Column+1)
		}
	}
	if showTree {
		fmt.Fprintln(w, snap.String())
	}
}
