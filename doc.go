// Package treesync keeps a tree-sitter syntax tree in step with each open
// document of an editor session. Documents are opened, changed and closed
// with the LSP text synchronization payloads; every document gets its own
// coordinator that re-parses incrementally, switches grammars when the
// language mode changes and only ever publishes trees for the newest text.
//
// A minimal session:
//
//	svc, err := treesync.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer svc.Close()
//	svc.OnTreeUpdate(func(u coordinator.TreeUpdate) {
//		fmt.Println(u.URI, u.Tree)
//	})
//	svc.Open(&protocol.DidOpenTextDocumentParams{...})
//
// See cmd/treesync for a command line front end.
package treesync
