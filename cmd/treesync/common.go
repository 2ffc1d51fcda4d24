package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gossip-lsp/treesync"
	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/protocol"
)

// fileURI returns a file:// URI for path.
func fileURI(path string) (protocol.DocumentURI, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return protocol.DocumentURI("file://" + filepath.ToSlash(abs)), nil
}

func newService(configPath string) (*treesync.Service, error) {
	var opts []treesync.Option
	if configPath != "" {
		opts = append(opts, treesync.WithSettingsFile(configPath))
	}
	return treesync.New(opts...)
}

// openFile reads path and opens it in svc. languageID is guessed from the
// path when empty.
func openFile(svc *treesync.Service, path, languageID string) (*document.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if languageID == "" {
		id, ok := svc.LanguageForPath(path)
		if !ok {
			return nil, fmt.Errorf("cannot guess the language of %s, use --language", path)
		}
		languageID = id
	}
	uri, err := fileURI(path)
	if err != nil {
		return nil, err
	}
	return svc.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI:        uri,
		LanguageID: languageID,
		Version:    1,
		Text:       string(src),
	}}), nil
}
