package coordinator_test

import (
	"testing"

	"github.com/gossip-lsp/treesync/coordinator"
	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/protocol"
	"github.com/gossip-lsp/treesync/treetest"
)

func TestManager_Lifecycle(t *testing.T) {
	store := document.NewStore()
	existing := store.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI: "file:///existing.json", LanguageID: "json", Version: 1, Text: `[]`,
	}})

	m := coordinator.NewManager(store, newFakeImporter(t), newScriptedParser())
	t.Cleanup(m.Close)
	updates := &treetest.Recorder[coordinator.TreeUpdate]{}
	m.OnTreeUpdate(updates.Record)

	treetest.WaitFor(t, waitTimeout, "tree for the pre-opened document", func() bool {
		return m.Tree(existing.URI()) != nil
	})

	const uri = protocol.DocumentURI("file:///a.json")
	doc := store.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI: uri, LanguageID: "json", Version: 1, Text: `{"a": 1}`,
	}})
	treetest.WaitFor(t, waitTimeout, "tree for a.json", func() bool { return m.Tree(uri) != nil })

	store.Change(&protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: `{"a": 2}`}},
	})
	treetest.WaitFor(t, waitTimeout, "version 2", func() bool { return m.Tree(uri).Version() == 2 })

	store.ChangeLanguage(&protocol.DidChangeLanguageParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		LanguageID:   "jsonc",
	})
	treetest.WaitFor(t, waitTimeout, "jsonc tree", func() bool { return m.Tree(uri).LanguageID() == "jsonc" })

	var sawA bool
	for _, u := range updates.All() {
		if u.URI == uri {
			sawA = true
		}
	}
	if !sawA {
		t.Error("OnTreeUpdate never reported a.json")
	}

	c := m.Coordinator(uri)
	store.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}})
	if m.Coordinator(uri) != nil || m.Tree(uri) != nil {
		t.Error("coordinator still registered after close")
	}
	if c.Document() != nil || doc.ListenerCount() != 0 {
		t.Error("closed document's coordinator was not disposed")
	}
}

func TestManager_ReopenReplacesCoordinator(t *testing.T) {
	store := document.NewStore()
	m := coordinator.NewManager(store, newFakeImporter(t), newScriptedParser())
	t.Cleanup(m.Close)

	open := func(text string) {
		store.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
			URI: "file:///r.json", LanguageID: "json", Version: 1, Text: text,
		}})
	}
	open(`[1]`)
	first := m.Coordinator("file:///r.json")
	open(`[2]`)
	second := m.Coordinator("file:///r.json")

	if first == second {
		t.Fatal("reopen should create a new coordinator")
	}
	if first.Document() != nil {
		t.Error("previous coordinator was not disposed")
	}
	treetest.WaitFor(t, waitTimeout, "tree for reopened document", func() bool {
		return string(m.Tree("file:///r.json").Source()) == `[2]`
	})
}

func TestManager_CloseStopsUpdates(t *testing.T) {
	store := document.NewStore()
	m := coordinator.NewManager(store, newFakeImporter(t), newScriptedParser())
	m.Close()
	m.Close()

	store.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI: "file:///late.json", LanguageID: "json", Version: 1, Text: `{}`,
	}})
	if m.Coordinator("file:///late.json") != nil {
		t.Error("closed manager attached a new document")
	}
}
