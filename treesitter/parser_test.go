package treesitter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/grammar"
	"github.com/gossip-lsp/treesync/protocol"
	"github.com/gossip-lsp/treesync/treesitter"
)

func importLang(t testing.TB, id string) *grammar.Language {
	t.Helper()
	lang, err := grammar.NewImporter(grammar.Builtin()).Import(context.Background(), id)
	if err != nil {
		t.Fatalf("importing %s: %v", id, err)
	}
	return lang
}

func parse(t testing.TB, p treesitter.Parser, req treesitter.Request) *treesitter.Snapshot {
	t.Helper()
	res, err := p.Parse(context.Background(), req)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	snap := treesitter.NewSnapshot(res.Tree, req.Source, req.Language, 1, 1, res.Diff)
	t.Cleanup(snap.Close)
	return snap
}

func TestParser_FullParse(t *testing.T) {
	p := treesitter.NewTreeSitterParser()
	lang := importLang(t, "json")

	snap := parse(t, p, treesitter.Request{Language: lang, Source: []byte(`{"key": "value"}`)})

	if snap.RootNode().Kind() != "document" {
		t.Errorf("root kind = %q, want document", snap.RootNode().Kind())
	}
	if !snap.Diff.IsFullReparse {
		t.Error("expected IsFullReparse on a parse without previous tree")
	}
	if !snap.Diff.AffectsKind("pair") {
		t.Error("expected pair among affected kinds")
	}
	if parses, inc := p.Stats(); parses != 1 || inc != 0 {
		t.Errorf("Stats() = %d, %d; want 1, 0", parses, inc)
	}
}

func TestParser_IncrementalWithEdits(t *testing.T) {
	p := treesitter.NewTreeSitterParser()
	lang := importLang(t, "json")

	oldSrc := `{"a": 1}`
	first := parse(t, p, treesitter.Request{Language: lang, Source: []byte(oldSrc)})

	newSrc, edits := document.ApplyChanges(oldSrc, []protocol.TextDocumentContentChangeEvent{{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 0, Character: 7},
			End:   protocol.Position{Line: 0, Character: 7},
		},
		Text: `, "b": 2`,
	}})

	res, err := p.Parse(context.Background(), treesitter.Request{
		Language: lang,
		Source:   []byte(newSrc),
		Previous: first.Clone(),
		Edits:    edits,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Tree.Close()

	if !res.Incremental {
		t.Error("expected an incremental parse")
	}
	if res.Diff.IsFullReparse {
		t.Error("IsFullReparse should be false for an incremental parse")
	}
	if len(res.Diff.ChangedRanges) == 0 {
		t.Error("expected changed ranges after a structural edit")
	}
	if res.Tree.RootNode().HasError() {
		t.Errorf("unexpected error nodes: %s", res.Tree.RootNode().ToSexp())
	}
	// The original snapshot is untouched by edits applied to its clone.
	if first.Closed() || first.RootNode().EndByte() != uint(len(oldSrc)) {
		t.Error("previous snapshot was modified by the incremental parse")
	}
}

func TestParser_IgnoresPreviousFromOtherLanguage(t *testing.T) {
	p := treesitter.NewTreeSitterParser()
	jsonSnap := parse(t, p, treesitter.Request{Language: importLang(t, "json"), Source: []byte(`[1]`)})

	res, err := p.Parse(context.Background(), treesitter.Request{
		Language: importLang(t, "yaml"),
		Source:   []byte("- 1\n"),
		Previous: jsonSnap.Clone(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Tree.Close()

	if res.Incremental || !res.Diff.IsFullReparse {
		t.Error("a tree from another language must not be reused")
	}
	if res.Tree.RootNode().Kind() != "stream" {
		t.Errorf("root kind = %q, want yaml stream", res.Tree.RootNode().Kind())
	}
}

func TestParser_NoGrammar(t *testing.T) {
	p := treesitter.NewTreeSitterParser()
	_, err := p.Parse(context.Background(), treesitter.Request{Language: &grammar.Language{ID: "none"}})
	if !errors.Is(err, treesitter.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParser_CancelledContext(t *testing.T) {
	p := treesitter.NewTreeSitterParser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Parse(ctx, treesitter.Request{Language: importLang(t, "json"), Source: []byte(`{}`)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParser_Languages(t *testing.T) {
	tests := []struct {
		lang, src, root string
	}{
		{"go", "package main\n\nfunc main() {}\n", "source_file"},
		{"python", "def f():\n    return 1\n", "module"},
		{"json", `{"a": [1, 2]}`, "document"},
		{"yaml", "a: 1\n", "stream"},
	}
	p := treesitter.NewTreeSitterParser()
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			snap := parse(t, p, treesitter.Request{Language: importLang(t, tt.lang), Source: []byte(tt.src)})
			if got := snap.RootNode().Kind(); got != tt.root {
				t.Errorf("root kind = %q, want %q", got, tt.root)
			}
			if snap.RootNode().HasError() {
				t.Errorf("unexpected error nodes: %s", snap)
			}
		})
	}
}

func TestTreeSitterParser_Close(t *testing.T) {
	p := treesitter.NewTreeSitterParser(treesitter.WithPoolSize(1))
	lang := importLang(t, "json")
	parse(t, p, treesitter.Request{Language: lang, Source: []byte(`{}`)})

	p.Close()
	p.Close()

	_, err := p.Parse(t.Context(), treesitter.Request{Language: lang, Source: []byte(`[]`)})
	if !errors.Is(err, treesitter.ErrParse) {
		t.Errorf("Parse after Close: err = %v, want ErrParse", err)
	}
}
