package treetest

import (
	"context"
	"testing"
	"time"

	"github.com/gossip-lsp/treesync/grammar"
)

func TestParseString(t *testing.T) {
	lang, err := grammar.NewImporter(grammar.Builtin()).Import(context.Background(), "json")
	if err != nil {
		t.Fatal(err)
	}
	tree := ParseString(t, lang.Grammar, `{"a": [1, 2]}`)
	AssertNoErrors(t, tree)
	AssertNodeKind(t, tree.RootNode(), "document")
}

func TestRecorderAndWaitFor(t *testing.T) {
	var r Recorder[int]
	go func() {
		for i := range 3 {
			r.Record(i)
		}
	}()
	WaitFor(t, time.Second, "three values", func() bool { return r.Len() == 3 })

	last, ok := r.Last()
	if !ok || last != 2 {
		t.Errorf("Last() = %d, %v; want 2, true", last, ok)
	}
}
