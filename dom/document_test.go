package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func TestGeneration_AdvancesOnEveryWrite(t *testing.T) {
	doc, err := ParseString(`<html><body><p>hello</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Generation() != 0 {
		t.Fatalf("fresh document generation: got %d, want 0", doc.Generation())
	}

	text := doc.Body().FirstChild.FirstChild
	if err := doc.SetText(text, "changed"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetAttr(doc.Body(), "class", "x"); err != nil {
		t.Fatal(err)
	}
	if err := doc.AppendChild(doc.Body(), &html.Node{Type: html.TextNode, Data: "tail"}); err != nil {
		t.Fatal(err)
	}

	if got := doc.Generation(); got != 3 {
		t.Errorf("generation after three writes: got %d, want 3", got)
	}
}

func TestGeneration_AdvancesWhileDetached(t *testing.T) {
	doc, err := ParseString(`<html><body><p>hello</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}

	var records int
	doc.Attach(func(Record) { records++ })
	doc.Detach()

	// A detached write reaches no observer but still moves the generation:
	// hosts syncing the tree elsewhere must see suppressed writes too.
	text := doc.Body().FirstChild.FirstChild
	if err := doc.SetText(text, "quiet edit"); err != nil {
		t.Fatal(err)
	}

	if records != 0 {
		t.Errorf("detached write delivered %d records, want 0", records)
	}
	if got := doc.Generation(); got != 1 {
		t.Errorf("generation after detached write: got %d, want 1", got)
	}
}
