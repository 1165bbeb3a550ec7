package textproc

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/hazyhaar/rephrase/pattern"
)

func testTable(t *testing.T) *pattern.Table {
	t.Helper()
	table, err := pattern.Compile([]pattern.Rule{
		{Key: "hillary", Match: `hillary(?: (?:rodham )?clinton)?`, Replacement: "Crooked Hillary"},
		{Key: "cruz", Match: `ted cruz`, Replacement: "Lyin' Ted"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return table
}

func TestProcess_ScenarioHillary(t *testing.T) {
	p := New(testTable(t), Options{})

	got := p.Process("Hillary Clinton gave a speech")
	want := "Crooked Hillary gave a speech"
	if got != want {
		t.Errorf("Process: got %q, want %q", got, want)
	}
}

func TestProcess_NoMatchUnchanged(t *testing.T) {
	p := New(testTable(t), Options{})

	in := "nothing to see here"
	if got := p.Process(in); got != in {
		t.Errorf("Process: got %q, want input unchanged", got)
	}
}

func TestProcess_Cached(t *testing.T) {
	p := New(testTable(t), Options{})

	in := "Ted Cruz spoke"
	first := p.Process(in)
	second := p.Process(in)
	if first != second {
		t.Errorf("Process: cached result %q differs from first %q", second, first)
	}
	if p.CacheLen() != 1 {
		t.Errorf("CacheLen: got %d, want 1", p.CacheLen())
	}
}

func TestProcess_CacheEviction(t *testing.T) {
	p := New(testTable(t), Options{CacheLimit: 8})

	for i := 0; i < 20; i++ {
		p.Process(fmt.Sprintf("input number %d", i))
	}
	if p.CacheLen() > 8 {
		t.Errorf("CacheLen: got %d, want <= 8", p.CacheLen())
	}
	if p.CacheLen() == 0 {
		t.Error("CacheLen: cache fully drained, eviction too aggressive")
	}
}

func TestProcess_PanickingPatternSkipped(t *testing.T) {
	table, err := pattern.NewTable([]pattern.Entry{
		{
			Key:     "bad",
			Pattern: regexp.MustCompile(`(?i)\bboom\b`),
			Transform: func(string) string {
				panic("transform failure")
			},
		},
		{
			Key:         "cruz",
			Pattern:     regexp.MustCompile(`(?i)\bted cruz\b`),
			Replacement: "Lyin' Ted",
		},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	p := New(table, Options{})

	got := p.Process("boom then Ted Cruz")
	want := "boom then Lyin' Ted"
	if got != want {
		t.Errorf("Process: got %q, want %q (bad pattern skipped, rest applied)", got, want)
	}
}

func TestProcess_Empty(t *testing.T) {
	p := New(testTable(t), Options{})
	if got := p.Process(""); got != "" {
		t.Errorf("Process(\"\"): got %q, want empty", got)
	}
}
