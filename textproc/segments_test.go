package textproc

import (
	"testing"

	"github.com/hazyhaar/rephrase/pattern"
)

func TestIdentifySegments_Basic(t *testing.T) {
	p := New(testTable(t), Options{})

	in := "Hillary Clinton met Ted Cruz"
	segs := p.IdentifySegments(in)
	if len(segs) != 2 {
		t.Fatalf("IdentifySegments: got %d segments, want 2", len(segs))
	}

	if segs[0].Original != "Hillary Clinton" || segs[0].Converted != "Crooked Hillary" {
		t.Errorf("segment 0: got %+v", segs[0])
	}
	if segs[1].Original != "Ted Cruz" || segs[1].Converted != "Lyin' Ted" {
		t.Errorf("segment 1: got %+v", segs[1])
	}

	// Round-trip: each segment's range must reproduce its original text.
	for i, s := range segs {
		if in[s.Start:s.End] != s.Original {
			t.Errorf("segment %d: range [%d,%d) is %q, want %q",
				i, s.Start, s.End, in[s.Start:s.End], s.Original)
		}
	}
}

func TestIdentifySegments_SortedNonOverlapping(t *testing.T) {
	table, err := pattern.Compile([]pattern.Rule{
		// "crooked hillary clinton" and "hillary" can produce nested
		// candidate spans; the earlier key must claim first.
		{Key: "long", Match: `crooked hillary clinton`, Replacement: "LONG"},
		{Key: "short", Match: `hillary`, Replacement: "SHORT"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p := New(table, Options{})

	inputs := []string{
		"crooked hillary clinton and hillary again",
		"hillary crooked hillary clinton hillary",
		"crooked hillary clinton crooked hillary clinton",
	}
	for _, in := range inputs {
		segs := p.IdentifySegments(in)
		for i := 1; i < len(segs); i++ {
			if segs[i].Start < segs[i-1].End {
				t.Errorf("input %q: segments %d and %d overlap: %+v %+v",
					in, i-1, i, segs[i-1], segs[i])
			}
		}
	}
}

func TestIdentifySegments_FirstClaimWins(t *testing.T) {
	table, err := pattern.Compile([]pattern.Rule{
		{Key: "first", Match: `alpha beta`, Replacement: "FIRST"},
		{Key: "second", Match: `beta gamma`, Replacement: "SECOND"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p := New(table, Options{})

	segs := p.IdentifySegments("alpha beta gamma")
	if len(segs) != 1 {
		t.Fatalf("IdentifySegments: got %d segments, want 1", len(segs))
	}
	if segs[0].Converted != "FIRST" {
		t.Errorf("Converted: got %q, want %q (earlier key claims the range)",
			segs[0].Converted, "FIRST")
	}
}

func TestIdentifySegments_InputNotMutated(t *testing.T) {
	p := New(testTable(t), Options{})

	in := "Hillary spoke"
	_ = p.IdentifySegments(in)
	if in != "Hillary spoke" {
		t.Error("IdentifySegments mutated its input")
	}
}

func TestIdentifySegments_Empty(t *testing.T) {
	p := New(testTable(t), Options{})
	if segs := p.IdentifySegments(""); segs != nil {
		t.Errorf("IdentifySegments(\"\"): got %v, want nil", segs)
	}
}
