package pattern

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompile_OrderPreserved(t *testing.T) {
	table, err := Compile([]Rule{
		{Key: "b", Match: "bravo", Replacement: "B"},
		{Key: "a", Match: "alpha", Replacement: "A"},
		{Key: "c", Match: "charlie", Replacement: "C"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	keys := table.Keys()
	want := []string{"b", "a", "c"}
	if len(keys) != len(want) {
		t.Fatalf("Keys: got %d, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d]: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestCompile_CaseInsensitiveWordBoundary(t *testing.T) {
	table, err := Compile([]Rule{
		{Key: "hillary", Match: "hillary", Replacement: "Crooked Hillary"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	e, ok := table.Get("hillary")
	if !ok {
		t.Fatal("Get(hillary): not found")
	}

	if !e.Pattern.MatchString("HILLARY spoke") {
		t.Error("pattern should match uppercase")
	}
	if e.Pattern.MatchString("hillarys") {
		t.Error("pattern should not match inside a longer word")
	}
}

func TestCompile_MalformedRule(t *testing.T) {
	_, err := Compile([]Rule{{Key: "bad", Match: "([unclosed", Replacement: "x"}})
	if err == nil {
		t.Fatal("Compile: want error for malformed expression")
	}
}

func TestCompile_DuplicateKey(t *testing.T) {
	_, err := Compile([]Rule{
		{Key: "x", Match: "one", Replacement: "1"},
		{Key: "x", Match: "two", Replacement: "2"},
	})
	if err == nil {
		t.Fatal("Compile: want error for duplicate key")
	}
}

func TestEntry_MayMatch(t *testing.T) {
	table, err := Compile([]Rule{
		{Key: "media", Match: "mainstream media", Replacement: "the Fake News Media"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	e, _ := table.Get("media")

	if e.MayMatch("nothing relevant here") {
		t.Error("MayMatch: got true for text without keyword")
	}
	if !e.MayMatch("the mainstream media reported") {
		t.Error("MayMatch: got false for text containing keyword")
	}
}

func TestDefault_SameTableEveryCall(t *testing.T) {
	if Default() != Default() {
		t.Error("Default: returned different tables across calls")
	}
	if Default().Len() == 0 {
		t.Error("Default: table is empty")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `version: 1
rules:
  - key: hillary
    match: hillary
    replacement: Crooked Hillary
  - key: cruz
    match: ted cruz
    replacement: Lyin' Ted
    keywords: [cruz]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", table.Len())
	}
	e, ok := table.Get("cruz")
	if !ok {
		t.Fatal("Get(cruz): not found")
	}
	if got := e.Convert("Ted Cruz"); got != "Lyin' Ted" {
		t.Errorf("Convert: got %q, want %q", got, "Lyin' Ted")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nrules: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile: want error for empty rule file")
	}
}
