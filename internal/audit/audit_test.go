package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestAppend_CreatesFileAndWritesJSONL(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, ".taskmaster", "default", FileName)
	l := New(p)

	id1, err := l.Append(&Entry{Kind: "llm_call", Model: "test-model", Prompt: "p", Response: "r"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Fatalf("expected uuid id, got %q", id1)
	}
	_, err = l.Append(&Entry{Kind: "label", ParentID: id1, Label: "good", Reason: "ok"})
	if err != nil {
		t.Fatalf("append label: %v", err)
	}

	f, err := os.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	lines := 0
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}

	entries, err := l.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if entries[1].ParentID != id1 || entries[0].Model != "test-model" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestAppend_RequiresKind(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), FileName))
	if _, err := l.Append(&Entry{}); err == nil {
		t.Fatal("expected error for missing kind")
	}
	if _, err := l.Append(nil); err == nil {
		t.Fatal("expected error for nil entry")
	}
}

func TestAppend_Concurrent(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), FileName))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Append(&Entry{Kind: "llm_call", Prompt: "x"}); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := l.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("expected 20 entries, got %d", len(entries))
	}
}

func TestReadAll_MissingFile(t *testing.T) {
	entries, err := New(filepath.Join(t.TempDir(), "none.jsonl")).ReadAll()
	if err != nil || entries != nil {
		t.Fatalf("got %v, %v", entries, err)
	}
}
