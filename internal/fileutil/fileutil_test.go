package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "episode.mp3")
	dst := filepath.Join(dir, "published.mp3")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	size, err := CopyVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyVerified(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestConcat(t *testing.T) {
	dir := t.TempDir()
	var srcs []string
	for i, part := range []string{"one-", "two-", "three"} {
		path := filepath.Join(dir, "seg_0"+string(rune('0'+i))+".mp3")
		if err := os.WriteFile(path, []byte(part), 0o644); err != nil {
			t.Fatal(err)
		}
		srcs = append(srcs, path)
	}

	dst := filepath.Join(dir, "episode.mp3")
	n, err := Concat(dst, srcs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "one-two-three" || n != int64(len(got)) {
		t.Fatalf("unexpected output %q (n=%d)", got, n)
	}
}

func TestConcat_MissingPartLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "episode.mp3")
	if _, err := Concat(dst, []string{filepath.Join(dir, "missing.mp3")}); err == nil {
		t.Fatal("expected error for missing part")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}
