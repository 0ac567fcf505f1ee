package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestFS(t *testing.T) *FilesystemTool {
	t.Helper()
	fs, err := NewFilesystemTool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemTool: %v", err)
	}
	return fs
}

func TestFilesystemTool_WriteAndRead(t *testing.T) {
	fs := newTestFS(t)

	result := fs.WriteFile("src/hello.txt", "Hi")
	if !result.OK() {
		t.Fatalf("Expected success, got: %s", result.Error)
	}
	if result.Size != 2 {
		t.Errorf("Expected size 2, got %d", result.Size)
	}

	read := fs.ReadFile("src/hello.txt")
	if !read.OK() {
		t.Fatalf("Expected success, got: %s", read.Error)
	}
	if read.Content != "Hi" {
		t.Errorf("Expected content 'Hi', got %q", read.Content)
	}
}

func TestFilesystemTool_WriteOverwrites(t *testing.T) {
	fs := newTestFS(t)

	fs.WriteFile("note.txt", "first")
	fs.WriteFile("note.txt", "second")

	read := fs.ReadFile("note.txt")
	if read.Content != "second" {
		t.Errorf("Expected overwrite semantics, got %q", read.Content)
	}
}

func TestFilesystemTool_RejectsEscape(t *testing.T) {
	fs := newTestFS(t)

	result := fs.WriteFile("../escape.txt", "nope")
	if result.OK() {
		t.Fatal("Expected error for path escape")
	}
	if !result.Violation {
		t.Error("Expected Violation flag on escape attempt")
	}

	if _, err := os.Stat(filepath.Join(fs.Root(), "..", "escape.txt")); err == nil {
		t.Error("File was written outside the workspace")
	}
}

func TestFilesystemTool_CreateDirectoryIdempotent(t *testing.T) {
	fs := newTestFS(t)

	if r := fs.CreateDirectory("app/static"); !r.OK() {
		t.Fatalf("Expected success, got: %s", r.Error)
	}
	if r := fs.CreateDirectory("app/static"); !r.OK() {
		t.Errorf("Expected idempotent success, got: %s", r.Error)
	}
}

func TestFilesystemTool_ListDirectory(t *testing.T) {
	fs := newTestFS(t)

	fs.WriteFile("app/main.js", "console.log(1)")
	fs.CreateDirectory("app/static")

	result := fs.ListDirectory("app")
	if !result.OK() {
		t.Fatalf("Expected success, got: %s", result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Items))
	}

	types := map[string]string{}
	for _, item := range result.Items {
		types[item.Name] = item.Type
	}
	if types["main.js"] != "file" {
		t.Errorf("Expected main.js to be a file, got %q", types["main.js"])
	}
	if types["static"] != "directory" {
		t.Errorf("Expected static to be a directory, got %q", types["static"])
	}
}

func TestFilesystemTool_DeleteFile(t *testing.T) {
	fs := newTestFS(t)

	fs.WriteFile("old.txt", "bye")
	if r := fs.DeleteFile("old.txt"); !r.OK() {
		t.Fatalf("Expected success, got: %s", r.Error)
	}
	if fs.FileExists("old.txt") {
		t.Error("Expected file to be gone")
	}
}

func TestFilesystemTool_DeleteProtectedFileRefused(t *testing.T) {
	fs := newTestFS(t)

	fs.WriteFile("app/main.py", "print('hi')")
	result := fs.DeleteFile("app/main.py")
	if result.OK() {
		t.Fatal("Expected protected file delete to be refused")
	}
	if !result.Violation {
		t.Error("Expected Violation flag")
	}
	if !fs.FileExists("app/main.py") {
		t.Error("Protected file was deleted")
	}
}

func TestFilesystemTool_FileExists(t *testing.T) {
	fs := newTestFS(t)

	if fs.FileExists("missing.txt") {
		t.Error("Expected missing file to report false")
	}
	if fs.FileExists("../outside") {
		t.Error("Expected invalid path to report false")
	}

	fs.WriteFile("present.txt", "x")
	if !fs.FileExists("present.txt") {
		t.Error("Expected present file to report true")
	}
}

func TestFilesystemTool_ReadMissingFile(t *testing.T) {
	fs := newTestFS(t)

	result := fs.ReadFile("nope.txt")
	if result.OK() {
		t.Fatal("Expected error for missing file")
	}
	if result.Violation {
		t.Error("Missing file is not a sandbox violation")
	}
}
