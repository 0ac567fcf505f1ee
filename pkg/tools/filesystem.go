package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/04arvind/newla/pkg/safety"
)

// DirEntry is one item in a directory listing.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"` // "file" or "directory"
	Size int64  `json:"size,omitempty"`
}

// FSResult is the uniform result of a filesystem operation. Operations never
// panic past this boundary; failures are reported in Status/Error.
type FSResult struct {
	Status    string     `json:"status"` // "success" or "error"
	Action    string     `json:"action"`
	Path      string     `json:"path"`
	Size      int        `json:"size,omitempty"`
	Content   string     `json:"content,omitempty"`
	Items     []DirEntry `json:"items,omitempty"`
	Error     string     `json:"error,omitempty"`
	Violation bool       `json:"violation,omitempty"`
}

func (r FSResult) OK() bool { return r.Status == "success" }

// FilesystemTool performs file operations confined to a workspace root.
// Every call is pre-checked by the safety guard.
type FilesystemTool struct {
	root string
}

func NewFilesystemTool(root string) (*FilesystemTool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &FilesystemTool{root: abs}, nil
}

func (t *FilesystemTool) Root() string { return t.root }

func (t *FilesystemTool) errResult(action, path string, err error) FSResult {
	return FSResult{
		Status:    "error",
		Action:    action,
		Path:      path,
		Error:     err.Error(),
		Violation: safety.IsViolation(err),
	}
}

// WriteFile creates or overwrites a file, creating parent directories as
// needed.
func (t *FilesystemTool) WriteFile(path, content string) FSResult {
	const action = "write_file"

	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return t.errResult(action, path, err)
	}
	if err := safety.ValidateFileOperation(path, "write"); err != nil {
		return t.errResult(action, path, err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return t.errResult(action, path, fmt.Errorf("create parent directory: %w", err))
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return t.errResult(action, path, fmt.Errorf("write file: %w", err))
	}

	return FSResult{
		Status: "success",
		Action: action,
		Path:   t.relPath(full),
		Size:   len(content),
	}
}

func (t *FilesystemTool) ReadFile(path string) FSResult {
	const action = "read_file"

	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return t.errResult(action, path, err)
	}
	if err := safety.ValidateFileOperation(path, "read"); err != nil {
		return t.errResult(action, path, err)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return t.errResult(action, path, fmt.Errorf("read file: %w", err))
	}

	return FSResult{
		Status:  "success",
		Action:  action,
		Path:    t.relPath(full),
		Content: string(data),
	}
}

// CreateDirectory is idempotent: an existing directory is a success.
func (t *FilesystemTool) CreateDirectory(path string) FSResult {
	const action = "create_directory"

	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return t.errResult(action, path, err)
	}

	if err := os.MkdirAll(full, 0755); err != nil {
		return t.errResult(action, path, fmt.Errorf("create directory: %w", err))
	}

	return FSResult{
		Status: "success",
		Action: action,
		Path:   t.relPath(full),
	}
}

func (t *FilesystemTool) ListDirectory(path string) FSResult {
	const action = "list_directory"

	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return t.errResult(action, path, err)
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return t.errResult(action, path, fmt.Errorf("read directory: %w", err))
	}

	items := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		item := DirEntry{Name: entry.Name(), Type: "file"}
		if entry.IsDir() {
			item.Type = "directory"
		} else if info, err := entry.Info(); err == nil {
			item.Size = info.Size()
		}
		items = append(items, item)
	}

	return FSResult{
		Status: "success",
		Action: action,
		Path:   t.relPath(full),
		Items:  items,
	}
}

func (t *FilesystemTool) DeleteFile(path string) FSResult {
	const action = "delete_file"

	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return t.errResult(action, path, err)
	}
	if err := safety.ValidateFileOperation(path, "delete"); err != nil {
		return t.errResult(action, path, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return t.errResult(action, path, fmt.Errorf("stat file: %w", err))
	}
	if info.IsDir() {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		return t.errResult(action, path, fmt.Errorf("delete: %w", err))
	}

	return FSResult{
		Status: "success",
		Action: action,
		Path:   t.relPath(full),
	}
}

// FileExists reports whether path exists inside the workspace. Paths that
// fail validation are treated as absent.
func (t *FilesystemTool) FileExists(path string) bool {
	full, err := safety.ValidatePath(path, t.root)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (t *FilesystemTool) relPath(full string) string {
	rel, err := filepath.Rel(t.root, full)
	if err != nil {
		return full
	}
	return rel
}
