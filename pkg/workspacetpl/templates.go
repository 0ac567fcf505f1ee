// Package workspacetpl seeds a fresh workspace with its starter files.
package workspacetpl

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Template is a workspace bootstrap file and its relative destination path.
type Template struct {
	RelativePath string
	Content      string
}

// Embedded names cannot start with a dot; gitignore is renamed on write.
var templateDestinations = map[string]string{
	"README.md": "README.md",
	"gitignore": ".gitignore",
}

//go:embed templates/workspace/*
var workspaceTemplates embed.FS

// Load returns workspace templates used during init.
func Load() ([]Template, error) {
	templates := make([]Template, 0, len(templateDestinations))

	for name, dest := range templateDestinations {
		content, err := readTemplate(name)
		if err != nil {
			return nil, err
		}
		templates = append(templates, Template{RelativePath: dest, Content: content})
	}

	return templates, nil
}

// Scaffold writes the templates into workspace, leaving existing files
// untouched.
func Scaffold(workspace string) error {
	templates, err := Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	for _, tpl := range templates {
		dest := filepath.Join(workspace, filepath.FromSlash(tpl.RelativePath))
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("create template dir for %s: %w", tpl.RelativePath, err)
		}
		if err := os.WriteFile(dest, []byte(tpl.Content), 0644); err != nil {
			return fmt.Errorf("write template %s: %w", tpl.RelativePath, err)
		}
	}
	return nil
}

func readTemplate(name string) (string, error) {
	content, err := workspaceTemplates.ReadFile(path.Join("templates", "workspace", name))
	if err != nil {
		return "", fmt.Errorf("read workspace template %s: %w", name, err)
	}
	return string(content), nil
}
