package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Project is a single Cargo package as reported by `cargo metadata`.
type Project struct {
	// ID is the opaque package id used to match build messages.
	ID string `json:"id"`
	// Name is the package name.
	Name string `json:"name"`
	// Version is the semantic version string.
	Version string `json:"version"`
	// ManifestPath is the absolute path to the package Cargo.toml.
	ManifestPath string `json:"manifest_path"`
	// Metadata holds the raw [package.metadata] tables keyed by namespace.
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// Workspace is the subset of `cargo metadata` output the tool relies on.
type Workspace struct {
	// Packages are the workspace members.
	Packages []*Project `json:"packages"`
	// WorkspaceRoot is the absolute workspace root directory.
	WorkspaceRoot string `json:"workspace_root"`
	// TargetDirectory is the absolute build output directory.
	TargetDirectory string `json:"target_directory"`
	// Resolve is present only when dependencies were resolved.
	Resolve *Resolve `json:"resolve"`
}

// Resolve carries the root package id of a resolved workspace.
type Resolve struct {
	// Root is the id of the root package, if any.
	Root string `json:"root"`
}

// Runner executes an external command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

var (
	// ErrPackageNotFound is returned when a named package is not a workspace member.
	ErrPackageNotFound = errors.New("package not found in workspace")
	// ErrNoRootPackage is returned when no package was named and the workspace is virtual.
	ErrNoRootPackage = errors.New("workspace has no root package, specify one with --package")
)

// LoadWorkspace runs `cargo metadata` for the given manifest (empty means the
// current directory) and parses its output.
func LoadWorkspace(ctx context.Context, runner Runner, cargo, manifestPath string) (*Workspace, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	output, err := runner.Output(ctx, cargo, args...)
	if err != nil {
		return nil, fmt.Errorf("read cargo metadata: %w", err)
	}

	return ParseWorkspace(output)
}

// ParseWorkspace decodes `cargo metadata --format-version 1` output.
func ParseWorkspace(data []byte) (*Workspace, error) {
	var workspace Workspace
	if err := json.Unmarshal(data, &workspace); err != nil {
		return nil, fmt.Errorf("decode cargo metadata: %w", err)
	}

	if workspace.WorkspaceRoot == "" {
		return nil, errors.New("decode cargo metadata: workspace_root is empty")
	}

	if workspace.TargetDirectory == "" {
		workspace.TargetDirectory = filepath.Join(workspace.WorkspaceRoot, "target")
	}

	return &workspace, nil
}

// Package returns the package with the given name, or the root package when
// name is empty.
func (w *Workspace) Package(name string) (*Project, error) {
	if name != "" {
		for _, project := range w.Packages {
			if project.Name == name {
				return project, nil
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}

	if w.Resolve != nil && w.Resolve.Root != "" {
		for _, project := range w.Packages {
			if project.ID == w.Resolve.Root {
				return project, nil
			}
		}
	}

	rootManifest := filepath.Join(w.WorkspaceRoot, "Cargo.toml")
	for _, project := range w.Packages {
		if filepath.Clean(project.ManifestPath) == rootManifest {
			return project, nil
		}
	}

	return nil, ErrNoRootPackage
}
