package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const workspaceJSON = `{
  "packages": [
    {
      "name": "my-app",
      "version": "1.2.3",
      "id": "path+file:///work/my-app#1.2.3",
      "manifest_path": "/work/Cargo.toml",
      "metadata": {"apk": {"version-code": 7}}
    },
    {
      "name": "helper",
      "version": "0.1.0",
      "id": "path+file:///work/helper#0.1.0",
      "manifest_path": "/work/helper/Cargo.toml",
      "metadata": null
    }
  ],
  "workspace_root": "/work",
  "target_directory": "/work/target",
  "resolve": null,
  "version": 1
}`

type fakeRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args

	return f.output, f.err
}

// TestParseWorkspace decodes the fields the tool depends on.
func TestParseWorkspace(t *testing.T) {
	t.Parallel()

	workspace, err := ParseWorkspace([]byte(workspaceJSON))
	require.NoError(t, err)
	require.Equal(t, "/work", workspace.WorkspaceRoot)
	require.Equal(t, "/work/target", workspace.TargetDirectory)
	require.Len(t, workspace.Packages, 2)
	require.Contains(t, workspace.Packages[0].Metadata, PackageNamespace)
	require.Empty(t, workspace.Packages[1].Metadata)

	_, err = ParseWorkspace([]byte(`{"packages": []}`))
	require.Error(t, err)

	_, err = ParseWorkspace([]byte(`not json`))
	require.Error(t, err)
}

// TestWorkspace_Package selects packages by name and falls back to the root.
func TestWorkspace_Package(t *testing.T) {
	t.Parallel()

	workspace, err := ParseWorkspace([]byte(workspaceJSON))
	require.NoError(t, err)

	root, err := workspace.Package("")
	require.NoError(t, err)
	require.Equal(t, "my-app", root.Name)

	helper, err := workspace.Package("helper")
	require.NoError(t, err)
	require.Equal(t, "path+file:///work/helper#0.1.0", helper.ID)

	_, err = workspace.Package("missing")
	require.ErrorIs(t, err, ErrPackageNotFound)

	workspace.Resolve = &Resolve{Root: helper.ID}
	root, err = workspace.Package("")
	require.NoError(t, err)
	require.Equal(t, "helper", root.Name)

	virtual := &Workspace{WorkspaceRoot: "/work", Packages: []*Project{helper}}
	_, err = virtual.Package("")
	require.ErrorIs(t, err, ErrNoRootPackage)
}

// TestLoadWorkspace passes the manifest path through to cargo.
func TestLoadWorkspace(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: []byte(workspaceJSON)}

	workspace, err := LoadWorkspace(context.Background(), runner, "cargo", "/work/Cargo.toml")
	require.NoError(t, err)
	require.Equal(t, "/work", workspace.WorkspaceRoot)
	require.Equal(t, "cargo", runner.name)
	require.Equal(t, []string{
		"metadata", "--format-version", "1", "--no-deps", "--manifest-path", "/work/Cargo.toml",
	}, runner.args)

	runner = &fakeRunner{err: errors.New("exit status 101")}
	_, err = LoadWorkspace(context.Background(), runner, "cargo", "")
	require.Error(t, err)
	require.NotContains(t, runner.args, "--manifest-path")
}
