package integration

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // Matches the repository checksum algorithm.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/ori/internal/config"
	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/repository/sdk"
	"github.com/oshokin/ori/internal/service/apk"
)

// TestBuild_DownloadsPlatformOnce builds twice against a local SDK repository
// and verifies the platform archive is fetched only by the first build.
func TestBuild_DownloadsPlatformOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell scripts")
	}

	dir := t.TempDir()
	targetDir := filepath.Join(dir, "target")
	library := filepath.Join(targetDir, "x86_64-linux-android", "release", "libgame.so")
	require.NoError(t, os.MkdirAll(filepath.Dir(library), 0o755))
	require.NoError(t, os.WriteFile(library, []byte("ELF"), 0o600))

	projectID := "path+file://" + dir + "#game@0.3.0"
	writeFile(t, filepath.Join(dir, "metadata.json"), `{"packages":[{"name":"game","version":"0.3.0","id":"`+
		projectID+`","manifest_path":"`+filepath.Join(dir, "Cargo.toml")+`","metadata":{"ori":{"name":"Game"},`+
		`"apk":{"uses-permission":["android.permission.INTERNET"]}}}],"workspace_root":"`+dir+
		`","target_directory":"`+targetDir+`","version":1}`)
	writeFile(t, filepath.Join(dir, "artifact.json"), `{"reason":"compiler-artifact","package_id":"`+projectID+
		`","target":{"name":"game","kind":["cdylib","rlib"],"crate_types":["cdylib","rlib"]},"filenames":["`+
		library+`","`+filepath.Join(filepath.Dir(library), "libgame.rlib")+`"]}`+"\n")

	linked := filepath.Join(dir, "linked.apk")
	require.NoError(t, os.WriteFile(linked, zipOf(t, map[string]string{"AndroidManifest.xml": "binary"}), 0o600))

	bin := filepath.Join(dir, "bin")
	writeScript(t, filepath.Join(bin, "cargo"), "cat "+filepath.Join(dir, "metadata.json"))
	writeScript(t, filepath.Join(bin, "cross"), "echo \"$@\" >> "+filepath.Join(dir, "cross-args.txt")+
		"\ncat "+filepath.Join(dir, "artifact.json"))

	tools := filepath.Join(dir, "sdk", "build-tools", "34.0.0")
	writeScript(t, filepath.Join(tools, "aapt2"), "if [ \"$1\" = link ]; then cp "+linked+" \"$3\"; fi")
	writeScript(t, filepath.Join(tools, "zipalign"), "cp \"$4\" \"$5\"")
	writeScript(t, filepath.Join(tools, "apksigner"), "cp \"$8\" \"$7\"")

	var archiveHits atomic.Int32

	platform := zipOf(t, map[string]string{"android-14/android.jar": "platform", "android-14/build.prop": "x"})
	sum := sha1.Sum(platform) //nolint:gosec // Matches the repository checksum algorithm.

	mux := http.NewServeMux()
	mux.HandleFunc("/repository/"+sdk.RepositoryIndex, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `<sdk-repository><remotePackage path="%s"><archives><archive><complete>`+
			`<size>%d</size><checksum type="sha1">%s</checksum><url>platform.zip</url>`+
			`</complete></archive></archives></remotePackage></sdk-repository>`,
			sdk.PlatformPackage(34), len(platform), hex.EncodeToString(sum[:]))
	})
	mux.HandleFunc("/repository/platform.zip", func(w http.ResponseWriter, _ *http.Request) {
		archiveHits.Add(1)
		_, _ = w.Write(platform)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := config.Default()
	cfg.Cargo = filepath.Join(bin, "cargo")
	cfg.Cross = filepath.Join(bin, "cross")
	cfg.RepositoryURL = server.URL + "/repository/"

	var output bytes.Buffer

	options := &apk.Options{
		Config:   cfg,
		SDKRoot:  filepath.Join(dir, "sdk"),
		Release:  true,
		Target:   android.TargetX86_64.Triple(),
		Features: []string{"audio"},
		Stdout:   &output,
		Stderr:   &output,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for range 2 {
		apkPath, err := apk.Build(ctx, options)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(filepath.Dir(library), "game.apk"), apkPath)
	}

	require.Equal(t, int32(1), archiveHits.Load())

	jar, err := os.ReadFile(sdk.Path(targetDir, 34))
	require.NoError(t, err)
	require.Equal(t, "platform", string(jar))

	crossArgs, err := os.ReadFile(filepath.Join(dir, "cross-args.txt"))
	require.NoError(t, err)
	require.Contains(t, string(crossArgs), "--target x86_64-linux-android")
	require.Contains(t, string(crossArgs), "--release --features audio")
	require.NotContains(t, string(crossArgs), "--offline")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec // Test executable.
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buffer bytes.Buffer

	archive := zip.NewWriter(&buffer)

	for name, contents := range files {
		writer, err := archive.Create(name)
		require.NoError(t, err)

		_, err = writer.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, archive.Close())

	return buffer.Bytes()
}
