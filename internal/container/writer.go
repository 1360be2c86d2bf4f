package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/service/common"
)

const (
	// ManifestEntry is the manifest entry name.
	ManifestEntry = "AndroidManifest.xml"
	// DexEntry is the DEX payload entry name.
	DexEntry = "classes.dex"

	// iconName is the resource name the manifest refers to as @mipmap/icon.
	iconName = "icon"

	// alignment is the zipalign boundary in bytes.
	alignment = "4"

	filePermissions os.FileMode = 0o600
	dirPermissions  os.FileMode = 0o755
)

var (
	errWriterFinished    = errors.New("container is already finished")
	errResourcesRequired = errors.New("resources must be added before other entries")
	errDuplicateEntry    = errors.New("duplicate archive entry")
)

// entry is an archive member queued for Finish.
type entry struct {
	// name is the path inside the archive.
	name string
	// source is the file on disk.
	source string
	// store disables compression.
	store bool
}

// Writer accumulates the contents of one APK.
type Writer struct {
	// tools are the build tools used to link, align and sign.
	tools *BuildTools
	// runner executes the build tools.
	runner common.Runner
	// path is the output APK.
	path string
	// workDir holds intermediate files.
	workDir string
	// manifestPath is the rendered source manifest.
	manifestPath string
	// linkedPath is the archive produced by aapt2 link; empty until AddResources.
	linkedPath string
	// entries are the queued members.
	entries []entry
	// finished is set once Finish has run.
	finished bool
}

// New starts a package at path with the given manifest.
func New(tools *BuildTools, runner common.Runner, path string, manifest *android.Manifest, debuggable bool) (*Writer, error) {
	source, err := manifest.Render(debuggable)
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	workDir, err := os.MkdirTemp(filepath.Dir(path), ".ori-apk-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	manifestPath := filepath.Join(workDir, ManifestEntry)
	if err = os.WriteFile(manifestPath, source, filePermissions); err != nil {
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return &Writer{
		tools:        tools,
		runner:       runner,
		path:         path,
		workDir:      workDir,
		manifestPath: manifestPath,
	}, nil
}

// AddResources compiles the optional icon and links the manifest against the
// platform jar.
func (w *Writer) AddResources(ctx context.Context, icon, platformJar string) error {
	if w.finished {
		return errWriterFinished
	}

	linkedPath := filepath.Join(w.workDir, "linked.apk")
	args := []string{
		"link",
		"-o", linkedPath,
		"--manifest", w.manifestPath,
		"-I", platformJar,
		"--auto-add-overlay",
	}

	if icon != "" {
		compiled, err := w.compileIcon(ctx, icon)
		if err != nil {
			return err
		}

		args = append(args, "-R", compiled)
	}

	if err := w.runner.Run(ctx, w.tools.Tool(toolAAPT2), args...); err != nil {
		return fmt.Errorf("link resources: %w", err)
	}

	w.linkedPath = linkedPath

	return nil
}

// AddBinaryPayload queues the DEX payload.
func (w *Writer) AddBinaryPayload(_ context.Context, dexPath string) error {
	return w.queue(DexEntry, dexPath, false)
}

// AddNativeLibrary queues a shared library for the target's ABI directory.
// Libraries are stored uncompressed so they can be mapped in place.
func (w *Writer) AddNativeLibrary(_ context.Context, target android.Target, libraryPath string) error {
	if !target.IsValid() {
		return fmt.Errorf("add native library: %w: %s", android.ErrUnknownABI, target)
	}

	name := "lib/" + target.ABI() + "/" + filepath.Base(libraryPath)

	return w.queue(name, libraryPath, true)
}

// Finish writes the package. A nil signer leaves it unsigned.
func (w *Writer) Finish(ctx context.Context, signer *Signer) error {
	if w.finished {
		return errWriterFinished
	}

	if w.linkedPath == "" {
		return errResourcesRequired
	}

	w.finished = true

	unaligned := filepath.Join(w.workDir, "unaligned.apk")
	if err := w.writeArchive(unaligned); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	aligned := filepath.Join(w.workDir, "aligned.apk")
	if err := w.runner.Run(ctx, w.tools.Tool(toolZipalign), "-f", "-p", alignment, unaligned, aligned); err != nil {
		return fmt.Errorf("align archive: %w", err)
	}

	if signer == nil {
		logger.Warn(ctx, "Package is not signed")
		return os.Rename(aligned, w.path)
	}

	if err := w.sign(ctx, signer, aligned); err != nil {
		return fmt.Errorf("sign archive: %w", err)
	}

	return nil
}

// Close removes intermediate files.
func (w *Writer) Close() error {
	if w.workDir == "" {
		return nil
	}

	err := os.RemoveAll(w.workDir)
	w.workDir = ""

	return err
}

// Path returns the output APK path.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) queue(name, source string, store bool) error {
	if w.finished {
		return errWriterFinished
	}

	if w.linkedPath == "" {
		return errResourcesRequired
	}

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("add %s: %s is not a regular file", name, source)
	}

	for _, queued := range w.entries {
		if queued.name == name {
			return fmt.Errorf("%w: %s", errDuplicateEntry, name)
		}
	}

	w.entries = append(w.entries, entry{
		name:   name,
		source: source,
		store:  store,
	})

	return nil
}

func (w *Writer) compileIcon(ctx context.Context, icon string) (string, error) {
	if _, err := os.Stat(icon); err != nil {
		return "", fmt.Errorf("icon: %w", err)
	}

	resourcePath := filepath.Join(w.workDir, "res", "mipmap", iconName+strings.ToLower(filepath.Ext(icon)))
	if err := os.MkdirAll(filepath.Dir(resourcePath), dirPermissions); err != nil {
		return "", fmt.Errorf("create resource directory: %w", err)
	}

	if err := copyFile(icon, resourcePath); err != nil {
		return "", fmt.Errorf("copy icon: %w", err)
	}

	compiledDir := filepath.Join(w.workDir, "compiled")
	if err := os.MkdirAll(compiledDir, dirPermissions); err != nil {
		return "", fmt.Errorf("create compiled resource directory: %w", err)
	}

	if err := w.runner.Run(ctx, w.tools.Tool(toolAAPT2), "compile", "-o", compiledDir, resourcePath); err != nil {
		return "", fmt.Errorf("compile icon: %w", err)
	}

	// aapt2 names flat files <type>_<file>.flat.
	return filepath.Join(compiledDir, "mipmap_"+filepath.Base(resourcePath)+".flat"), nil
}

// writeArchive copies the linked archive and appends the queued entries.
func (w *Writer) writeArchive(target string) error {
	linked, err := zip.OpenReader(w.linkedPath)
	if err != nil {
		return err
	}

	defer func() {
		_ = linked.Close()
	}()

	output, err := os.Create(filepath.Clean(target))
	if err != nil {
		return err
	}

	archive := zip.NewWriter(output)

	for _, file := range linked.File {
		if err = archive.Copy(file); err != nil {
			_ = output.Close()
			return fmt.Errorf("copy %s: %w", file.Name, err)
		}
	}

	for _, queued := range w.entries {
		if err = addEntry(archive, queued); err != nil {
			_ = output.Close()
			return fmt.Errorf("add %s: %w", queued.name, err)
		}
	}

	if err = archive.Close(); err != nil {
		_ = output.Close()
		return err
	}

	return output.Close()
}

func (w *Writer) sign(ctx context.Context, signer *Signer, aligned string) error {
	keyDER, err := signer.keyDER()
	if err != nil {
		return err
	}

	keyPath := filepath.Join(w.workDir, "key.pk8")
	if err = os.WriteFile(keyPath, keyDER, filePermissions); err != nil {
		return err
	}

	certificatePath := filepath.Join(w.workDir, "certificate.pem")
	if err = os.WriteFile(certificatePath, signer.certificatePEM(), filePermissions); err != nil {
		return err
	}

	return w.runner.Run(ctx, w.tools.Tool(toolAPKSigner),
		"sign",
		"--key", keyPath,
		"--cert", certificatePath,
		"--out", w.path,
		aligned)
}

func addEntry(archive *zip.Writer, queued entry) error {
	source, err := os.Open(filepath.Clean(queued.source))
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	method := zip.Deflate
	if queued.store {
		method = zip.Store
	}

	header := &zip.FileHeader{
		Name:     queued.name,
		Method:   method,
		Modified: time.Now(),
	}

	writer, err := archive.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, source)

	return err
}

func copyFile(source, target string) error {
	input, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = input.Close()
	}()

	output, err := os.Create(filepath.Clean(target))
	if err != nil {
		return err
	}

	if _, err = io.Copy(output, input); err != nil {
		_ = output.Close()
		return err
	}

	return output.Close()
}
