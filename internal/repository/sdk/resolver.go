package sdk

import (
	"context"
	"crypto/sha1" //nolint:gosec // The repository publishes SHA-1 archive checksums.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mholt/archives"

	"github.com/oshokin/ori/internal/config"
	"github.com/oshokin/ori/internal/logger"
	"github.com/oshokin/ori/internal/version"
)

const (
	// JarName is the platform jar extracted from the platform archive.
	JarName = "android.jar"

	// cacheDirectory is the tool directory inside the target directory.
	cacheDirectory = "apk"

	// directoryPermissions is used for cache directories.
	directoryPermissions os.FileMode = 0o755
)

var (
	// ErrOffline is returned when the jar is missing and downloads are forbidden.
	ErrOffline = errors.New("offline mode, sdk resource is missing")
	// ErrChecksumMismatch is returned when a downloaded archive fails verification.
	ErrChecksumMismatch = errors.New("sdk archive checksum mismatch")

	errBadHTTPStatus = errors.New("unexpected http status")
)

// Resolver ensures the platform jar is present locally.
type Resolver struct {
	// client performs the downloads.
	client *http.Client
	// repositoryURL is the base URL of the SDK repository, with a trailing slash.
	repositoryURL string
	// offline forbids network access.
	offline bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithRepositoryURL sets the SDK repository base URL.
func WithRepositoryURL(repositoryURL string) Option {
	return func(r *Resolver) {
		if repositoryURL != "" {
			r.repositoryURL = repositoryURL
		}
	}
}

// WithOffline forbids downloads.
func WithOffline(offline bool) Option {
	return func(r *Resolver) {
		r.offline = offline
	}
}

// New returns a resolver for the default repository.
func New(opts ...Option) *Resolver {
	resolver := &Resolver{
		client:        &http.Client{Timeout: config.DefaultDownloadTimeout},
		repositoryURL: config.DefaultRepositoryURL,
	}

	for _, opt := range opts {
		opt(resolver)
	}

	if !strings.HasSuffix(resolver.repositoryURL, "/") {
		resolver.repositoryURL += "/"
	}

	return resolver
}

// Path returns the cached jar location for an API level under outputDir.
func Path(outputDir string, apiLevel int) string {
	return filepath.Join(outputDir, cacheDirectory, "platforms", "android-"+strconv.Itoa(apiLevel), JarName)
}

// Ensure returns the path of the platform jar, downloading it on first use.
func (r *Resolver) Ensure(ctx context.Context, outputDir string, apiLevel int) (string, error) {
	jarPath := Path(outputDir, apiLevel)

	info, err := os.Stat(jarPath)
	if err == nil && info.Mode().IsRegular() {
		logger.DebugKV(ctx, "Using cached platform jar", "path", jarPath)
		return jarPath, nil
	}

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", jarPath, err)
	}

	if r.offline {
		return "", fmt.Errorf("%w: %s", ErrOffline, jarPath)
	}

	hostOS, err := currentHostOS()
	if err != nil {
		return "", err
	}

	packagePath := PlatformPackage(apiLevel)
	logger.InfoKV(ctx, "Looking up sdk package", "package", packagePath, "repository", r.repositoryURL)

	repositoryIndex, err := r.fetchIndex(ctx)
	if err != nil {
		return "", err
	}

	platformArchive, err := repositoryIndex.findArchive(packagePath, hostOS)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(filepath.Dir(jarPath), directoryPermissions); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(jarPath), err)
	}

	archivePath, err := r.download(ctx, platformArchive, filepath.Dir(jarPath))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = os.Remove(archivePath)
	}()

	if err = extractJar(ctx, archivePath, jarPath); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Platform jar is ready", "path", jarPath)

	return jarPath, nil
}

// fetchIndex downloads and decodes the repository index.
func (r *Resolver) fetchIndex(ctx context.Context) (*index, error) {
	response, err := r.get(ctx, r.repositoryURL+RepositoryIndex)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", RepositoryIndex, err)
	}

	return parseIndex(data)
}

// download stores the archive in dir and verifies its checksum. It returns
// the path of the downloaded file.
func (r *Resolver) download(ctx context.Context, platformArchive *archive, dir string) (string, error) {
	archiveURL, err := r.resolveURL(platformArchive.Complete.URL)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Downloading sdk archive",
		"url", archiveURL, "size", humanize.Bytes(uint64(max(platformArchive.Complete.Size, 0))))

	startedAt := time.Now()

	response, err := r.get(ctx, archiveURL)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	output, err := os.CreateTemp(dir, "platform-*.zip")
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	hasher := sha1.New() //nolint:gosec // The repository publishes SHA-1 archive checksums.

	written, copyErr := io.Copy(io.MultiWriter(output, hasher), response.Body)
	closeErr := output.Close()

	if err = errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(output.Name())
		return "", fmt.Errorf("download %s: %w", archiveURL, err)
	}

	expected := strings.ToLower(strings.TrimSpace(platformArchive.Complete.Checksum))
	actual := hex.EncodeToString(hasher.Sum(nil))

	if expected != "" && expected != actual {
		_ = os.Remove(output.Name())
		return "", fmt.Errorf("%w: %s: expected %s, got %s", ErrChecksumMismatch, archiveURL, expected, actual)
	}

	logger.InfoKV(ctx, "Downloaded sdk archive",
		"size", humanize.Bytes(uint64(written)), "elapsed", time.Since(startedAt).Round(time.Millisecond))

	return output.Name(), nil
}

// resolveURL makes archive URLs from the index absolute.
func (r *Resolver) resolveURL(reference string) (string, error) {
	base, err := url.Parse(r.repositoryURL)
	if err != nil {
		return "", fmt.Errorf("parse repository url: %w", err)
	}

	ref, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("parse archive url %q: %w", reference, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// get issues a GET request and checks the status code.
func (r *Resolver) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()
		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// extractJar copies the platform jar out of the archive. The jar is written
// to a temporary name first so a partial file is never taken for a cache hit.
func extractJar(ctx context.Context, archivePath, jarPath string) error {
	source, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = source.Close()
	}()

	var found bool

	handler := func(_ context.Context, file archives.FileInfo) error {
		if found || file.IsDir() || path.Base(file.NameInArchive) != JarName {
			return nil
		}

		found = true

		return writeJar(file, jarPath)
	}

	if err = (archives.Zip{}).Extract(ctx, source, handler); err != nil {
		return fmt.Errorf("extract %s: %w", JarName, err)
	}

	if !found {
		return fmt.Errorf("%w: archive has no %s", ErrPackageNotFound, JarName)
	}

	return nil
}

func writeJar(file archives.FileInfo, jarPath string) error {
	reader, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = reader.Close()
	}()

	temporaryPath := jarPath + ".partial"

	output, err := os.Create(filepath.Clean(temporaryPath))
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(output, reader)
	closeErr := output.Close()

	if err = errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(temporaryPath)
		return err
	}

	return os.Rename(temporaryPath, jarPath)
}
