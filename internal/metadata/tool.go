package metadata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// GeneralNamespace is the [package.metadata.ori] table.
	GeneralNamespace = "ori"
	// PackageNamespace is the [package.metadata.apk] table.
	PackageNamespace = "apk"
)

// General is the tool-wide project metadata.
type General struct {
	// Name is the display name of the application.
	Name string `json:"name"`
}

// Package is the APK-specific metadata. Zero values mean "not configured".
type Package struct {
	// Package is the application id.
	Package string `json:"package"`
	// VersionCode is the integer version code.
	VersionCode uint32 `json:"version-code"`
	// VersionName is the display version.
	VersionName string `json:"version-name"`
	// Icon is the icon image path relative to the workspace root.
	Icon string `json:"icon"`
	// UsesFeature lists required features in declaration order.
	UsesFeature []string `json:"uses-feature"`
	// UsesPermission lists requested permissions in declaration order.
	UsesPermission []string `json:"uses-permission"`
}

// ErrInvalidMetadata is returned when a metadata table fails schema validation.
var ErrInvalidMetadata = errors.New("invalid metadata")

//go:embed schemas/*.schema.json
var schemaFiles embed.FS

// schemaCache compiles each namespace schema at most once.
//
//nolint:gochecknoglobals // Compiled schemas are immutable after the first use.
var schemaCache = struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}{schemas: make(map[string]*jsonschema.Schema)}

// DefaultGeneral returns General with every field at its default.
func DefaultGeneral() *General {
	return &General{}
}

// DefaultPackage returns Package with every field at its default.
func DefaultPackage() *Package {
	return &Package{
		UsesFeature:    []string{},
		UsesPermission: []string{},
	}
}

// ResolveGeneral reads [package.metadata.ori] from the project.
func ResolveGeneral(project *Project) (*General, error) {
	general := DefaultGeneral()
	if err := resolve(project, GeneralNamespace, general); err != nil {
		return nil, err
	}

	return general, nil
}

// ResolvePackage reads [package.metadata.apk] from the project.
func ResolvePackage(project *Project) (*Package, error) {
	pkg := DefaultPackage()
	if err := resolve(project, PackageNamespace, pkg); err != nil {
		return nil, err
	}

	// An explicit empty list decodes to nil; keep the empty-not-nil invariant.
	if pkg.UsesFeature == nil {
		pkg.UsesFeature = []string{}
	}

	if pkg.UsesPermission == nil {
		pkg.UsesPermission = []string{}
	}

	return pkg, nil
}

// resolve validates the namespace table and decodes it over target.
// An absent or null table leaves target untouched.
func resolve(project *Project, namespace string, target any) error {
	raw, ok := project.Metadata[namespace]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	schema, err := loadSchema(namespace)
	if err != nil {
		return err
	}

	var document any
	if err = json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("%w: [package.metadata.%s]: %w", ErrInvalidMetadata, namespace, err)
	}

	if err = schema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("%w: [package.metadata.%s]: %s", ErrInvalidMetadata, namespace, validationErr.Error())
		}

		return fmt.Errorf("%w: [package.metadata.%s]: %w", ErrInvalidMetadata, namespace, err)
	}

	if err = json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: [package.metadata.%s]: %w", ErrInvalidMetadata, namespace, err)
	}

	return nil
}

func loadSchema(namespace string) (*jsonschema.Schema, error) {
	schemaCache.mu.Lock()
	defer schemaCache.mu.Unlock()

	if schema, ok := schemaCache.schemas[namespace]; ok {
		return schema, nil
	}

	name := namespace + ".schema.json"

	contents, err := schemaFiles.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err = compiler.AddResource(name, bytes.NewReader(contents)); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	schemaCache.schemas[namespace] = schema

	return schema, nil
}
