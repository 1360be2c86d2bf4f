package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ori/internal/metadata"
)

func project() *metadata.Project {
	return &metadata.Project{
		ID:      "path+file:///work/my-app#1.2.3",
		Name:    "my-app",
		Version: "1.2.3",
	}
}

// TestSynthesize_Defaults computes every field from the project identity.
func TestSynthesize_Defaults(t *testing.T) {
	t.Parallel()

	manifest := Synthesize(project(), metadata.DefaultGeneral(), metadata.DefaultPackage())

	require.Equal(t, "ori.my_app", manifest.Package)
	require.Equal(t, uint32(1), manifest.VersionCode)
	require.Equal(t, "1.2.3", manifest.VersionName)
	require.Equal(t, 21, manifest.SDK.MinSDKVersion)
	require.Equal(t, 34, manifest.SDK.TargetSDKVersion)
	require.Equal(t, 34, manifest.CompileSDKVersion)
	require.Equal(t, "14", manifest.CompileSDKVersionCodename)
	require.Empty(t, manifest.Application.Icon)
	require.Empty(t, manifest.UsesFeatures)
	require.Empty(t, manifest.UsesPermissions)
	require.Equal(t, "my-app", manifest.Application.Label)
	require.Equal(t, Theme, manifest.Application.Theme)

	require.Len(t, manifest.Application.Activities, 1)

	activity := manifest.Application.Activities[0]
	require.Equal(t, "ori.oriactivity.OriActivity", activity.Name)
	require.Equal(t, "my-app", activity.Label)
	require.True(t, activity.Exported)
	require.True(t, activity.HardwareAccelerated)
	require.Equal(t, "singleTop", activity.LaunchMode)
	require.Equal(t, "adjustResize", activity.WindowSoftInputMode)
	require.Equal(t, "my_app", activity.MetaData[0].Value)
	require.Equal(t, []string{"android.intent.action.MAIN"}, activity.IntentFilters[0].Actions)
	require.Equal(t, []string{"android.intent.category.LAUNCHER"}, activity.IntentFilters[0].Categories)
}

// TestSynthesize_PackageMetadataWins prefers package metadata and falls back
// to the project name for an empty general name.
func TestSynthesize_PackageMetadataWins(t *testing.T) {
	t.Parallel()

	pkg := metadata.DefaultPackage()
	pkg.VersionCode = 7

	manifest := Synthesize(project(), &metadata.General{Name: ""}, pkg)

	require.Equal(t, uint32(7), manifest.VersionCode)
	require.Equal(t, "my-app", manifest.Application.Label)
	require.Equal(t, "my-app", manifest.Application.Activities[0].Label)
}

// TestSynthesize_Overrides applies every configured field.
func TestSynthesize_Overrides(t *testing.T) {
	t.Parallel()

	pkg := &metadata.Package{
		Package:        "com.example.game",
		VersionCode:    12,
		VersionName:    "2.0-beta",
		Icon:           "assets/icon.png",
		UsesFeature:    []string{"android.hardware.vulkan.level", "android.hardware.vulkan.level"},
		UsesPermission: []string{"android.permission.INTERNET", "android.permission.VIBRATE"},
	}

	manifest := Synthesize(project(), &metadata.General{Name: "My Game"}, pkg)

	require.Equal(t, "com.example.game", manifest.Package)
	require.Equal(t, uint32(12), manifest.VersionCode)
	require.Equal(t, "2.0-beta", manifest.VersionName)
	require.Equal(t, "@mipmap/icon", manifest.Application.Icon)
	require.Equal(t, "My Game", manifest.Application.Label)
	require.Len(t, manifest.UsesFeatures, 2, "features are not deduplicated")
	require.Equal(t, "android.permission.INTERNET", manifest.UsesPermissions[0].Name)
	require.Equal(t, "android.permission.VIBRATE", manifest.UsesPermissions[1].Name)
}

// TestSynthesize_NilMetadata treats missing metadata as defaults.
func TestSynthesize_NilMetadata(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		Synthesize(project(), metadata.DefaultGeneral(), metadata.DefaultPackage()),
		Synthesize(project(), nil, nil))
}

// TestNormalizeName replaces separators and other symbols.
func TestNormalizeName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "my_app", NormalizeName("my-app"))
	require.Equal(t, "a_b_c9", NormalizeName("a.b c9"))
	require.Equal(t, "already_ok", NormalizeName("already_ok"))
}
