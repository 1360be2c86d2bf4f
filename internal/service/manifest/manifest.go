package manifest

import (
	"strings"

	"github.com/oshokin/ori/internal/domain/android"
	"github.com/oshokin/ori/internal/metadata"
)

const (
	// DefaultPackagePrefix prefixes generated application ids.
	DefaultPackagePrefix = "ori."
	// DefaultVersionCode is used when no version code is configured.
	DefaultVersionCode uint32 = 1

	// MinSDKVersion is the lowest supported API level.
	MinSDKVersion = 21
	// TargetSDKVersion is the API level the package is tested against.
	TargetSDKVersion = 34
	// CompileSDKVersion is the API level of the platform jar.
	CompileSDKVersion = 34
	// CompileSDKVersionCodename is the platform release of CompileSDKVersion.
	CompileSDKVersionCodename = "14"

	// ActivityName is the entry activity shipped in the DEX payload.
	ActivityName = "ori.oriactivity.OriActivity"
	// Theme is the application theme.
	Theme = "@android:style/Theme.DeviceDefault.NoActionBar.TranslucentDecor"
	// IconResource references the icon compiled into the resource table.
	IconResource = "@mipmap/icon"

	// ConfigChanges are handled by the activity instead of restarting it.
	ConfigChanges = "orientation|keyboardHidden|keyboard|screenSize|smallestScreenSize|locale|" +
		"layoutDirection|fontScale|screenLayout|density|uiMode"
	// LaunchMode keeps a single activity instance on top.
	LaunchMode = "singleTop"
	// WindowSoftInputMode resizes the window for the soft keyboard.
	WindowSoftInputMode = "adjustResize"

	// LibNameMetaData names the native library loaded by the activity.
	LibNameMetaData = "android.app.lib_name"

	actionMain       = "android.intent.action.MAIN"
	categoryLauncher = "android.intent.category.LAUNCHER"
)

// Synthesize builds the manifest of the project.
func Synthesize(project *metadata.Project, general *metadata.General, pkg *metadata.Package) *android.Manifest {
	if general == nil {
		general = metadata.DefaultGeneral()
	}

	if pkg == nil {
		pkg = metadata.DefaultPackage()
	}

	label := Label(project, general)

	return &android.Manifest{
		Package:                   PackageID(project, pkg),
		VersionCode:               VersionCode(pkg),
		VersionName:               VersionName(project, pkg),
		CompileSDKVersion:         CompileSDKVersion,
		CompileSDKVersionCodename: CompileSDKVersionCodename,
		PlatformBuildVersionCode:  CompileSDKVersion,
		PlatformBuildVersionName:  CompileSDKVersionCodename,
		SDK: android.UsesSDK{
			MinSDKVersion:    MinSDKVersion,
			TargetSDKVersion: TargetSDKVersion,
		},
		UsesFeatures:    Features(pkg),
		UsesPermissions: Permissions(pkg),
		Application: android.Application{
			Label:      label,
			Theme:      Theme,
			Icon:       Icon(pkg),
			Activities: []android.Activity{activity(project, label)},
		},
	}
}

// PackageID resolves the application id.
func PackageID(project *metadata.Project, pkg *metadata.Package) string {
	if pkg.Package != "" {
		return pkg.Package
	}

	return DefaultPackagePrefix + NormalizeName(project.Name)
}

// VersionCode resolves the integer version code.
func VersionCode(pkg *metadata.Package) uint32 {
	if pkg.VersionCode != 0 {
		return pkg.VersionCode
	}

	return DefaultVersionCode
}

// VersionName resolves the display version.
func VersionName(project *metadata.Project, pkg *metadata.Package) string {
	if pkg.VersionName != "" {
		return pkg.VersionName
	}

	return project.Version
}

// Label resolves the application and activity label.
func Label(project *metadata.Project, general *metadata.General) string {
	if general.Name != "" {
		return general.Name
	}

	return project.Name
}

// Icon resolves the icon reference; empty means no icon.
func Icon(pkg *metadata.Package) string {
	if pkg.Icon == "" {
		return ""
	}

	return IconResource
}

// Features lists uses-feature entries in declaration order.
func Features(pkg *metadata.Package) []android.Feature {
	features := make([]android.Feature, 0, len(pkg.UsesFeature))
	for _, name := range pkg.UsesFeature {
		features = append(features, android.Feature{Name: name})
	}

	return features
}

// Permissions lists uses-permission entries in declaration order.
func Permissions(pkg *metadata.Package) []android.Permission {
	permissions := make([]android.Permission, 0, len(pkg.UsesPermission))
	for _, name := range pkg.UsesPermission {
		permissions = append(permissions, android.Permission{Name: name})
	}

	return permissions
}

// NormalizeName replaces every character outside [A-Za-z0-9_] with '_'.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func activity(project *metadata.Project, label string) android.Activity {
	return android.Activity{
		Name:                ActivityName,
		Label:               label,
		Exported:            true,
		HardwareAccelerated: true,
		ConfigChanges:       ConfigChanges,
		LaunchMode:          LaunchMode,
		WindowSoftInputMode: WindowSoftInputMode,
		MetaData: []android.MetaData{{
			Name:  LibNameMetaData,
			Value: NormalizeName(project.Name),
		}},
		IntentFilters: []android.IntentFilter{{
			Actions:    []string{actionMain},
			Categories: []string{categoryLauncher},
		}},
	}
}
