package android

import (
	"encoding/xml"
	"fmt"
)

// androidNamespace is the XML namespace of android: attributes.
const androidNamespace = "http://schemas.android.com/apk/res/android"

// Manifest describes an installable package: identity, platform baseline,
// requirements and its single entry activity.
type Manifest struct {
	// Package is the application id, e.g. "ori.my_app".
	Package string
	// VersionCode is the integer version the platform compares on upgrade.
	VersionCode uint32
	// VersionName is the version shown to users.
	VersionName string
	// CompileSDKVersion is the API level the package is compiled against.
	CompileSDKVersion int
	// CompileSDKVersionCodename is the platform release matching CompileSDKVersion.
	CompileSDKVersionCodename string
	// PlatformBuildVersionCode mirrors CompileSDKVersion for older tooling.
	PlatformBuildVersionCode int
	// PlatformBuildVersionName mirrors CompileSDKVersionCodename for older tooling.
	PlatformBuildVersionName string
	// SDK holds the minimum and target API levels.
	SDK UsesSDK
	// UsesFeatures lists required hardware/software features in declaration order.
	UsesFeatures []Feature
	// UsesPermissions lists requested permissions in declaration order.
	UsesPermissions []Permission
	// Application is the application element with its activities.
	Application Application
}

// UsesSDK is the uses-sdk element.
type UsesSDK struct {
	MinSDKVersion    int
	TargetSDKVersion int
}

// Feature is a uses-feature entry.
type Feature struct {
	Name string
}

// Permission is a uses-permission entry.
type Permission struct {
	Name string
}

// Application is the application element.
type Application struct {
	// Label is the user-visible application name.
	Label string
	// Theme is the theme resource reference.
	Theme string
	// Icon is the icon resource reference, empty when the package has no icon.
	Icon string
	// Activities holds the entry points; the pipeline always produces exactly one.
	Activities []Activity
}

// Activity is an activity element.
type Activity struct {
	Name                string
	Label               string
	Exported            bool
	HardwareAccelerated bool
	ConfigChanges       string
	LaunchMode          string
	WindowSoftInputMode string
	MetaData            []MetaData
	IntentFilters       []IntentFilter
}

// MetaData is a name/value meta-data element.
type MetaData struct {
	Name  string
	Value string
}

// IntentFilter is an intent-filter element.
type IntentFilter struct {
	Actions    []string
	Categories []string
}

// Render returns the manifest as AndroidManifest.xml source.
// Debuggable is a property of the build variant, not of the manifest, so it is
// passed in by the container writer.
func (m *Manifest) Render(debuggable bool) ([]byte, error) {
	doc := xmlManifest{
		NSAndroid:                 androidNamespace,
		Package:                   m.Package,
		VersionCode:               m.VersionCode,
		VersionName:               m.VersionName,
		CompileSDKVersion:         m.CompileSDKVersion,
		CompileSDKVersionCodename: m.CompileSDKVersionCodename,
		PlatformBuildVersionCode:  m.PlatformBuildVersionCode,
		PlatformBuildVersionName:  m.PlatformBuildVersionName,
		UsesSDK: xmlUsesSDK{
			MinSDKVersion:    m.SDK.MinSDKVersion,
			TargetSDKVersion: m.SDK.TargetSDKVersion,
		},
		Application: xmlApplication{
			Label:      m.Application.Label,
			Theme:      m.Application.Theme,
			Icon:       m.Application.Icon,
			Debuggable: debuggable,
			HasCode:    true,
		},
	}

	for _, feature := range m.UsesFeatures {
		doc.Features = append(doc.Features, xmlNamed{Name: feature.Name})
	}

	for _, permission := range m.UsesPermissions {
		doc.Permissions = append(doc.Permissions, xmlNamed{Name: permission.Name})
	}

	for i := range m.Application.Activities {
		doc.Application.Activities = append(doc.Application.Activities, toXMLActivity(&m.Application.Activities[i]))
	}

	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func toXMLActivity(activity *Activity) xmlActivity {
	out := xmlActivity{
		Name:                activity.Name,
		Label:               activity.Label,
		Exported:            activity.Exported,
		HardwareAccelerated: activity.HardwareAccelerated,
		ConfigChanges:       activity.ConfigChanges,
		LaunchMode:          activity.LaunchMode,
		WindowSoftInputMode: activity.WindowSoftInputMode,
	}

	for _, meta := range activity.MetaData {
		out.MetaData = append(out.MetaData, xmlMetaData(meta))
	}

	for _, filter := range activity.IntentFilters {
		var xmlFilter xmlIntentFilter

		for _, action := range filter.Actions {
			xmlFilter.Actions = append(xmlFilter.Actions, xmlNamed{Name: action})
		}

		for _, category := range filter.Categories {
			xmlFilter.Categories = append(xmlFilter.Categories, xmlNamed{Name: category})
		}

		out.IntentFilters = append(out.IntentFilters, xmlFilter)
	}

	return out
}

// The xml* types carry the android: attribute spelling. encoding/xml writes the
// prefixed names verbatim, and xmlns:android on the root binds the prefix.
type (
	xmlManifest struct {
		XMLName                   xml.Name       `xml:"manifest"`
		NSAndroid                 string         `xml:"xmlns:android,attr"`
		Package                   string         `xml:"package,attr"`
		VersionCode               uint32         `xml:"android:versionCode,attr"`
		VersionName               string         `xml:"android:versionName,attr"`
		CompileSDKVersion         int            `xml:"android:compileSdkVersion,attr"`
		CompileSDKVersionCodename string         `xml:"android:compileSdkVersionCodename,attr"`
		PlatformBuildVersionCode  int            `xml:"platformBuildVersionCode,attr"`
		PlatformBuildVersionName  string         `xml:"platformBuildVersionName,attr"`
		UsesSDK                   xmlUsesSDK     `xml:"uses-sdk"`
		Features                  []xmlNamed     `xml:"uses-feature"`
		Permissions               []xmlNamed     `xml:"uses-permission"`
		Application               xmlApplication `xml:"application"`
	}

	xmlUsesSDK struct {
		MinSDKVersion    int `xml:"android:minSdkVersion,attr"`
		TargetSDKVersion int `xml:"android:targetSdkVersion,attr"`
	}

	xmlNamed struct {
		Name string `xml:"android:name,attr"`
	}

	xmlApplication struct {
		Label      string        `xml:"android:label,attr,omitempty"`
		Theme      string        `xml:"android:theme,attr,omitempty"`
		Icon       string        `xml:"android:icon,attr,omitempty"`
		Debuggable bool          `xml:"android:debuggable,attr,omitempty"`
		HasCode    bool          `xml:"android:hasCode,attr"`
		Activities []xmlActivity `xml:"activity"`
	}

	xmlActivity struct {
		Name                string            `xml:"android:name,attr"`
		Label               string            `xml:"android:label,attr,omitempty"`
		Exported            bool              `xml:"android:exported,attr"`
		HardwareAccelerated bool              `xml:"android:hardwareAccelerated,attr"`
		ConfigChanges       string            `xml:"android:configChanges,attr,omitempty"`
		LaunchMode          string            `xml:"android:launchMode,attr,omitempty"`
		WindowSoftInputMode string            `xml:"android:windowSoftInputMode,attr,omitempty"`
		MetaData            []xmlMetaData     `xml:"meta-data"`
		IntentFilters       []xmlIntentFilter `xml:"intent-filter"`
	}

	xmlMetaData struct {
		Name  string `xml:"android:name,attr"`
		Value string `xml:"android:value,attr"`
	}

	xmlIntentFilter struct {
		Actions    []xmlNamed `xml:"action"`
		Categories []xmlNamed `xml:"category"`
	}
)
