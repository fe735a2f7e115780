// Package catalog reads a repository index (index-v1 layout) into apps and
// their published versions.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/locale"
)

// Repo describes the repository that published the index.
type Repo struct {
	Name      string
	Address   string
	Timestamp time.Time
}

// App is one catalog application.
type App struct {
	PackageName          string
	Name                 string
	Summary              string
	Description          string
	Icon                 string
	PreferredSigner      string
	SuggestedVersionCode int64
	Localized            *locale.Bundle
}

// Version is one published archive of an app.
type Version struct {
	PackageName string
	VersionCode int64
	VersionName string

	// Sig is the legacy fingerprint of the signer certificate.
	Sig string

	// Signer is the SHA-256 of the signer certificate.
	Signer string

	MinSDK     int
	TargetSDK  int
	MaxSDK     int
	NativeCode []string
	Hash       string
	HashType   string
	ApkName    string
	Size       int64
}

// Index is a parsed repository index.
type Index struct {
	Repo     Repo
	Apps     []*App
	versions map[string][]*Version
	apps     map[string]*App
}

// ReadFile parses the index at path.
func ReadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, &apkerr.Error{Op: "parse index", Path: path, Err: err}
	}
	return idx, nil
}

// Parse parses an index document. Apps without a package name and versions
// without a version code are skipped.
func Parse(data []byte) (*Index, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid index JSON: %w", apkerr.ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("index is not an object: %w", apkerr.ErrMalformed)
	}

	idx := &Index{
		versions: make(map[string][]*Version),
		apps:     make(map[string]*App),
	}

	repo := doc.Get("repo")
	idx.Repo = Repo{
		Name:    repo.Get("name").String(),
		Address: repo.Get("address").String(),
	}
	if ts := repo.Get("timestamp"); ts.Exists() {
		idx.Repo.Timestamp = time.UnixMilli(ts.Int()).UTC()
	}

	doc.Get("apps").ForEach(func(_, a gjson.Result) bool {
		app := parseApp(a)
		if app.PackageName == "" {
			return true
		}
		idx.Apps = append(idx.Apps, app)
		idx.apps[app.PackageName] = app
		return true
	})

	doc.Get("packages").ForEach(func(pkg, list gjson.Result) bool {
		list.ForEach(func(_, v gjson.Result) bool {
			ver := parseVersion(pkg.String(), v)
			if ver.VersionCode == 0 {
				return true
			}
			idx.versions[ver.PackageName] = append(idx.versions[ver.PackageName], ver)
			return true
		})
		return true
	})

	for _, list := range idx.versions {
		sort.SliceStable(list, func(i, j int) bool { return list[i].VersionCode > list[j].VersionCode })
	}
	return idx, nil
}

func parseApp(a gjson.Result) *App {
	app := &App{
		PackageName:          a.Get("packageName").String(),
		Name:                 a.Get("name").String(),
		Summary:              a.Get("summary").String(),
		Description:          a.Get("description").String(),
		Icon:                 a.Get("icon").String(),
		PreferredSigner:      a.Get("preferredSigner").String(),
		SuggestedVersionCode: a.Get("suggestedVersionCode").Int(),
	}
	if l := a.Get("localized"); l.IsObject() {
		app.Localized = locale.BundleFromJSON(l)
	}
	return app
}

func parseVersion(pkg string, v gjson.Result) *Version {
	ver := &Version{
		PackageName: pkg,
		VersionCode: v.Get("versionCode").Int(),
		VersionName: v.Get("versionName").String(),
		Sig:         v.Get("sig").String(),
		Signer:      v.Get("signer").String(),
		MinSDK:      int(v.Get("minSdkVersion").Int()),
		TargetSDK:   int(v.Get("targetSdkVersion").Int()),
		MaxSDK:      int(v.Get("maxSdkVersion").Int()),
		NativeCode:  []string{},
		Hash:        v.Get("hash").String(),
		HashType:    v.Get("hashType").String(),
		ApkName:     v.Get("apkName").String(),
		Size:        v.Get("size").Int(),
	}
	for _, abi := range v.Get("nativecode").Array() {
		ver.NativeCode = append(ver.NativeCode, abi.String())
	}
	sort.Strings(ver.NativeCode)
	return ver
}

// App returns the app with the given package name.
func (idx *Index) App(packageName string) (*App, bool) {
	a, ok := idx.apps[packageName]
	return a, ok
}

// Versions returns the published versions of a package, newest first.
func (idx *Index) Versions(packageName string) []*Version {
	return idx.versions[packageName]
}

// Suggested returns the suggested version of an app, or the newest one
// when the suggestion is not published.
func (idx *Index) Suggested(packageName string) *Version {
	versions := idx.Versions(packageName)
	if len(versions) == 0 {
		return nil
	}
	if app, ok := idx.App(packageName); ok {
		for _, v := range versions {
			if v.VersionCode == app.SuggestedVersionCode {
				return v
			}
		}
	}
	return versions[0]
}

// Resolve resolves the app's localized metadata. Name, summary and
// description fall back to the unlocalized values.
func (a *App) Resolve(pref locale.Preference, era locale.Era) locale.Localized {
	l := locale.Resolve(a.Localized, pref, era)
	if l.Name == "" {
		l.Name = a.Name
	}
	if l.Summary == "" {
		l.Summary = a.Summary
	}
	if l.Description == "" {
		l.Description = locale.FormatDescription(a.Description)
	}
	return l
}
