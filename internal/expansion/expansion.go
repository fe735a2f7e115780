// Package expansion finds the expansion (OBB) files that belong to an
// installed package in shared storage.
package expansion

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/blackwell-systems/apkident/internal/archive"
)

// Kind is the role of an expansion file.
type Kind string

const (
	KindMain  Kind = "main"
	KindPatch Kind = "patch"
)

// File describes one resolved expansion file.
type File struct {
	Kind     Kind   `json:"kind"`
	Version  int64  `json:"version"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Hash     string `json:"hash"`
}

// Result holds at most one file per kind.
type Result struct {
	Main  *File
	Patch *File
}

// Empty reports whether no expansion file was found.
func (r Result) Empty() bool {
	return r.Main == nil && r.Patch == nil
}

// Dir returns the expansion directory of a package below the storage root.
func Dir(storageRoot, packageName string) string {
	return filepath.Join(storageRoot, "Android", "obb", packageName)
}

// Pattern returns the filename pattern for a package's expansion files.
// The first group is the kind, the second the version.
func Pattern(packageName string) *regexp.Regexp {
	return regexp.MustCompile(`^(main|patch)\.([^.]+)\.` + regexp.QuoteMeta(packageName) + `\.[A-Za-z0-9]+$`)
}

type candidate struct {
	version  int64
	filename string
}

// Resolve picks, for each kind, the file in dir with the highest version
// not above versionCode and hashes it with hashType. Files with a
// non-numeric version are ignored. If a file cannot be hashed the next
// lower version is tried. A missing or unreadable dir yields an empty
// result.
func Resolve(dir, packageName string, versionCode int64, hashType string) Result {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}
	}

	pattern := Pattern(packageName)
	byKind := map[Kind][]candidate{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || v > versionCode {
			continue
		}
		k := Kind(m[1])
		byKind[k] = append(byKind[k], candidate{version: v, filename: e.Name()})
	}

	var res Result
	res.Main = pick(dir, KindMain, byKind[KindMain], hashType)
	res.Patch = pick(dir, KindPatch, byKind[KindPatch], hashType)
	return res
}

func pick(dir string, kind Kind, cands []candidate, hashType string) *File {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].version != cands[j].version {
			return cands[i].version > cands[j].version
		}
		return cands[i].filename < cands[j].filename
	})

	for _, c := range cands {
		path := filepath.Join(dir, c.filename)
		hash, err := archive.HashFile(path, hashType)
		if err != nil {
			slog.Debug("Skipping expansion file", "path", path, "error", err)
			continue
		}
		return &File{
			Kind:     kind,
			Version:  c.version,
			Filename: c.filename,
			Path:     path,
			Hash:     hash,
		}
	}
	return nil
}

// String renders the file as kind.version.
func (f *File) String() string {
	return fmt.Sprintf("%s.%d", f.Kind, f.Version)
}
