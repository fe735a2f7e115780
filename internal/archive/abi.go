package archive

import (
	"regexp"
	"sort"

	"github.com/klauspost/compress/zip"
)

// nativeLibPattern matches entries under lib/<abi>/.
var nativeLibPattern = regexp.MustCompile(`^lib/([a-z0-9_-]+)/`)

// ScanNativeABIs returns the sorted set of ABI directories under lib/ in
// the archive. An archive without native code yields an empty slice.
func ScanNativeABIs(path string) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return NativeABIs(&rc.Reader), nil
}

// NativeABIs returns the sorted set of ABI directories in an open archive.
func NativeABIs(r *zip.Reader) []string {
	seen := make(map[string]bool)
	for _, f := range r.File {
		m := nativeLibPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		seen[m[1]] = true
	}

	abis := make([]string, 0, len(seen))
	for abi := range seen {
		abis = append(abis, abi)
	}
	sort.Strings(abis)
	return abis
}
