package archive

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// DefaultHashType is the algorithm used for archive and expansion file
// content hashes.
const DefaultHashType = "sha256"

// ErrUnsupportedHash indicates an unknown hash algorithm name.
var ErrUnsupportedHash = fmt.Errorf("unsupported hash type: %w", apkerr.ErrUnsupported)

// NewHash returns a hash for the algorithm name. Names are matched
// case-insensitively and with or without a dash ("sha-256").
func NewHash(hashType string) (hash.Hash, error) {
	switch strings.ReplaceAll(strings.ToLower(hashType), "-", "") {
	case "", "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedHash, hashType)
}

// HashFile returns the lowercase hex digest of the file's content.
func HashFile(path, hashType string) (string, error) {
	h, err := NewHash(hashType)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &apkerr.Error{Op: "hash", Path: path, Err: fmt.Errorf("%w: %w", apkerr.ErrNotFound, err)}
		}
		return "", &apkerr.Error{Op: "hash", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", &apkerr.Error{Op: "hash", Path: path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
