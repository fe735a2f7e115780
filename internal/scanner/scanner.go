// Package scanner builds snapshots for every archive in a set of
// directories and stores them as known records.
package scanner

import (
	"fmt"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/snapshots"
	"github.com/blackwell-systems/apkident/internal/store"
)

// DefaultHashCacheSize bounds the in-process archive hash cache.
const DefaultHashCacheSize = 512

// Options configures a Scanner.
type Options struct {
	// Jobs bounds the number of archives processed concurrently.
	Jobs int

	// Force rebuilds records that are already known.
	Force bool

	// HashCacheSize defaults to DefaultHashCacheSize.
	HashCacheSize int

	// Progress is called once per archive, from any goroutine.
	Progress func(path string, outcome Outcome)

	Logger *slog.Logger
}

// Scanner builds and stores snapshots. It is safe for concurrent use.
type Scanner struct {
	store   *store.Store
	builder *snapshots.Builder
	opts    Options
	logger  *slog.Logger
	hashes  *lru.Cache[hashKey, string]
}

type hashKey struct {
	path     string
	size     int64
	modTime  int64
	hashType string
}

// New creates a new Scanner. The builder is copied; its hash function is
// replaced by the scanner's cached one.
func New(st *store.Store, builder *snapshots.Builder, opts Options) (*Scanner, error) {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.HashCacheSize < 1 {
		opts.HashCacheSize = DefaultHashCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[hashKey, string](opts.HashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash cache: %w", err)
	}

	s := &Scanner{
		store:  st,
		opts:   opts,
		logger: logger,
		hashes: cache,
	}

	b := *builder
	b.Hash = s.hash
	s.builder = &b
	return s, nil
}

// hash returns the archive hash, reusing the cached value while the file's
// size and modification time are unchanged.
func (s *Scanner) hash(path, hashType string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	key := hashKey{path: path, size: fi.Size(), modTime: fi.ModTime().UnixNano(), hashType: hashType}
	if sum, ok := s.hashes.Get(key); ok {
		return sum, nil
	}

	sum, err := archive.HashFile(path, hashType)
	if err != nil {
		return "", err
	}
	s.hashes.Add(key, sum)
	return sum, nil
}
