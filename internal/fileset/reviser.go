package fileset

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/gridforge/internal/model"
	"lukechampine.com/blake3"
)

// Reviser computes the revision of a file for one strategy.
type Reviser interface {
	Revise(path string, info fs.FileInfo) (uint64, error)
}

// TimeReviser uses the modification time in whole seconds since the epoch.
type TimeReviser struct{}

// Revise implements Reviser.
func (TimeReviser) Revise(_ string, info fs.FileInfo) (uint64, error) {
	sec := info.ModTime().Unix()
	if sec < 0 {
		return 0, nil
	}
	return uint64(sec), nil
}

// HashReviser uses the first eight bytes of the BLAKE3-256 digest of the
// file content. Digests are cached by (path, size, mtime) so unchanged files
// are not read again.
type HashReviser struct {
	cache *lru.Cache[hashKey, uint64]
}

type hashKey struct {
	path  string
	size  int64
	mtime int64
}

// NewHashReviser creates a HashReviser remembering up to size digests.
func NewHashReviser(size int) (*HashReviser, error) {
	cache, err := lru.New[hashKey, uint64](size)
	if err != nil {
		return nil, fmt.Errorf("creating digest cache: %w", err)
	}
	return &HashReviser{cache: cache}, nil
}

// Revise implements Reviser.
func (h *HashReviser) Revise(path string, info fs.FileInfo) (uint64, error) {
	key := hashKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if rev, ok := h.cache.Get(key); ok {
		return rev, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	rev := binary.BigEndian.Uint64(hasher.Sum(nil)[:8])
	h.cache.Add(key, rev)
	return rev, nil
}

// DefaultRevisers returns the revisers for every built-in strategy.
func DefaultRevisers(hashCacheSize int) (map[model.Strategy]Reviser, error) {
	hash, err := NewHashReviser(hashCacheSize)
	if err != nil {
		return nil, err
	}
	return map[model.Strategy]Reviser{
		model.StrategyTime: TimeReviser{},
		model.StrategyHash: hash,
	}, nil
}
